package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteAlert(msg string) error {
	return &net.OpError{Op: "remote error", Err: errors.New(msg)}
}

func localAlert(msg string) error {
	return &net.OpError{Op: "local error", Err: errors.New(msg)}
}

func TestClassifyHandshake(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want HandshakeKind
	}{
		{"no client certificate", errors.New("tls: client didn't provide a certificate"), HandshakeNoClientCert},
		{"bad certificate alert", remoteAlert("tls: bad certificate"), HandshakeCertRejected},
		{"unknown authority alert", remoteAlert("tls: unknown certificate authority"), HandshakeCertRejected},
		{"unknown certificate alert", remoteAlert("tls: unknown certificate"), HandshakeCertRejected},
		{"other alert", remoteAlert("tls: handshake failure"), HandshakePeerAborted},
		{"rejected client message", localAlert("tls: unexpected message"), HandshakeUnsupportedPeer},
		{"undecodable client message", localAlert("tls: error decoding message"), HandshakeUnsupportedPeer},
		{"illegal client parameter", localAlert("tls: illegal parameter"), HandshakeUnsupportedPeer},
		{"local internal error", localAlert("tls: internal error"), HandshakeFatal},
		{"eof", io.EOF, HandshakePeerAborted},
		{"unexpected eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), HandshakePeerAborted},
		{"deadline", &net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}, HandshakePeerAborted},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, HandshakePeerAborted},
		{"not tls", tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}, HandshakePeerAborted},
		{"old client", errors.New("tls: client offered only unsupported versions: [301]"), HandshakeUnsupportedPeer},
		{"no shared cipher", errors.New("tls: no cipher suite supported by both client and server"), HandshakeUnsupportedPeer},
		{"no certificates", errors.New("tls: no certificates configured"), HandshakeFatal},
		{"internal", errors.New("tls: internal error"), HandshakeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			herr := ClassifyHandshake(tt.err)
			assert.Equal(t, tt.want, herr.Kind)
			assert.Equal(t, tt.want != HandshakeFatal, herr.Benign())
			assert.ErrorIs(t, herr, tt.err)
		})
	}
}

// malformedClientHello is a handshake record whose ClientHello body cannot
// be decoded.
var malformedClientHello = []byte{0x16, 0x03, 0x01, 0x00, 0x08, 0x01, 0x00, 0x00, 0x04, 0xde, 0xad, 0xbe, 0xef}

// serverHandshake runs a real server handshake against client and returns
// the error the server saw.
func serverHandshake(t *testing.T, client func(net.Conn)) error {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := net.Dial("tcp4", ln.Addr().String())
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.SetDeadline(time.Now().Add(5 * time.Second))
		client(c)
	}()

	raw, err := ln.Accept()
	require.NoError(t, err)
	defer raw.Close()
	require.NoError(t, raw.SetDeadline(time.Now().Add(5*time.Second)))

	err = tls.Server(raw, NewTLSConfig(serverCert(t), tls.NoClientCert)).Handshake()
	require.Error(t, err)
	return err
}

func writeAndDrain(payload []byte) func(net.Conn) {
	return func(c net.Conn) {
		_, _ = c.Write(payload)
		_, _ = io.Copy(io.Discard, c)
	}
}

func TestClassifyHandshakeFromPeers(t *testing.T) {
	tests := []struct {
		name   string
		client func(net.Conn)
		want   HandshakeKind
	}{
		{"malformed client hello", writeAndDrain(malformedClientHello), HandshakeUnsupportedPeer},
		{"plain http", writeAndDrain([]byte("GET / HTTP/1.0\r\n\r\n")), HandshakePeerAborted},
		{"hang up", func(net.Conn) {}, HandshakePeerAborted},
		{"legacy versions only", func(c net.Conn) {
			_ = tls.Client(c, &tls.Config{
				InsecureSkipVerify: true,
				MinVersion:         tls.VersionTLS10,
				MaxVersion:         tls.VersionTLS11,
			}).Handshake()
		}, HandshakeUnsupportedPeer},
		{"untrusted certificate", func(c net.Conn) {
			_ = tls.Client(c, &tls.Config{ServerName: "127.0.0.1"}).Handshake()
		}, HandshakeCertRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := serverHandshake(t, tt.client)
			herr := ClassifyHandshake(err)
			assert.Equal(t, tt.want, herr.Kind, "%v", err)
			assert.True(t, herr.Benign())
		})
	}
}

func TestHandshakeGuidance(t *testing.T) {
	assert.Contains(t, (&HandshakeError{Kind: HandshakeCertRejected}).Guidance(), "self-signed certificate")
	assert.Contains(t, (&HandshakeError{Kind: HandshakeNoClientCert}).Guidance(), "client certificates")
	assert.Empty(t, (&HandshakeError{Kind: HandshakePeerAborted}).Guidance())
}

func TestHandshakeKindString(t *testing.T) {
	assert.Equal(t, "fatal", HandshakeFatal.String())
	assert.Equal(t, "certificate_rejected", HandshakeCertRejected.String())
	assert.Equal(t, "HandshakeKind(42)", HandshakeKind(42).String())
}
