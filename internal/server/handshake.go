package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
)

// HandshakeKind classifies a failed TLS handshake.
type HandshakeKind int

const (
	// HandshakeFatal is any failure outside the recognised benign cases.
	// It indicates a broken TLS configuration and stops the process.
	HandshakeFatal HandshakeKind = iota
	// HandshakeNoClientCert means client authentication was required and
	// the peer sent no certificate.
	HandshakeNoClientCert
	// HandshakeCertRejected means the peer refused our self-signed certificate.
	HandshakeCertRejected
	// HandshakePeerAborted means the peer went away, stalled, sent an alert
	// or was not speaking TLS at all.
	HandshakePeerAborted
	// HandshakeUnsupportedPeer means the peer offered nothing we accept or
	// sent handshake messages we rejected.
	HandshakeUnsupportedPeer
)

func (k HandshakeKind) String() string {
	switch k {
	case HandshakeFatal:
		return "fatal"
	case HandshakeNoClientCert:
		return "no_client_certificate"
	case HandshakeCertRejected:
		return "certificate_rejected"
	case HandshakePeerAborted:
		return "peer_aborted"
	case HandshakeUnsupportedPeer:
		return "unsupported_peer"
	default:
		return fmt.Sprintf("HandshakeKind(%d)", int(k))
	}
}

// HandshakeError wraps a TLS handshake failure with its classification.
type HandshakeError struct {
	Kind HandshakeKind
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("tls handshake failed (%s): %v", e.Kind, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Benign reports whether only the current connection should be abandoned.
func (e *HandshakeError) Benign() bool {
	return e.Kind != HandshakeFatal
}

// Guidance returns the operator hint logged for this failure, if any.
func (e *HandshakeError) Guidance() string {
	switch e.Kind {
	case HandshakeNoClientCert:
		return "No client certificates given. Please provide client certificates during your request"
	case HandshakeCertRejected:
		return "Please enable the exception for a self-signed certificate in your browser"
	default:
		return ""
	}
}

// Messages produced by crypto/tls for the cases we recognise.
const (
	msgNoClientCert = "client didn't provide a certificate"
)

var certRejectionAlerts = []string{
	"bad certificate",
	"unsupported certificate",
	"unknown certificate",
	"unknown certificate authority",
	"expired certificate",
}

var unsupportedPeerMessages = []string{
	"client offered only unsupported versions",
	"no cipher suite supported by both client and server",
	"no ECDHE curve supported by both client and server",
	"unsupported SSLv2 handshake received",
}

// ClassifyHandshake maps a handshake error onto a HandshakeKind.
func ClassifyHandshake(err error) *HandshakeError {
	return &HandshakeError{Kind: classify(err), Err: err}
}

func classify(err error) HandshakeKind {
	msg := err.Error()

	if strings.Contains(msg, msgNoClientCert) {
		return HandshakeNoClientCert
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		alert := opErr.Err.Error()
		switch opErr.Op {
		case "remote error":
			for _, s := range certRejectionAlerts {
				if strings.HasSuffix(alert, s) {
					return HandshakeCertRejected
				}
			}
			return HandshakePeerAborted
		case "local error":
			// We refused what the peer sent. Only an internal error is ours.
			if strings.HasSuffix(alert, "internal error") {
				return HandshakeFatal
			}
			return HandshakeUnsupportedPeer
		}
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return HandshakePeerAborted
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return HandshakePeerAborted
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return HandshakePeerAborted
	}

	for _, s := range unsupportedPeerMessages {
		if strings.Contains(msg, s) {
			return HandshakeUnsupportedPeer
		}
	}

	return HandshakeFatal
}
