package server

import (
	"crypto/tls"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/smartlock/internal/logging"
)

type closeWriter interface {
	CloseWrite() error
}

type lingerer interface {
	SetLinger(sec int) error
}

// session is one accepted socket and the TLS session bound to it.
// A new session is created for every connection.
type session struct {
	id     string
	remote string
	raw    net.Conn
	tls    *tls.Conn
	log    *zap.Logger
}

func newSession(raw net.Conn, cfg *tls.Config, log *zap.Logger) *session {
	id := uuid.NewString()
	remote := raw.RemoteAddr().String()
	return &session{
		id:     id,
		remote: remote,
		raw:    raw,
		tls:    tls.Server(raw, cfg),
		log:    log.With(zap.String("session", id), zap.String("remote_addr", remote)),
	}
}

// close sends close_notify when a TLS session exists and then shuts down
// the write side of the socket.
func (s *session) close() {
	if s.tls.ConnectionState().HandshakeComplete {
		if err := s.tls.CloseWrite(); err != nil {
			s.log.Debug("close_notify failed", zap.Error(err))
		}
	}
	if cw, ok := s.raw.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			s.log.Debug("TCP half-close failed", zap.Error(err))
		}
	}
}

// abort discards any unsent data and releases the socket.
func (s *session) abort() {
	if l, ok := s.raw.(lingerer); ok {
		_ = l.SetLinger(0)
	}
	_ = s.raw.Close()
}

// teardown runs on every exit path.
func (s *session) teardown() {
	s.close()
	s.abort()
	logging.LogConnection(s.id, s.remote, "connection_closed")
}
