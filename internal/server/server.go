package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/smartlock/internal/control"
	"github.com/muurk/smartlock/internal/events"
	"github.com/muurk/smartlock/internal/lockstate"
	"github.com/muurk/smartlock/internal/logging"
	"github.com/muurk/smartlock/internal/netaddr"
	"github.com/muurk/smartlock/internal/render"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultPort             = 443
	DefaultWorkers          = 1
	DefaultBufferSize       = 4096
	DefaultIdleTimeout      = 10 * time.Second
	DefaultLinkPollInterval = 500 * time.Millisecond
	DefaultCloseGrace       = 1000 * time.Millisecond
	publishTimeout          = 5 * time.Second
)

var (
	// ErrFatalHandshake wraps a handshake failure outside the benign cases.
	ErrFatalHandshake = errors.New("fatal TLS handshake error")
	// ErrWriteFailed means the response could not be written to an
	// established session.
	ErrWriteFailed = errors.New("failed to write response")

	errListenerClosed = errors.New("listener closed")
)

// Config holds the server configuration
type Config struct {
	Port             int
	Workers          int
	BufferSize       int
	IdleTimeout      time.Duration
	LinkPollInterval time.Duration
	CloseGrace       time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.LinkPollInterval <= 0 {
		c.LinkPollInterval = DefaultLinkPollInterval
	}
	if c.CloseGrace < 0 {
		c.CloseGrace = 0
	} else if c.CloseGrace == 0 {
		c.CloseGrace = DefaultCloseGrace
	}
	return c
}

// Link is the network stack the server listens on.
type Link interface {
	Address() netaddr.Address
	WaitLinkUp(ctx context.Context, interval time.Duration) error
	Listen(ctx context.Context, port int) (net.Listener, error)
}

// RequestHandler acts on a request line.
type RequestHandler interface {
	Handle(line string) control.Outcome
}

// StateReader reads the current lock state.
type StateReader interface {
	Load() lockstate.State
}

// Stats are cumulative counters since the server was created.
type Stats struct {
	Accepted          uint64
	Served            uint64
	HandshakeFailures uint64
	BadCredentials    uint64
	StateChanges      uint64
}

// Option configures optional collaborators of a Server.
type Option func(*Server)

// WithPublisher sends an event for every accepted state change.
func WithPublisher(p events.Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// Server answers lock and unlock requests over TLS.
type Server struct {
	cfg       Config
	link      Link
	tlsConfig *tls.Config
	handler   RequestHandler
	state     StateReader
	publisher events.Publisher
	pool      *BufferPool
	log       *zap.Logger

	pending sync.WaitGroup

	accepted          atomic.Uint64
	served            atomic.Uint64
	handshakeFailures atomic.Uint64
	badCredentials    atomic.Uint64
	stateChanges      atomic.Uint64
}

// New creates a Server. The buffer pool is allocated here, one receive and
// one transmit buffer per worker.
func New(cfg Config, link Link, tlsConfig *tls.Config, handler RequestHandler, state StateReader, opts ...Option) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:       cfg,
		link:      link,
		tlsConfig: tlsConfig,
		handler:   handler,
		state:     state,
		publisher: events.NopPublisher{},
		pool:      NewBufferPool(cfg.Workers, cfg.BufferSize),
		log:       logging.For(logging.ComponentServer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.cfg
}

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted:          s.accepted.Load(),
		Served:            s.served.Load(),
		HandshakeFailures: s.handshakeFailures.Load(),
		BadCredentials:    s.badCredentials.Load(),
		StateChanges:      s.stateChanges.Load(),
	}
}

// URL returns the address operators browse to.
func (s *Server) URL() string {
	host := s.link.Address().String()
	if s.cfg.Port != DefaultPort {
		host = net.JoinHostPort(host, strconv.Itoa(s.cfg.Port))
	}
	return "https://" + host + "/"
}

// Run waits for the link to come up, opens the control listener and serves
// until ctx is cancelled or a fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Waiting for network link",
		zap.Duration("poll_interval", s.cfg.LinkPollInterval),
	)
	if err := s.link.WaitLinkUp(ctx, s.cfg.LinkPollInterval); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("wait for link: %w", err)
	}

	ln, err := s.link.Listen(ctx, s.cfg.Port)
	if err != nil {
		return err
	}

	s.log.Info("Point your browser to "+s.URL(),
		zap.String("addr", ln.Addr().String()),
		zap.Int("workers", s.cfg.Workers),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	return s.Serve(ctx, ln)
}

// Serve runs the worker pool on ln. It closes ln when it returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	go func() {
		<-gctx.Done()
		_ = ln.Close()
	}()

	for i := 0; i < s.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			return s.worker(gctx, worker, ln)
		})
	}

	err := g.Wait()
	_ = ln.Close()
	s.pending.Wait()

	if err != nil {
		s.log.Error("Server stopped", zap.Error(err))
		return err
	}
	s.log.Info("Server stopped")
	return nil
}

func (s *Server) worker(ctx context.Context, id int, ln net.Listener) error {
	log := s.log.With(zap.Int("worker", id))
	log.Debug("Worker started")
	defer log.Debug("Worker stopped")

	for {
		buf, err := s.pool.Get(ctx)
		if err != nil {
			return nil
		}

		err = s.acceptAndServe(ctx, ln, buf)
		s.pool.Put(buf)

		if errors.Is(err, errListenerClosed) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Server) acceptAndServe(ctx context.Context, ln net.Listener, buf *Buffers) error {
	raw, err := ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
			return errListenerClosed
		}
		s.log.Warn("Failed to accept connection", zap.Error(err))
		return nil
	}
	s.accepted.Add(1)

	sess := newSession(raw, s.tlsConfig, s.log)
	defer sess.teardown()

	logging.LogConnection(sess.id, sess.remote, "connection_accepted")

	return s.serveSession(ctx, sess, buf)
}

func (s *Server) serveSession(ctx context.Context, sess *session, buf *Buffers) error {
	if err := s.handshake(ctx, sess); err != nil {
		return err
	}
	if !sess.tls.ConnectionState().HandshakeComplete {
		return nil
	}

	out := s.readRequest(sess, &buf.View)

	buf.TX = render.AppendResponse(buf.TX[:0], s.state.Load(), out.BadCredential)
	_ = sess.raw.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout))
	logging.LogRawBytes("tx", buf.TX)
	if _, err := sess.tls.Write(buf.TX); err != nil {
		return fmt.Errorf("%w to %s: %w", ErrWriteFailed, sess.remote, err)
	}
	s.served.Add(1)

	sess.log.Debug("Response sent",
		zap.Int("bytes", len(buf.TX)),
		zap.Bool("error_marker", out.BadCredential),
	)

	t := time.NewTimer(s.cfg.CloseGrace)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return nil
}

// handshake returns nil on success and on benign failures. A benign
// failure leaves the handshake incomplete.
func (s *Server) handshake(ctx context.Context, sess *session) error {
	_ = sess.raw.SetDeadline(time.Now().Add(s.cfg.IdleTimeout))

	hctx, cancel := context.WithTimeout(ctx, s.cfg.IdleTimeout)
	defer cancel()

	if err := sess.tls.HandshakeContext(hctx); err != nil {
		s.handshakeFailures.Add(1)
		herr := ClassifyHandshake(err)
		if !herr.Benign() {
			sess.log.Error("TLS handshake failed", zap.Stringer("kind", herr.Kind), zap.Error(err))
			return fmt.Errorf("%w: %w", ErrFatalHandshake, herr)
		}

		fields := []zap.Field{zap.Stringer("kind", herr.Kind), zap.Error(err)}
		if hint := herr.Guidance(); hint != "" {
			sess.log.Warn(hint, fields...)
		} else {
			sess.log.Info("TLS handshake abandoned", fields...)
		}
		return nil
	}

	cs := sess.tls.ConnectionState()
	logging.LogTLSHandshake(sess.id, sess.remote, cs.Version, cs.CipherSuite, cs.ServerName)
	return nil
}

// readRequest accumulates bytes until the header block is complete, the
// peer stops sending, or the buffer is full. The request line is
// dispatched at most once.
func (s *Server) readRequest(sess *session, view *RequestView) control.Outcome {
	var out control.Outcome
	peerDone := false

	for !view.Full() {
		_ = sess.raw.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		n, err := sess.tls.Read(view.Free())
		if n > 0 {
			logging.LogRawBytes("rx", view.Free()[:n])
			view.Advance(n)
			if !view.Dispatched() {
				if line, ok := control.FindRequestLine(view.Bytes(), false); ok {
					out = s.dispatch(sess, view, line)
				}
			}
			if control.HeaderComplete(view.Bytes()) {
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				sess.log.Debug("Peer closed before end of headers", zap.Int("received", view.Len()))
				peerDone = true
			} else {
				sess.log.Warn("Read failed", zap.Int("received", view.Len()), zap.Error(err))
			}
			break
		}
	}

	if !view.Dispatched() && (peerDone || view.Full()) {
		if line, ok := control.FindRequestLine(view.Bytes(), true); ok {
			out = s.dispatch(sess, view, line)
		}
	}

	return out
}

func (s *Server) dispatch(sess *session, view *RequestView, line string) control.Outcome {
	view.MarkDispatched()
	out := s.handler.Handle(line)

	sess.log.Info("Request",
		zap.Stringer("action", out.Action),
		zap.Bool("bad_credential", out.BadCredential),
		zap.Stringer("state", out.Current),
	)

	if out.BadCredential {
		s.badCredentials.Add(1)
	}
	if out.Changed() {
		s.stateChanges.Add(1)
		logging.LogLockChange(sess.id, out.Previous.String(), out.Current.String())
		s.publish(events.Event{
			State:    out.Current,
			Previous: out.Previous,
			Action:   out.Action.String(),
			Session:  sess.id,
			At:       time.Now(),
		})
	}
	return out
}

// publish delivers ev without holding up the connection. Failures are logged.
func (s *Server) publish(ev events.Event) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishState(ctx, ev); err != nil {
			s.log.Warn("Failed to publish lock state",
				zap.String("session", ev.Session),
				zap.Error(err),
			)
		}
	}()
}
