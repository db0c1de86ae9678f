package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/smartlock/internal/logging"
)

// DefaultBackoff is the pause after a disassociation or a failed association.
const DefaultBackoff = 5 * time.Second

// ErrRadioStart is returned by Run when the radio cannot be configured or
// started. It is not retried.
var ErrRadioStart = errors.New("failed to start radio")

// State is the supervisor's view of the association.
type State int32

const (
	StateDisconnected State = iota
	StateStarting
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateStarting:
		return "Starting"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds the network credentials and retry timing.
type Config struct {
	SSID     string
	Password string
	Backoff  time.Duration
}

// Supervisor owns the wireless association lifecycle.
type Supervisor struct {
	radio Radio
	cfg   Config
	log   *zap.Logger

	state    atomic.Int32
	attempts atomic.Int64

	hookMu        sync.RWMutex
	onStateChange func(from, to State)
}

// NewSupervisor creates a Supervisor for radio.
func NewSupervisor(radio Radio, cfg Config) *Supervisor {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Supervisor{
		radio: radio,
		cfg:   cfg,
		log:   logging.For(logging.ComponentWiFi),
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Attempts returns the number of association requests made so far.
func (s *Supervisor) Attempts() int64 {
	return s.attempts.Load()
}

// OnStateChange registers a callback invoked on every transition.
func (s *Supervisor) OnStateChange(fn func(from, to State)) {
	s.hookMu.Lock()
	s.onStateChange = fn
	s.hookMu.Unlock()
}

func (s *Supervisor) setState(to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	logging.LogWiFiState(from.String(), to.String())

	s.hookMu.RLock()
	fn := s.onStateChange
	s.hookMu.RUnlock()
	if fn != nil {
		fn(from, to)
	}
}

// Run supervises the association until ctx is cancelled. It returns nil on
// cancellation and an error wrapping ErrRadioStart if the radio cannot start.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("Begin WIFI connection",
		zap.String("ssid", s.cfg.SSID),
		zap.Strings("capabilities", s.radio.Capabilities()),
	)

	for {
		if s.radio.IsConnected() {
			s.setState(StateConnected)
			if err := s.radio.WaitForDisconnect(ctx); err != nil {
				return s.stopped(ctx, err)
			}
			s.log.Warn("Disassociated from network", zap.String("ssid", s.cfg.SSID))
			s.setState(StateDisconnected)
			if err := sleep(ctx, s.cfg.Backoff); err != nil {
				return nil
			}
		}

		if !s.radio.IsStarted() {
			s.setState(StateStarting)
			if err := s.start(ctx); err != nil {
				return s.stopped(ctx, err)
			}
		}

		s.setState(StateConnecting)
		s.log.Info("Attempting to connect...")
		s.attempts.Add(1)

		if err := s.radio.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("Failed to connect to wifi",
				zap.Error(err),
				zap.Duration("retry_in", s.cfg.Backoff),
			)
			s.setState(StateDisconnected)
			if err := sleep(ctx, s.cfg.Backoff); err != nil {
				return nil
			}
			continue
		}

		s.log.Info("Connection successful.")
		s.setState(StateConnected)
	}
}

func (s *Supervisor) start(ctx context.Context) error {
	clientConfig := ClientConfig{
		SSID:     s.cfg.SSID,
		Password: s.cfg.Password,
	}
	if err := s.radio.SetConfiguration(clientConfig); err != nil {
		return fmt.Errorf("%w: %w", ErrRadioStart, err)
	}

	s.log.Info("Starting")
	if err := s.radio.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRadioStart, err)
	}
	s.log.Info("Started successfully")
	return nil
}

// stopped maps errors seen during shutdown to a clean return.
func (s *Supervisor) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
