package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ClientConfig is the station-mode configuration handed to the radio.
type ClientConfig struct {
	SSID     string
	Password string
}

// Radio is the wireless driver driven by the Supervisor.
type Radio interface {
	// Capabilities lists the driver's supported modes, for logging.
	Capabilities() []string
	IsStarted() bool
	SetConfiguration(cfg ClientConfig) error
	Start(ctx context.Context) error
	// Connect requests association with the configured network.
	Connect(ctx context.Context) error
	IsConnected() bool
	// WaitForDisconnect blocks until the station is disassociated.
	WaitForDisconnect(ctx context.Context) error
}

// LinkSetter receives link state changes from a driver.
type LinkSetter interface {
	SetLinkUp(up bool)
}

// Driver errors.
var (
	ErrNotConfigured = errors.New("radio not configured")
	ErrNotStarted    = errors.New("radio not started")
	ErrAssociation   = errors.New("association failed")
)

// HostRadio is a Radio for hosts whose network is managed by the operating
// system. Association always succeeds unless failures are injected, and the
// link flag of the attached stack follows the association state.
type HostRadio struct {
	link LinkSetter

	mu           sync.Mutex
	config       *ClientConfig
	started      bool
	connected    bool
	disconnected chan struct{}

	startErr     error
	failConnects int
}

// NewHostRadio returns a HostRadio that drives link.
func NewHostRadio(link LinkSetter) *HostRadio {
	return &HostRadio{
		link:         link,
		disconnected: make(chan struct{}),
	}
}

// Capabilities implements Radio.
func (r *HostRadio) Capabilities() []string {
	return []string{"sta"}
}

// IsStarted implements Radio.
func (r *HostRadio) IsStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// SetConfiguration implements Radio.
func (r *HostRadio) SetConfiguration(cfg ClientConfig) error {
	if cfg.SSID == "" {
		return fmt.Errorf("%w: empty network name", ErrNotConfigured)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = &cfg
	return nil
}

// Start implements Radio.
func (r *HostRadio) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config == nil {
		return ErrNotConfigured
	}
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return ctx.Err()
}

// Connect implements Radio.
func (r *HostRadio) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return ErrNotStarted
	}
	if r.failConnects > 0 {
		r.failConnects--
		return fmt.Errorf("%w: %s", ErrAssociation, r.config.SSID)
	}
	if r.connected {
		return nil
	}

	r.connected = true
	r.disconnected = make(chan struct{})
	r.link.SetLinkUp(true)
	return nil
}

// IsConnected implements Radio.
func (r *HostRadio) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// WaitForDisconnect implements Radio.
func (r *HostRadio) WaitForDisconnect(ctx context.Context) error {
	r.mu.Lock()
	ch := r.disconnected
	connected := r.connected
	r.mu.Unlock()

	if !connected {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disassociate drops the association, lowering the link.
func (r *HostRadio) Disassociate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return
	}
	r.connected = false
	r.link.SetLinkUp(false)
	close(r.disconnected)
}

// FailStart makes the next Start calls return err.
func (r *HostRadio) FailStart(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErr = err
}

// FailConnects makes the next n Connect calls fail.
func (r *HostRadio) FailConnects(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failConnects = n
}
