// Package netstack is the host network stack the controller serves on.
//
// The Stack carries the device's static address and a link flag. The link
// flag is written by the Wi-Fi driver when association comes and goes and is
// read by the serving workers before they start accepting connections. The
// supervisor and the workers never talk to each other directly; the link
// flag is their only point of contact.
package netstack

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/muurk/smartlock/internal/netaddr"
)

// Config describes how the stack binds.
type Config struct {
	Address   netaddr.Address
	PrefixLen int
	// BindAny listens on all interfaces instead of the static address.
	// Used on development hosts that do not own the configured address.
	BindAny bool
}

// Stack is the network stack shared by the supervisor's driver and the workers.
type Stack struct {
	cfg    Config
	linkUp atomic.Bool
}

// New creates a stack with the link down.
func New(cfg Config) *Stack {
	if cfg.PrefixLen == 0 {
		cfg.PrefixLen = 24
	}
	return &Stack{cfg: cfg}
}

// Address returns the static device address.
func (s *Stack) Address() netaddr.Address {
	return s.cfg.Address
}

// CIDR returns the configured interface address with its prefix.
func (s *Stack) CIDR() string {
	return s.cfg.Address.Prefix(s.cfg.PrefixLen)
}

// LinkUp reports whether routable connectivity exists.
func (s *Stack) LinkUp() bool {
	return s.linkUp.Load()
}

// SetLinkUp is called by the radio driver on association changes.
func (s *Stack) SetLinkUp(up bool) {
	s.linkUp.Store(up)
}

// WaitLinkUp polls LinkUp every interval until it is true or ctx ends.
func (s *Stack) WaitLinkUp(ctx context.Context, interval time.Duration) error {
	if s.LinkUp() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.LinkUp() {
				return nil
			}
		}
	}
}

// ListenAddr returns the host:port the control listener binds to.
func (s *Stack) ListenAddr(port int) string {
	host := s.cfg.Address.String()
	if s.cfg.BindAny {
		host = ""
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Listen opens a TCP listener for the control port.
func (s *Stack) Listen(ctx context.Context, port int) (net.Listener, error) {
	var lc net.ListenConfig
	addr := s.ListenAddr(port)
	ln, err := lc.Listen(ctx, "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}
