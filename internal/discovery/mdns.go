package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type lock controllers advertise
	ServiceType = "_smartlock._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the control port when an entry carries none
	DefaultPort = 443
)

// Scanner handles mDNS controller discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
	Service string
	Domain  string
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Service: ServiceType,
		Domain:  ServiceDomain,
	}
}

// Scan browses until the timeout or ctx ends and returns every controller
// that answered, deduplicated by instance name.
func (s *Scanner) Scan(ctx context.Context) ([]*Controller, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu          sync.Mutex
		controllers []*Controller
		seen        = make(map[string]bool)
	)

	err := s.browse(ctx, func(c *Controller) bool {
		mu.Lock()
		defer mu.Unlock()
		if !seen[c.Instance] {
			seen[c.Instance] = true
			controllers = append(controllers, c)
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Controller(nil), controllers...), nil
}

// WaitFor returns the first controller advertising instance.
func (s *Scanner) WaitFor(ctx context.Context, instance string) (*Controller, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(chan *Controller, 1)
	err := s.browse(ctx, func(c *Controller) bool {
		if !strings.EqualFold(c.Instance, instance) {
			return false
		}
		select {
		case found <- c:
		default:
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	select {
	case c := <-found:
		return c, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("controller %q not found within %s", instance, s.Timeout)
	}
}

// browse feeds parsed entries to fn until ctx ends or fn returns true.
func (s *Scanner) browse(ctx context.Context, fn func(*Controller) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if c := parseServiceEntry(entry); c != nil && fn(c) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, s.Service, s.Domain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Controller.
// Returns nil if the entry carries no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Controller {
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Controller{
		Instance:     unescapeInstance(entry.Instance),
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     parseTXT(entry.Text),
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" TXT strings. A bare key maps to "".
func parseTXT(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// unescapeInstance removes DNS label escaping such as "front\ door".
func unescapeInstance(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}
