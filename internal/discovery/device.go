package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Controller represents a discovered lock controller on the network
type Controller struct {
	// Instance is the advertised instance name (e.g., "front-door")
	Instance string

	// Hostname is the mDNS hostname (e.g., "smartlock.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 address was announced
	IP string

	// Port is the control port (typically 443)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "path=/", "version=1.2.0"
	Metadata map[string]string

	// DiscoveredAt is when the controller was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the controller
func (c *Controller) String() string {
	return fmt.Sprintf("smartlock %s (%s) at %s", c.Instance, c.Hostname, net.JoinHostPort(c.IP, strconv.Itoa(c.Port)))
}

// BaseURL returns the HTTPS base URL for the controller
func (c *Controller) BaseURL() string {
	if c.Port == DefaultPort {
		host := c.IP
		if ip := net.ParseIP(c.IP); ip != nil && ip.To4() == nil {
			host = "[" + c.IP + "]"
		}
		return "https://" + host
	}
	return "https://" + net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (c *Controller) GetMetadata(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}
