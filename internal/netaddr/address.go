// Package netaddr parses the controller's static IPv4 address.
//
// The address is read once at startup from a dotted-quad string. Only the
// canonical form is accepted (four decimal octets in [0,255], no leading
// zeros, no surrounding whitespace) so that formatting a parsed address
// always reproduces the configured string.
package netaddr

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrMalformedAddress is returned for any string that is not a canonical dotted quad.
var ErrMalformedAddress = errors.New("malformed IPv4 address")

// Address is a static IPv4 device address.
type Address [4]byte

// Parse parses a canonical dotted-quad string.
func Parse(s string) (Address, error) {
	var addr Address

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return addr, fmt.Errorf("%w: %q has %d parts (expected 4)", ErrMalformedAddress, s, len(parts))
	}

	for i, part := range parts {
		octet, err := parseOctet(part)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %q octet %d: %v", ErrMalformedAddress, s, i+1, err)
		}
		addr[i] = octet
	}

	return addr, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Address {
	addr, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func parseOctet(s string) (byte, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	if len(s) > 3 {
		return 0, errors.New("too long")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, errors.New("leading zero")
	}

	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character %q", c)
		}
		n = n*10 + int(c-'0')
	}
	if n > 255 {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return byte(n), nil
}

// String formats the address as a dotted quad.
func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// IP returns the address as a net.IP.
func (a Address) IP() net.IP {
	return net.IPv4(a[0], a[1], a[2], a[3])
}

// Prefix returns the address with a CIDR suffix, e.g. "192.168.1.50/24".
func (a Address) Prefix(bits int) string {
	return fmt.Sprintf("%s/%d", a, bits)
}

// IsUnspecified reports whether the address is 0.0.0.0.
func (a Address) IsUnspecified() bool {
	return a == Address{}
}
