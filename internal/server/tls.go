package server

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// Client authentication modes accepted by ParseClientAuth.
const (
	ClientAuthNone    = "none"
	ClientAuthRequest = "request"
	ClientAuthRequire = "require"
)

// ParseClientAuth maps a configuration value onto a tls.ClientAuthType.
func ParseClientAuth(mode string) (tls.ClientAuthType, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ClientAuthNone:
		return tls.NoClientCert, nil
	case ClientAuthRequest:
		return tls.RequestClientCert, nil
	case ClientAuthRequire:
		return tls.RequireAnyClientCert, nil
	default:
		return tls.NoClientCert, fmt.Errorf("unknown client auth mode %q (want none, request or require)", mode)
	}
}

// NewTLSConfig creates the shared TLS context for every session.
// The certificate is loaded once and never changes while serving.
func NewTLSConfig(cert tls.Certificate, clientAuth tls.ClientAuthType) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		ClientAuth:   clientAuth,
		// Every connection performs a full handshake.
		SessionTicketsDisabled: true,
	}
}

// GetTLSInfo returns human-readable TLS configuration information
func GetTLSInfo(config *tls.Config) map[string]interface{} {
	return map[string]interface{}{
		"min_version":     tls.VersionName(config.MinVersion),
		"client_auth":     config.ClientAuth.String(),
		"num_certs":       len(config.Certificates),
		"session_tickets": !config.SessionTicketsDisabled,
	}
}
