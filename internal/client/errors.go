package client

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the controller did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing listens on the control port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeTLS indicates the certificate was not trusted or did not match the pin
	ErrTypeTLS
	// ErrTypeCredential indicates the controller rejected the password
	ErrTypeCredential
	// ErrTypeHTTP indicates an unexpected HTTP status
	ErrTypeHTTP
	// ErrTypeParse indicates the response was not a controller page
	ErrTypeParse
	// ErrTypeValidation indicates the request could not be built
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeTLS:
		return "TLS Error"
	case ErrTypeCredential:
		return "Wrong Password"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ControllerError represents an error that occurred while talking to a controller
type ControllerError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether repeating the request may succeed
}

// Error implements the error interface
func (e *ControllerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ControllerError) Unwrap() error {
	return e.Err
}

// ErrFingerprintMismatch is returned when a pinned certificate does not match.
var ErrFingerprintMismatch = errors.New("certificate fingerprint mismatch")

// ClassifyNetworkError analyzes a transport error and returns a ControllerError
func ClassifyNetworkError(err error) *ControllerError {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	switch {
	case errors.Is(err, ErrFingerprintMismatch):
		return &ControllerError{Type: ErrTypeTLS, Message: "Controller certificate does not match the pinned fingerprint", Err: err}
	case isCertificateError(err):
		return &ControllerError{Type: ErrTypeTLS, Message: "Controller certificate is not trusted (pin its fingerprint or use --insecure)", Err: err}
	case os.IsTimeout(err):
		return &ControllerError{Type: ErrTypeTimeout, Message: "Request timed out", Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ControllerError{Type: ErrTypeDNS, Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &ControllerError{Type: ErrTypeConnectionRefused, Message: "Controller refused connection", Err: err, Retryable: true}
	}
	if errors.Is(err, syscall.EHOSTUNREACH) {
		return &ControllerError{Type: ErrTypeNetwork, Message: "Host unreachable", Err: err, Retryable: true}
	}
	if errors.Is(err, syscall.ENETUNREACH) {
		return &ControllerError{Type: ErrTypeNetwork, Message: "Network unreachable", Err: err, Retryable: true}
	}

	return &ControllerError{Type: ErrTypeNetwork, Message: "Network error occurred", Err: err, Retryable: true}
}

func isCertificateError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var verify *tls.CertificateVerificationError
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verify)
}

// IsCredentialError checks if an error is a rejected password
func IsCredentialError(err error) bool {
	var ce *ControllerError
	return errors.As(err, &ce) && ce.Type == ErrTypeCredential
}

// IsTLSError checks if an error is a certificate trust failure
func IsTLSError(err error) bool {
	var ce *ControllerError
	return errors.As(err, &ce) && ce.Type == ErrTypeTLS
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var ce *ControllerError
	return errors.As(err, &ce) && ce.Retryable
}
