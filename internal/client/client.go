// Package client sends lock, unlock and status requests to a controller.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muurk/smartlock/internal/certs"
	"github.com/muurk/smartlock/internal/control"
	"github.com/muurk/smartlock/internal/lockstate"
	"github.com/muurk/smartlock/internal/render"
)

const (
	// DefaultTimeout is the default request timeout. The controller holds
	// every connection open for a grace period after answering, so this
	// is well above the round trip.
	DefaultTimeout = 10 * time.Second

	maxPageSize = 64 << 10
)

// Options configures certificate trust.
type Options struct {
	// Fingerprint pins the controller certificate by SHA-256 fingerprint.
	Fingerprint string
	// Insecure accepts any certificate. Ignored when Fingerprint is set.
	Insecure bool
	Timeout  time.Duration
}

// Result is what the controller page reported.
type Result struct {
	State lockstate.State
	// BadCredential is set when the page carries the wrong-password marker.
	BadCredential bool
}

// Client talks to one controller.
type Client struct {
	// BaseURL is the controller URL (e.g., "https://192.168.1.50")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL with the trust settings in opts.
func NewClient(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	switch {
	case opts.Fingerprint != "":
		want := certs.NormalizeFingerprint(opts.Fingerprint)
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return ErrFingerprintMismatch
			}
			if got := certs.NormalizeFingerprint(certs.Fingerprint(rawCerts[0])); got != want {
				return fmt.Errorf("%w: got %s", ErrFingerprintMismatch, certs.Fingerprint(rawCerts[0]))
			}
			return nil
		}
	case opts.Insecure:
		tlsConfig.InsecureSkipVerify = true
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:   tlsConfig,
				DisableKeepAlives: true,
			},
		},
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Lock asks the controller to lock.
func (c *Client) Lock(ctx context.Context, password string) (*Result, error) {
	return c.toggle(ctx, control.LockToken, password)
}

// Unlock asks the controller to unlock.
func (c *Client) Unlock(ctx context.Context, password string) (*Result, error) {
	return c.toggle(ctx, control.UnlockToken, password)
}

// Status fetches the current page without changing anything.
func (c *Client) Status(ctx context.Context) (*Result, error) {
	return c.get(ctx, "/", "")
}

func (c *Client) toggle(ctx context.Context, token, password string) (*Result, error) {
	if password == "" || strings.ContainsFunc(password, isUnsafe) {
		return nil, &ControllerError{
			Type:    ErrTypeValidation,
			Message: "password must be non-empty and contain no whitespace or control characters",
		}
	}

	path, query, _ := strings.Cut(token, "?")
	res, err := c.get(ctx, path, query+password)
	if err != nil {
		return nil, err
	}
	if res.BadCredential {
		return res, &ControllerError{Type: ErrTypeCredential, Message: "Controller rejected the password"}
	}
	return res, nil
}

// get requests path with rawQuery sent verbatim. The controller does not
// decode the query, so it must not be escaped here.
func (c *Client) get(ctx context.Context, path, rawQuery string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return nil, &ControllerError{Type: ErrTypeValidation, Message: "invalid controller URL", Err: err}
	}
	req.URL.Path = path
	req.URL.RawPath = ""
	req.URL.RawQuery = rawQuery

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ControllerError{
			Type:       ErrTypeHTTP,
			Message:    fmt.Sprintf("unexpected status %s", resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil && len(body) == 0 {
		return nil, ClassifyNetworkError(err)
	}

	state, bad, err := render.ParseDocument(body)
	if err != nil {
		return nil, &ControllerError{Type: ErrTypeParse, Message: "response is not a controller page", Err: err}
	}
	return &Result{State: state, BadCredential: bad}, nil
}

func isUnsafe(r rune) bool {
	return r <= ' ' || r == 0x7f
}
