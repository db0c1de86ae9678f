// Package certs provides the TLS key material for the control endpoint.
//
// Material is either loaded from PEM files or generated in memory as a
// self-signed server certificate whose subject alternative names carry the
// controller's static address. Browsers will warn about the self-signed
// certificate until the operator adds an exception.
package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"
	"time"
)

// CertificateError describes a failed certificate operation.
type CertificateError struct {
	Operation string
	Path      string
	Err       error
}

func (e *CertificateError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("certificate %s failed for %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("certificate %s failed: %v", e.Operation, e.Err)
}

func (e *CertificateError) Unwrap() error {
	return e.Err
}

// Params holds parameters for generating a self-signed server certificate.
type Params struct {
	// CommonName is the CN field (default: smartlock)
	CommonName   string
	Organization string
	// IPs are placed in the IP SANs; the device address belongs here.
	IPs []net.IP
	// DNSNames are placed in the DNS SANs.
	DNSNames []string
	// ValidDays is certificate validity in days (default: 730)
	ValidDays int
	// KeyBits is the RSA key size (default: 2048)
	KeyBits int
}

// DefaultParams returns Params for a device reachable at ip.
func DefaultParams(ip net.IP) Params {
	return Params{
		CommonName:   "smartlock",
		Organization: "smartlock",
		IPs:          []net.IP{ip},
		DNSNames:     []string{"smartlock.local"},
		ValidDays:    730,
		KeyBits:      2048,
	}
}

// Material is a server certificate and its key.
type Material struct {
	CertPEM     []byte
	KeyPEM      []byte
	Certificate *x509.Certificate
}

// TLSCertificate returns the material as a tls.Certificate.
func (m *Material) TLSCertificate() (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(m.CertPEM, m.KeyPEM)
	if err != nil {
		return tls.Certificate{}, &CertificateError{Operation: "load", Err: err}
	}
	return cert, nil
}

// Fingerprint returns the colon-separated SHA-256 fingerprint of the certificate.
func (m *Material) Fingerprint() string {
	return Fingerprint(m.Certificate.Raw)
}

// Fingerprint formats the SHA-256 digest of a DER certificate.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	return strings.Join(parts, ":")
}

// NormalizeFingerprint strips separators and case so user input can be compared.
func NormalizeFingerprint(fp string) string {
	fp = strings.ReplaceAll(fp, ":", "")
	fp = strings.ReplaceAll(fp, " ", "")
	return strings.ToUpper(fp)
}

// Load reads a PEM certificate and key from disk.
func Load(certPath, keyPath string) (*Material, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, &CertificateError{Operation: "load", Path: certPath, Err: err}
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &CertificateError{Operation: "load", Path: keyPath, Err: err}
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, &CertificateError{Operation: "decode", Path: certPath, Err: fmt.Errorf("not a PEM certificate")}
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, &CertificateError{Operation: "parse", Path: certPath, Err: err}
	}

	m := &Material{CertPEM: certPEM, KeyPEM: keyPEM, Certificate: cert}
	if _, err := m.TLSCertificate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Generate creates a self-signed server certificate.
func Generate(params Params) (*Material, error) {
	if params.KeyBits == 0 {
		params.KeyBits = 2048
	}
	if params.ValidDays == 0 {
		params.ValidDays = 730
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, params.KeyBits)
	if err != nil {
		return nil, &CertificateError{Operation: "generate_key", Err: err}
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, &CertificateError{Operation: "generate_serial", Err: err}
	}

	notBefore := time.Now().Add(-time.Hour)
	notAfter := notBefore.AddDate(0, 0, params.ValidDays)

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{params.Organization},
			CommonName:   params.CommonName,
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,

		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},

		IPAddresses: params.IPs,
		DNSNames:    params.DNSNames,

		BasicConstraintsValid: true,
		IsCA:                  false,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, &CertificateError{Operation: "create_certificate", Err: err}
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, &CertificateError{Operation: "parse_certificate", Err: err}
	}

	return &Material{
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		KeyPEM: pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
		}),
		Certificate: cert,
	}, nil
}

// Save writes the material to certPath and keyPath. The key is written 0600.
func (m *Material) Save(certPath, keyPath string) error {
	if err := os.WriteFile(certPath, m.CertPEM, 0644); err != nil {
		return &CertificateError{Operation: "save", Path: certPath, Err: err}
	}
	if err := os.WriteFile(keyPath, m.KeyPEM, 0600); err != nil {
		return &CertificateError{Operation: "save", Path: keyPath, Err: err}
	}
	return nil
}
