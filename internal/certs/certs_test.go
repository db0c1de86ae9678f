package certs

import (
	"crypto/x509"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestMaterial(t *testing.T) *Material {
	t.Helper()
	params := DefaultParams(net.IPv4(192, 168, 1, 50))
	params.KeyBits = 1024
	m, err := Generate(params)
	require.NoError(t, err)
	return m
}

func TestGenerate(t *testing.T) {
	m := generateTestMaterial(t)

	cert := m.Certificate
	assert.Equal(t, "smartlock", cert.Subject.CommonName)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "192.168.1.50", cert.IPAddresses[0].String())
	assert.Contains(t, cert.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.False(t, cert.IsCA)

	// Self-signed: the certificate verifies against itself.
	assert.NoError(t, cert.CheckSignatureFrom(cert))

	_, err := m.TLSCertificate()
	assert.NoError(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	m := generateTestMaterial(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.NoError(t, m.Save(certPath, keyPath))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, m.Fingerprint(), loaded.Fingerprint())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.pem"), filepath.Join(dir, "missing-key.pem"))
	var certErr *CertificateError
	require.ErrorAs(t, err, &certErr)
	assert.Equal(t, "load", certErr.Operation)

	bogus := filepath.Join(dir, "bogus.pem")
	require.NoError(t, os.WriteFile(bogus, []byte("not pem"), 0600))
	_, err = Load(bogus, bogus)
	require.ErrorAs(t, err, &certErr)
	assert.Equal(t, "decode", certErr.Operation)
}

func TestFingerprintFormat(t *testing.T) {
	fp := Fingerprint([]byte("abc"))
	assert.Len(t, fp, 32*2+31)
	assert.Equal(t, "BA:78:16:BF", fp[:11])
	assert.Equal(t, NormalizeFingerprint(fp), NormalizeFingerprint("ba7816bf"+NormalizeFingerprint(fp)[8:]))
}
