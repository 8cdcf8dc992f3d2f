package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(t *testing.T, validity time.Duration) (*Generator, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err, "Failed to generate Ed25519 key pair")
	return NewGenerator(Config{PrivateKey: priv, CertValidityPeriod: validity}), pub
}

func TestGenerateCertificate(t *testing.T) {
	generator, pub := newGenerator(t, 24*time.Hour)

	cert, err := generator.GenerateCertificate()
	require.NoError(t, err, "Failed to generate certificate")

	assert.Equal(t, []string{EncodePubKeyToDNS(pub)}, cert.Leaf.DNSNames)
	assert.Len(t, cert.Leaf.DNSNames[0], 53)
	assert.Equal(t, x509.PureEd25519, cert.Leaf.SignatureAlgorithm)

	extracted, err := NewValidator().ExtractPublicKey(cert.Leaf)
	require.NoError(t, err)
	assert.Equal(t, pub, extracted)
}

func TestValidateCertificate(t *testing.T) {
	generator, _ := newGenerator(t, 24*time.Hour)
	cert, err := generator.GenerateCertificate()
	require.NoError(t, err)

	assert.NoError(t, NewValidator().ValidateCertificate(cert.Leaf))
}

func TestValidateCertificateMismatchedKey(t *testing.T) {
	generator, _ := newGenerator(t, 24*time.Hour)
	other, _ := newGenerator(t, 24*time.Hour)

	cert, err := generator.GenerateCertificate()
	require.NoError(t, err)
	otherCert, err := other.GenerateCertificate()
	require.NoError(t, err)

	// Present one key under the other key's name
	cert.Leaf.DNSNames = otherCert.Leaf.DNSNames
	assert.ErrorIs(t, NewValidator().ValidateCertificate(cert.Leaf), ErrDNSName)
}

func TestValidateCertificateExpired(t *testing.T) {
	generator, _ := newGenerator(t, time.Hour)
	cert, err := generator.GenerateCertificate()
	require.NoError(t, err)

	validator := NewValidator()
	validator.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, validator.ValidateCertificate(cert.Leaf), ErrExpired)

	validator.now = func() time.Time { return time.Now().Add(-time.Hour) }
	assert.ErrorIs(t, validator.ValidateCertificate(cert.Leaf), ErrNotYetValid)
}

func TestValidateCertificateForeignName(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test.example.com"},
		DNSNames:     []string{"test.example.com"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	// Signed with Ed25519 but named like an ordinary host
	assert.ErrorIs(t, NewValidator().ValidateCertificate(cert), ErrDNSName)
}
