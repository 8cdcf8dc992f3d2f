// Package cert issues and checks the self-signed Ed25519 certificates that
// identify raffle peers. The peer's public key is carried in the single DNS
// name of the certificate.
package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// DNSNamePrefix is prepended to all encoded public keys in certificate DNS names
const DNSNamePrefix = "r"

// dnsNameLength is the prefix plus 52 base32 characters for a 32 byte key.
const dnsNameLength = 53

var (
	ErrSignatureAlgorithm = errors.New("invalid signature algorithm: expected Ed25519")
	ErrNotEd25519         = errors.New("certificate public key is not Ed25519")
	ErrDNSName            = errors.New("invalid DNS name")
	ErrNotYetValid        = errors.New("certificate is not yet valid")
	ErrExpired            = errors.New("certificate has expired")
)

// base32Encoding defines the custom base32 alphabet used for encoding public keys
var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Config contains the parameters needed for certificate generation.
type Config struct {
	PrivateKey ed25519.PrivateKey
	// CertValidityPeriod defines how long the certificate remains valid
	CertValidityPeriod time.Duration
}

// Generator creates TLS certificates with Ed25519 keys and encoded DNS names.
type Generator struct {
	config Config
	now    func() time.Time
}

func NewGenerator(config Config) *Generator {
	return &Generator{config: config, now: time.Now}
}

// GenerateCertificate creates a new self-signed certificate usable for both
// server and client authentication.
func (g *Generator) GenerateCertificate() (*tls.Certificate, error) {
	pub, ok := g.config.PrivateKey.Public().(ed25519.PublicKey)
	if !ok {
		return nil, ErrNotEd25519
	}
	dnsName := EncodePubKeyToDNS(pub)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := g.now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: dnsName,
		},
		DNSNames:  []string{dnsName},
		NotBefore: now.Add(-time.Minute),
		NotAfter:  now.Add(g.config.CertValidityPeriod),
		KeyUsage:  x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		SignatureAlgorithm:    x509.PureEd25519,
		PublicKeyAlgorithm:    x509.Ed25519,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, pub, g.config.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  g.config.PrivateKey,
		Leaf:        cert,
	}, nil
}

// Validator checks peer certificates. It implements transport.CertValidator.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// ValidateCertificate requires an Ed25519 signature, exactly one DNS name
// that encodes the certificate key, and a current validity period.
func (v *Validator) ValidateCertificate(cert *x509.Certificate) error {
	if cert.SignatureAlgorithm != x509.PureEd25519 {
		return ErrSignatureAlgorithm
	}
	pubKey, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return ErrNotEd25519
	}

	if len(cert.DNSNames) != 1 {
		return fmt.Errorf("%w: certificate must have exactly one DNS name", ErrDNSName)
	}
	dnsName := cert.DNSNames[0]
	if len(dnsName) != dnsNameLength || !strings.HasPrefix(dnsName, DNSNamePrefix) {
		return fmt.Errorf("%w: %s (length: %d)", ErrDNSName, dnsName, len(dnsName))
	}
	if dnsName != EncodePubKeyToDNS(pubKey) {
		return fmt.Errorf("%w: does not match public key", ErrDNSName)
	}

	now := v.now()
	if now.Before(cert.NotBefore) {
		return ErrNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrExpired
	}
	return nil
}

// ExtractPublicKey retrieves the Ed25519 public key from a certificate.
func (v *Validator) ExtractPublicKey(cert *x509.Certificate) (ed25519.PublicKey, error) {
	pubKey, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return nil, ErrNotEd25519
	}
	return pubKey, nil
}

// EncodePubKeyToDNS encodes an Ed25519 public key into a DNS name.
// The format is: "r" + base32(pubKey) with custom alphabet.
func EncodePubKeyToDNS(pubKey ed25519.PublicKey) string {
	return DNSNamePrefix + base32Encoding.EncodeToString(pubKey)
}
