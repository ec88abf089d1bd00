// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Distinguished Name values fixed by the protocol for interoperability.
// Only the CommonName varies, carrying the device id.
const (
	dnOrganization     = "KDE"
	dnOrganizationUnit = "Kde connect"
)

// Validity window of generated certificates. NotBefore is backdated to
// tolerate peers with skewed clocks.
const (
	validityYears     = 10
	notBeforeBackdate = time.Hour
)

const rsaKeyBits = 2048

// Error reasons wrapped inside a CertificateError.
var (
	ErrExpired        = errors.New("certificate is outside its validity window")
	ErrUnsupportedKey = errors.New("certificate key is no RSA key of at least 2048 bits")
	ErrMalformed      = errors.New("malformed certificate or key encoding")
)

// CertificateError describes a failed certificate operation. The wrapped
// reason is one of the Err variables above or an underlying crypto error.
type CertificateError struct {
	Op    string
	Cause error
}

func (err *CertificateError) Error() string {
	return fmt.Sprintf("certificate %s failed: %v", err.Op, err.Cause)
}

func (err *CertificateError) Unwrap() error {
	return err.Cause
}

// Certificate is a device's self-signed identity certificate together with
// its private key, both DER-encoded. The fingerprint is always recomputed
// from the certificate bytes, never cached, so it cannot desync.
type Certificate struct {
	DeviceID string

	// CertDER is the DER-encoded X.509 certificate.
	CertDER []byte

	// KeyDER is the DER-encoded PKCS#8 private key.
	KeyDER []byte

	NotBefore time.Time
	NotAfter  time.Time
}

// Generate a fresh self-signed RSA-2048 certificate for the given device id,
// valid for ten years.
func Generate(deviceId string) (*Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, &CertificateError{Op: "key generation", Cause: err}
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, &CertificateError{Op: "serial generation", Cause: err}
	}

	notBefore := time.Now().Add(-notBeforeBackdate)
	notAfter := notBefore.AddDate(validityYears, 0, 0)

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:         deviceId,
			Organization:       []string{dnOrganization},
			OrganizationalUnit: []string{dnOrganizationUnit},
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, &CertificateError{Op: "generation", Cause: err}
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, &CertificateError{Op: "key encoding", Cause: err}
	}

	return &Certificate{
		DeviceID:  deviceId,
		CertDER:   certDER,
		KeyDER:    keyDER,
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}, nil
}

// Fingerprint computes the SHA-256 digest of the DER-encoded certificate as
// a colon-separated hex string, e.g., "ab:cd:...". Deterministic for
// identical DER bytes.
func Fingerprint(certDER []byte) string {
	return FormatFingerprint(sha256.Sum256(certDER))
}

// FormatFingerprint renders a SHA-256 digest in the colon-hex notation.
func FormatFingerprint(digest [sha256.Size]byte) string {
	parts := make([]string, len(digest))
	for i, b := range digest {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, ":")
}

// Fingerprint of this Certificate, recomputed from its DER bytes.
func (c *Certificate) Fingerprint() string {
	return Fingerprint(c.CertDER)
}

// Validate checks that the certificate parses, is within its validity
// window and carries an RSA key of sufficient size.
func (c *Certificate) Validate() error {
	parsed, err := x509.ParseCertificate(c.CertDER)
	if err != nil {
		return &CertificateError{Op: "validation", Cause: ErrMalformed}
	}

	now := time.Now()
	if now.Before(parsed.NotBefore) || now.After(parsed.NotAfter) {
		return &CertificateError{Op: "validation", Cause: ErrExpired}
	}

	pub, ok := parsed.PublicKey.(*rsa.PublicKey)
	if !ok || pub.Size()*8 < rsaKeyBits {
		return &CertificateError{Op: "validation", Cause: ErrUnsupportedKey}
	}

	return nil
}
