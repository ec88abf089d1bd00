// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package certs

import (
	"crypto/x509"
	"errors"
	"regexp"
	"testing"
	"time"
)

// Generating RSA keys is slow; share one Certificate across tests.
var testCert *Certificate

func testCertificate(t *testing.T) *Certificate {
	if testCert == nil {
		c, err := Generate("alice-laptop")
		if err != nil {
			t.Fatal(err)
		}
		testCert = c
	}
	return testCert
}

func TestGenerate(t *testing.T) {
	c := testCertificate(t)

	if c.DeviceID != "alice-laptop" {
		t.Fatalf("device id mismatch: %s", c.DeviceID)
	}

	parsed, err := x509.ParseCertificate(c.CertDER)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.Subject.CommonName != "alice-laptop" {
		t.Fatalf("CN mismatch: %s", parsed.Subject.CommonName)
	}
	if len(parsed.Subject.Organization) != 1 || parsed.Subject.Organization[0] != "KDE" {
		t.Fatalf("O mismatch: %v", parsed.Subject.Organization)
	}
	if len(parsed.Subject.OrganizationalUnit) != 1 || parsed.Subject.OrganizationalUnit[0] != "Kde connect" {
		t.Fatalf("OU mismatch: %v", parsed.Subject.OrganizationalUnit)
	}

	if years := parsed.NotAfter.Sub(parsed.NotBefore) / (365 * 24 * time.Hour); years < 9 || years > 11 {
		t.Fatalf("validity window is no ten years: %v - %v", parsed.NotBefore, parsed.NotAfter)
	}

	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestFingerprint(t *testing.T) {
	c := testCertificate(t)

	fp := c.Fingerprint()

	// 32 bytes -> 64 hex chars plus 31 colons.
	if matched := regexp.MustCompile(`^([0-9a-f]{2}:){31}[0-9a-f]{2}$`).MatchString(fp); !matched {
		t.Fatalf("fingerprint has unexpected format: %s", fp)
	}

	if fp != Fingerprint(c.CertDER) {
		t.Fatal("fingerprint is not deterministic")
	}

	// Flipping any byte must change the fingerprint.
	altered := append([]byte(nil), c.CertDER...)
	altered[len(altered)/2] ^= 0xff
	if Fingerprint(altered) == fp {
		t.Fatal("fingerprint ignored an altered byte")
	}
}

func TestValidateExpired(t *testing.T) {
	c := testCertificate(t)

	expired := &Certificate{DeviceID: c.DeviceID, KeyDER: c.KeyDER}

	// Re-sign with a validity window in the past.
	key, err := x509.ParsePKCS8PrivateKey(c.KeyDER)
	if err != nil {
		t.Fatal(err)
	}
	template, err := x509.ParseCertificate(c.CertDER)
	if err != nil {
		t.Fatal(err)
	}
	template.NotBefore = time.Now().AddDate(-2, 0, 0)
	template.NotAfter = time.Now().AddDate(-1, 0, 0)

	expired.CertDER, err = createTestCertificate(template, key)
	if err != nil {
		t.Fatal(err)
	}

	if err := expired.Validate(); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestValidateMalformed(t *testing.T) {
	c := &Certificate{DeviceID: "x", CertDER: []byte("no der at all")}

	if err := c.Validate(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}

	var certErr *CertificateError
	if err := c.Validate(); !errors.As(err, &certErr) {
		t.Fatalf("expected a CertificateError, got %v", err)
	}
}
