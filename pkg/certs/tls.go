// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
)

// TLSCertificate converts this Certificate into a tls.Certificate usable
// for both TLS roles.
func (c *Certificate) TLSCertificate() (tls.Certificate, error) {
	key, err := parsePKCS8(c.KeyDER)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{c.CertDER},
		PrivateKey:  key,
	}, nil
}

// ServerTLSConfig builds a trust-on-first-use TLS server configuration.
// Any structurally valid client certificate is accepted during the
// cryptographic handshake; trust is decided afterwards from the peer's
// fingerprint by the pairing layer.
func (c *Certificate) ServerTLSConfig() (*tls.Config, error) {
	tlsCert, err := c.TLSCertificate()
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		ClientAuth:   tls.RequireAnyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientTLSConfig builds the matching trust-on-first-use TLS client
// configuration. Verification is disabled at the TLS layer since all
// certificates are self-signed.
func (c *Certificate) ClientTLSConfig() (*tls.Config, error) {
	tlsCert, err := c.TLSCertificate()
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{tlsCert},
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
	}, nil
}

// PeerFingerprint extracts the colon-hex SHA-256 fingerprint of the peer's
// leaf certificate from an established TLS connection state.
func PeerFingerprint(state tls.ConnectionState) (string, error) {
	if len(state.PeerCertificates) == 0 {
		return "", &CertificateError{Op: "fingerprinting", Cause: errors.New("peer presented no certificate")}
	}

	return Fingerprint(state.PeerCertificates[0].Raw), nil
}

func parsePKCS8(keyDER []byte) (interface{}, error) {
	key, err := x509.ParsePKCS8PrivateKey(keyDER)
	if err != nil {
		return nil, &CertificateError{Op: "key parsing", Cause: ErrMalformed}
	}
	return key, nil
}
