// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package certs

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"fmt"
)

// createTestCertificate re-signs an x509 template with the given PKCS#8 key.
func createTestCertificate(template *x509.Certificate, key interface{}) ([]byte, error) {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("key %T is no crypto.Signer", key)
	}

	return x509.CreateCertificate(rand.Reader, template, template, signer.Public(), signer)
}
