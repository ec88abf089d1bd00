// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package certs

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypePrivateKey  = "PRIVATE KEY"

	certFileName = "certificate.pem"
	keyFileName  = "privateKey.pem"
)

// Storage persists a device's Certificate. The default implementation is
// the PEM FileStorage below; platform secure storages implement the same
// contract.
type Storage interface {
	// Save a Certificate. Overwrites a previously saved one.
	Save(c *Certificate) error

	// Load the previously saved Certificate. An os.ErrNotExist-wrapping
	// error indicates that no Certificate was saved yet.
	Load() (*Certificate, error)
}

// FileStorage stores the certificate and its PKCS#8 private key as two PEM
// files inside one directory.
type FileStorage struct {
	Dir string
}

// NewFileStorage for the given directory, which is created if necessary.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &CertificateError{Op: "storage setup", Cause: err}
	}
	return &FileStorage{Dir: dir}, nil
}

func (fs *FileStorage) certPath() string {
	return filepath.Join(fs.Dir, certFileName)
}

func (fs *FileStorage) keyPath() string {
	return filepath.Join(fs.Dir, keyFileName)
}

// Save the Certificate as PEM files. The key file is only readable by the
// owning user.
func (fs *FileStorage) Save(c *Certificate) error {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: c.CertDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: c.KeyDER})

	if err := os.WriteFile(fs.certPath(), certPEM, 0644); err != nil {
		return &CertificateError{Op: "save", Cause: err}
	}
	if err := os.WriteFile(fs.keyPath(), keyPEM, 0600); err != nil {
		return &CertificateError{Op: "save", Cause: err}
	}

	log.WithFields(log.Fields{
		"device":      c.DeviceID,
		"certificate": fs.certPath(),
		"fingerprint": c.Fingerprint(),
	}).Info("Saved device certificate")

	return nil
}

// Load the Certificate from its PEM files. The device id is restored from
// the certificate's CommonName.
func (fs *FileStorage) Load() (*Certificate, error) {
	certDER, err := readPEM(fs.certPath(), pemTypeCertificate)
	if err != nil {
		return nil, err
	}

	keyDER, err := readPEM(fs.keyPath(), pemTypePrivateKey)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, &CertificateError{Op: "load", Cause: ErrMalformed}
	}

	if _, err := x509.ParsePKCS8PrivateKey(keyDER); err != nil {
		return nil, &CertificateError{Op: "load", Cause: ErrMalformed}
	}

	c := &Certificate{
		DeviceID:  parsed.Subject.CommonName,
		CertDER:   certDER,
		KeyDER:    keyDER,
		NotBefore: parsed.NotBefore,
		NotAfter:  parsed.NotAfter,
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func readPEM(path, pemType string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &CertificateError{Op: "load", Cause: err}
	}

	block, _ := pem.Decode(raw)
	if block == nil || block.Type != pemType {
		return nil, &CertificateError{Op: "load", Cause: ErrMalformed}
	}

	return block.Bytes, nil
}

// LoadOrGenerate loads the Certificate from the Storage, generating and
// saving a fresh one for the given device id if none exists yet.
func LoadOrGenerate(storage Storage, deviceId string) (*Certificate, error) {
	c, err := storage.Load()
	if err == nil {
		return c, nil
	}

	log.WithFields(log.Fields{
		"device": deviceId,
		"reason": err,
	}).Info("No stored device certificate, generating a fresh one")

	c, err = Generate(deviceId)
	if err != nil {
		return nil, err
	}

	if err := storage.Save(c); err != nil {
		return nil, err
	}

	return c, nil
}
