// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pairing

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/timshannon/badgerhold"
)

// PairedDevice is one persisted peer record with its pinned certificate
// fingerprint.
type PairedDevice struct {
	DeviceID    string `badgerhold:"key"`
	DeviceName  string
	Fingerprint string

	// Trusted devices passed pairing; untrusted records are pending
	// pairing requests awaiting a decision.
	Trusted bool

	PairedAt time.Time
	LastSeen time.Time
}

// Store persists PairedDevices in a badger database below the given
// directory.
type Store struct {
	bh *badgerhold.Store
}

// NewStore creates a new Store or opens an existing one from the given path.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = log.StandardLogger()

	bh, err := badgerhold.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{bh: bh}, nil
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Put inserts or replaces a PairedDevice, keyed by its device id.
func (s *Store) Put(device PairedDevice) error {
	return s.bh.Upsert(device.DeviceID, device)
}

// Device returns the record for a device id, or badgerhold.ErrNotFound.
func (s *Store) Device(deviceId string) (device PairedDevice, err error) {
	err = s.bh.Get(deviceId, &device)
	return
}

// KnowsDevice reports if a record for this device id exists.
func (s *Store) KnowsDevice(deviceId string) bool {
	_, err := s.Device(deviceId)
	return err != badgerhold.ErrNotFound
}

// Devices returns all records, trusted and pending alike.
func (s *Store) Devices() (devices []PairedDevice, err error) {
	err = s.bh.Find(&devices, nil)
	return
}

// TrustedDevices returns all records that passed pairing.
func (s *Store) TrustedDevices() (devices []PairedDevice, err error) {
	err = s.bh.Find(&devices, badgerhold.Where("Trusted").Eq(true))
	return
}

// Delete the record for a device id. Unknown ids are a no-op.
func (s *Store) Delete(deviceId string) error {
	err := s.bh.Delete(deviceId, PairedDevice{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	return err
}
