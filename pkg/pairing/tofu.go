// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pairing

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/timshannon/badgerhold"
)

// Decision is the outcome of a trust check after a completed handshake.
type Decision uint

const (
	// DecisionTrusted allows the session; the device is paired and its
	// fingerprint matches the pinned one.
	DecisionTrusted Decision = iota

	// DecisionPending defers the session until someone accepts or rejects
	// the pairing request.
	DecisionPending

	// DecisionRejected refuses the session.
	DecisionRejected
)

func (decision Decision) String() string {
	switch decision {
	case DecisionTrusted:
		return "trusted"
	case DecisionPending:
		return "pending"
	case DecisionRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// FingerprintMismatchError reports a paired device presenting a different
// certificate than the pinned one. Distinct from generic TLS errors so
// callers can prompt for explicit re-pairing instead of retrying.
type FingerprintMismatchError struct {
	DeviceID string
	Pinned   string
	Observed string
}

func (err *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("device %s presented fingerprint %s, but %s is pinned",
		err.DeviceID, err.Observed, err.Pinned)
}

// Policy applies trust-on-first-use decisions against a Store. With
// autoAccept set, unknown devices are paired on first contact without a
// pending phase; useful for headless deployments, default off.
type Policy struct {
	store      *Store
	autoAccept bool
}

// NewPolicy for a Store.
func NewPolicy(store *Store, autoAccept bool) *Policy {
	return &Policy{
		store:      store,
		autoAccept: autoAccept,
	}
}

// Decide the fate of a handshaked session. The observed fingerprint is
// pinned when a device becomes trusted and compared on every later
// contact; a mismatch is returned as a FingerprintMismatchError next to
// DecisionRejected.
func (policy *Policy) Decide(deviceId, deviceName, fingerprint string) (Decision, error) {
	device, err := policy.store.Device(deviceId)

	if err == badgerhold.ErrNotFound {
		return policy.firstContact(deviceId, deviceName, fingerprint)
	} else if err != nil {
		return DecisionRejected, err
	}

	if device.Trusted {
		if device.Fingerprint != fingerprint {
			return DecisionRejected, &FingerprintMismatchError{
				DeviceID: deviceId,
				Pinned:   device.Fingerprint,
				Observed: fingerprint,
			}
		}

		device.DeviceName = deviceName
		device.LastSeen = time.Now()
		if err := policy.store.Put(device); err != nil {
			return DecisionRejected, err
		}

		return DecisionTrusted, nil
	}

	// A pending request is not pinned yet; track the latest observation.
	device.DeviceName = deviceName
	device.Fingerprint = fingerprint
	device.LastSeen = time.Now()
	if err := policy.store.Put(device); err != nil {
		return DecisionRejected, err
	}

	return DecisionPending, nil
}

func (policy *Policy) firstContact(deviceId, deviceName, fingerprint string) (Decision, error) {
	device := PairedDevice{
		DeviceID:    deviceId,
		DeviceName:  deviceName,
		Fingerprint: fingerprint,
		Trusted:     policy.autoAccept,
		LastSeen:    time.Now(),
	}

	if policy.autoAccept {
		device.PairedAt = time.Now()
	}

	if err := policy.store.Put(device); err != nil {
		return DecisionRejected, err
	}

	log.WithFields(log.Fields{
		"device":      deviceId,
		"name":        deviceName,
		"fingerprint": fingerprint,
		"autoAccept":  policy.autoAccept,
	}).Info("First contact with an unknown device")

	if policy.autoAccept {
		return DecisionTrusted, nil
	}
	return DecisionPending, nil
}

// Accept a pending pairing request, pinning its last observed fingerprint.
func (policy *Policy) Accept(deviceId string) error {
	device, err := policy.store.Device(deviceId)
	if err != nil {
		return err
	}

	if device.Trusted {
		return nil
	}

	device.Trusted = true
	device.PairedAt = time.Now()

	if err := policy.store.Put(device); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"device":      deviceId,
		"fingerprint": device.Fingerprint,
	}).Info("Accepted pairing request, fingerprint pinned")

	return nil
}

// Reject a pending pairing request or unpair a trusted device; the record
// is removed entirely, so the next contact is a first contact again.
func (policy *Policy) Reject(deviceId string) error {
	log.WithField("device", deviceId).Info("Removing device pairing")

	return policy.store.Delete(deviceId)
}
