// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pairing

import (
	"errors"
	"testing"
)

func testStore(t *testing.T) *Store {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestPolicyFirstContactPending(t *testing.T) {
	policy := NewPolicy(testStore(t), false)

	decision, err := policy.Decide("bob-phone", "Bob's Phone", "AA:BB")
	if err != nil {
		t.Fatal(err)
	}
	if decision != DecisionPending {
		t.Fatalf("first contact decided %v", decision)
	}

	// Still pending on the next contact, even with a changed fingerprint;
	// nothing is pinned before acceptance.
	decision, err = policy.Decide("bob-phone", "Bob's Phone", "CC:DD")
	if err != nil {
		t.Fatal(err)
	}
	if decision != DecisionPending {
		t.Fatalf("second contact decided %v", decision)
	}
}

func TestPolicyAcceptPinsFingerprint(t *testing.T) {
	store := testStore(t)
	policy := NewPolicy(store, false)

	if _, err := policy.Decide("bob-phone", "Bob's Phone", "AA:BB"); err != nil {
		t.Fatal(err)
	}
	if err := policy.Accept("bob-phone"); err != nil {
		t.Fatal(err)
	}

	decision, err := policy.Decide("bob-phone", "Bob's Phone", "AA:BB")
	if err != nil {
		t.Fatal(err)
	}
	if decision != DecisionTrusted {
		t.Fatalf("paired device decided %v", decision)
	}

	device, err := store.Device("bob-phone")
	if err != nil {
		t.Fatal(err)
	}
	if !device.Trusted || device.Fingerprint != "AA:BB" || device.PairedAt.IsZero() {
		t.Fatalf("stored device is %+v", device)
	}
}

func TestPolicyFingerprintMismatch(t *testing.T) {
	policy := NewPolicy(testStore(t), true)

	if _, err := policy.Decide("bob-phone", "Bob's Phone", "AA:BB"); err != nil {
		t.Fatal(err)
	}

	decision, err := policy.Decide("bob-phone", "Bob's Phone", "EE:FF")
	if decision != DecisionRejected {
		t.Fatalf("changed fingerprint decided %v", decision)
	}

	var mismatchErr *FingerprintMismatchError
	if !errors.As(err, &mismatchErr) {
		t.Fatalf("expected a FingerprintMismatchError, got %v", err)
	}
	if mismatchErr.Pinned != "AA:BB" || mismatchErr.Observed != "EE:FF" {
		t.Fatalf("mismatch error is %+v", mismatchErr)
	}
}

func TestPolicyAutoAccept(t *testing.T) {
	policy := NewPolicy(testStore(t), true)

	decision, err := policy.Decide("bob-phone", "Bob's Phone", "AA:BB")
	if err != nil {
		t.Fatal(err)
	}
	if decision != DecisionTrusted {
		t.Fatalf("auto accepted first contact decided %v", decision)
	}
}

func TestPolicyReject(t *testing.T) {
	store := testStore(t)
	policy := NewPolicy(store, false)

	if _, err := policy.Decide("bob-phone", "Bob's Phone", "AA:BB"); err != nil {
		t.Fatal(err)
	}
	if err := policy.Reject("bob-phone"); err != nil {
		t.Fatal(err)
	}

	if store.KnowsDevice("bob-phone") {
		t.Fatal("rejected device is still stored")
	}

	// Rejecting an unknown device is a no-op.
	if err := policy.Reject("nobody"); err != nil {
		t.Fatal(err)
	}
}

func TestStorePersistence(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	policy := NewPolicy(store, true)
	if _, err := policy.Decide("bob-phone", "Bob's Phone", "AA:BB"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen; the pinned fingerprint must survive.
	store, err = NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	devices, err := store.TrustedDevices()
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 || devices[0].Fingerprint != "AA:BB" {
		t.Fatalf("reopened store holds %+v", devices)
	}
}
