// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import "testing"

func TestShouldInitiateConnection(t *testing.T) {
	ids := []string{
		"alice-laptop", "bob-phone", "0000", "zzzz",
		"a", "aa", "A", "_device", "device-23",
	}

	// For all pairs of distinct ids, exactly one side initiates.
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}

			if ShouldInitiateConnection(a, b) == ShouldInitiateConnection(b, a) {
				t.Fatalf("ids %q and %q do not agree on one initiator", a, b)
			}
		}
	}

	if ShouldInitiateConnection("same", "same") {
		t.Fatal("a device must never initiate towards itself")
	}
}

func TestShouldInitiateConnectionLexicographic(t *testing.T) {
	if !ShouldInitiateConnection("alice-laptop", "bob-phone") {
		t.Fatal("alice-laptop < bob-phone, alice must initiate")
	}
	if ShouldInitiateConnection("bob-phone", "alice-laptop") {
		t.Fatal("bob-phone > alice-laptop, bob must not initiate")
	}
}

func TestRoleFor(t *testing.T) {
	// The initiator plays the TLS server, inverted to the TCP convention.
	if role := RoleFor("alice-laptop", "bob-phone"); role != RoleServer {
		t.Fatalf("initiator got role %v", role)
	}
	if role := RoleFor("bob-phone", "alice-laptop"); role != RoleClient {
		t.Fatalf("acceptor got role %v", role)
	}

	// Complementary for all distinct pairs.
	ids := []string{"a", "b", "c", "device_1", "device_2"}
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}

			roleA, roleB := RoleFor(a, b), RoleFor(b, a)
			if roleA == roleB {
				t.Fatalf("ids %q and %q derived the same role %v", a, b, roleA)
			}
		}
	}
}
