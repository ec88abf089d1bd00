// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package identity

import (
	"errors"
	"reflect"
	"testing"

	"github.com/devbridge/devbridge-go/pkg/protocol"
)

func TestIdentityPacketRoundTrip(t *testing.T) {
	id := Identity{
		DeviceID:             "alice-laptop",
		DeviceName:           "Alice's Laptop",
		ProtocolVersion:      protocol.Version,
		IncomingCapabilities: []string{"x.ping", "x.battery"},
		OutgoingCapabilities: []string{"x.ping"},
		TcpPort:              1716,
	}

	p := id.Packet()
	if p.Type != protocol.TypeIdentity {
		t.Fatalf("identity packet has type %s", p.Type)
	}

	id2, err := FromPacket(p)
	if err != nil {
		t.Fatal(err)
	}

	// Packet() sorts the capability lists.
	if !reflect.DeepEqual(id2.IncomingCapabilities, []string{"x.battery", "x.ping"}) {
		t.Fatalf("incoming capabilities mismatch: %v", id2.IncomingCapabilities)
	}

	id2.IncomingCapabilities = id.IncomingCapabilities
	if !reflect.DeepEqual(id, id2) {
		t.Fatalf("identity round trip mismatch: %v != %v", id, id2)
	}
}

func TestIdentityFromPacketInvalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"wrong type", `{"id":1,"type":"x.ping","body":{}}`},
		{"missing deviceId", `{"id":1,"type":"x.identity","body":{"deviceName":"n","protocolVersion":8}}`},
		{"bad deviceId", `{"id":1,"type":"x.identity","body":{"deviceId":"evil/../id","deviceName":"n","protocolVersion":8}}`},
		{"missing deviceName", `{"id":1,"type":"x.identity","body":{"deviceId":"a","protocolVersion":8}}`},
		{"missing version", `{"id":1,"type":"x.identity","body":{"deviceId":"a","deviceName":"n"}}`},
		{"ancient version", `{"id":1,"type":"x.identity","body":{"deviceId":"a","deviceName":"n","protocolVersion":5}}`},
		{"port out of range", `{"id":1,"type":"x.identity","body":{"deviceId":"a","deviceName":"n","protocolVersion":8,"tcpPort":70000}}`},
	}

	for _, test := range tests {
		p, err := protocol.UnmarshalLine([]byte(test.line))
		if err != nil {
			t.Fatal(err)
		}

		var invalidErr *protocol.InvalidPacketError
		if _, err := FromPacket(p); err == nil {
			t.Fatalf("%s: FromPacket did not err", test.name)
		} else if !errors.As(err, &invalidErr) {
			t.Fatalf("%s: no InvalidPacketError: %v", test.name, err)
		}
	}
}

func TestNewDeviceID(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 16; i++ {
		deviceId := NewDeviceID()
		if err := ValidateDeviceID(deviceId); err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[deviceId]; dup {
			t.Fatalf("duplicate generated device id %s", deviceId)
		}
		seen[deviceId] = struct{}{}
	}
}

func TestValidateDeviceID(t *testing.T) {
	for _, valid := range []string{"a", "alice-laptop", "bob_phone", "X23", "0000"} {
		if err := ValidateDeviceID(valid); err != nil {
			t.Fatalf("%q should be valid: %v", valid, err)
		}
	}

	tooLong := make([]byte, 65)
	for i := range tooLong {
		tooLong[i] = 'a'
	}

	for _, invalid := range []string{"", "with space", "slash/id", "dot.id", string(tooLong)} {
		if err := ValidateDeviceID(invalid); err == nil {
			t.Fatalf("%q should be invalid", invalid)
		}
	}
}
