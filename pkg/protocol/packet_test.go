// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	p := NewPacket(TypePing, map[string]interface{}{
		"message": "hello",
		"count":   float64(23),
	})

	line, err := p.MarshalLine()
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Fatalf("serialized packet misses the newline terminator: %q", line)
	}
	if bytes.Count(line, []byte("\n")) != 1 {
		t.Fatalf("serialized packet contains more than one newline: %q", line)
	}

	p2, err := UnmarshalLine(line)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(p, p2) {
		t.Fatalf("round trip altered the packet; %v != %v", p, p2)
	}
}

func TestPacketFieldOrderIndependence(t *testing.T) {
	lines := []string{
		`{"id":1,"type":"x.ping","body":{}}`,
		`{"body":{},"type":"x.ping","id":1}`,
		`{"type":"x.ping","id":1,"body":{}}`,
	}

	var packets []Packet
	for _, line := range lines {
		p, err := UnmarshalLine([]byte(line))
		if err != nil {
			t.Fatal(err)
		}
		packets = append(packets, p)
	}

	for i := 1; i < len(packets); i++ {
		if !reflect.DeepEqual(packets[0], packets[i]) {
			t.Fatalf("packet %d differs: %v != %v", i, packets[0], packets[i])
		}
	}
}

func TestPacketBodyCopied(t *testing.T) {
	body := map[string]interface{}{"isCharging": true}
	p := NewPacket(TypeBattery, body)

	body["isCharging"] = false

	if charging, _ := p.BodyBool("isCharging"); !charging {
		t.Fatal("mutating the caller's body map leaked into the packet")
	}
}

func TestPacketInvalid(t *testing.T) {
	tests := []string{
		`{"id":1,"body":{}}`,
		`{"id":1,"type":"","body":{}}`,
		`no json at all`,
		``,
	}

	for _, line := range tests {
		var invalidErr *InvalidPacketError
		if _, err := UnmarshalLine([]byte(line)); err == nil {
			t.Fatalf("parsing %q did not err", line)
		} else if !errors.As(err, &invalidErr) {
			t.Fatalf("parsing %q did not return an InvalidPacketError: %v", line, err)
		}
	}
}

func TestPacketSizeLimit(t *testing.T) {
	p := NewPacket(TypePing, map[string]interface{}{
		"filler": strings.Repeat("x", MaxPacketSize),
	})

	if _, err := p.MarshalLine(); !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}

	oversized := []byte(strings.Repeat("y", MaxPacketSize+1))
	if _, err := UnmarshalLine(oversized); !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
}

func TestPacketPayloadDescriptor(t *testing.T) {
	p := NewPacket(TypePing, nil)
	if p.HasPayload() {
		t.Fatal("packet without payload reports one")
	}

	line := `{"id":7,"type":"x.share","body":{},"payloadSize":1024,"payloadTransferInfo":{"port":1739}}`
	p2, err := UnmarshalLine([]byte(line))
	if err != nil {
		t.Fatal(err)
	}

	if !p2.HasPayload() {
		t.Fatal("packet with payload descriptor reports none")
	}
	if p2.PayloadSize != 1024 || p2.PayloadTrans.Port != 1739 {
		t.Fatalf("payload descriptor mismatch: %v %v", p2.PayloadSize, p2.PayloadTrans)
	}
}

func TestPacketBodyAccessors(t *testing.T) {
	line := `{"id":1,"type":"x.identity","body":{"deviceId":"alice","protocolVersion":8,"paired":true,"incomingCapabilities":["x.ping","x.battery"]}}`
	p, err := UnmarshalLine([]byte(line))
	if err != nil {
		t.Fatal(err)
	}

	if s, ok := p.BodyString("deviceId"); !ok || s != "alice" {
		t.Fatalf("BodyString: %q %v", s, ok)
	}
	if n, ok := p.BodyInt("protocolVersion"); !ok || n != 8 {
		t.Fatalf("BodyInt: %d %v", n, ok)
	}
	if b, ok := p.BodyBool("paired"); !ok || !b {
		t.Fatalf("BodyBool: %v %v", b, ok)
	}
	if ss, ok := p.BodyStringSlice("incomingCapabilities"); !ok || !reflect.DeepEqual(ss, []string{"x.ping", "x.battery"}) {
		t.Fatalf("BodyStringSlice: %v %v", ss, ok)
	}

	if _, ok := p.BodyString("missing"); ok {
		t.Fatal("BodyString found a missing field")
	}
}
