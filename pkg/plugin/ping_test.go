// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package plugin

import (
	"testing"

	"github.com/devbridge/devbridge-go/pkg/protocol"
)

func TestPingPluginReply(t *testing.T) {
	sender := &captureSender{}

	ping := NewPingPlugin(true)
	if err := ping.Initialize(sender); err != nil {
		t.Fatal(err)
	}

	if err := ping.HandlePacket(protocol.NewPacket(protocol.TypePing, nil)); err != nil {
		t.Fatal(err)
	}

	replies := sender.sent()
	if len(replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(replies))
	}
	if replies[0].Type != protocol.TypePing {
		t.Fatalf("reply has type %s", replies[0].Type)
	}
	if message, ok := replies[0].BodyString("message"); !ok || message != "pong 1" {
		t.Fatalf("reply message is %q", message)
	}

	// A ping carrying a message is itself a reply and stays unanswered,
	// otherwise two replying devices would ping each other forever.
	if err := ping.HandlePacket(replies[0]); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent()) != 1 {
		t.Fatal("a reply was answered")
	}

	if sent, received := ping.Counts(); sent != 1 || received != 2 {
		t.Fatalf("counts are sent=%d received=%d", sent, received)
	}
}

func TestPingPluginNoReply(t *testing.T) {
	sender := &captureSender{}

	ping := NewPingPlugin(false)
	if err := ping.Initialize(sender); err != nil {
		t.Fatal(err)
	}

	if err := ping.HandlePacket(protocol.NewPacket(protocol.TypePing, nil)); err != nil {
		t.Fatal(err)
	}

	if len(sender.sent()) != 0 {
		t.Fatal("silent ping plugin replied")
	}
	if sent, received := ping.Counts(); sent != 0 || received != 1 {
		t.Fatalf("counts are sent=%d received=%d", sent, received)
	}
}

func TestPingPluginSendPing(t *testing.T) {
	sender := &captureSender{}

	ping := NewPingPlugin(false)
	if err := ping.Initialize(sender); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := ping.SendPing(); err != nil {
			t.Fatal(err)
		}
	}

	pings := sender.sent()
	if len(pings) != 3 {
		t.Fatalf("expected three pings, got %d", len(pings))
	}
	if message, _ := pings[2].BodyString("message"); message != "pong 3" {
		t.Fatalf("third ping message is %q", message)
	}

	// Uninitialized or shut down, sending must error instead of panic.
	if err := ping.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := ping.SendPing(); err == nil {
		t.Fatal("sending without a sender did not error")
	}
}
