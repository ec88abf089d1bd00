// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package plugin

import (
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// PacketSender transmits Packets towards connected peer devices. The
// Registry hands one to each Plugin during Initialize; it stays valid
// until Shutdown.
type PacketSender interface {
	SendPacket(p protocol.Packet) error
}

// SenderFunc is an adapter to allow ordinary functions as PacketSenders.
type SenderFunc func(p protocol.Packet) error

func (f SenderFunc) SendPacket(p protocol.Packet) error {
	return f(p)
}

// Plugin handles Packets of its declared incoming types and may emit
// Packets of its declared outgoing types through the PacketSender.
type Plugin interface {
	// Name uniquely identifies this Plugin within a Registry.
	Name() string

	// IncomingCapabilities lists the packet types this Plugin consumes.
	IncomingCapabilities() []string

	// OutgoingCapabilities lists the packet types this Plugin emits.
	OutgoingCapabilities() []string

	// Initialize is called once after registration, before any Packet is
	// routed to this Plugin.
	Initialize(sender PacketSender) error

	// HandlePacket processes one incoming Packet of a declared incoming
	// type. Calls may run concurrently with other Plugins' HandlePacket;
	// a Plugin must guard its own state.
	HandlePacket(p protocol.Packet) error

	// Shutdown releases resources. No further calls happen afterwards.
	Shutdown() error
}

// State describes a Plugin's lifecycle position within a Registry.
type State uint

const (
	// StateRegistered marks a Plugin known to the Registry whose
	// Initialize did not finish yet. No Packets are routed to it.
	StateRegistered State = iota

	// StateInitialized marks a Plugin receiving routed Packets.
	StateInitialized

	// StateShuttingDown marks a Plugin whose Shutdown is in progress.
	StateShuttingDown

	// StateRemoved marks a Plugin after its removal from the Registry.
	StateRemoved
)

func (state State) String() string {
	switch state {
	case StateRegistered:
		return "registered"
	case StateInitialized:
		return "initialized"
	case StateShuttingDown:
		return "shutting down"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}
