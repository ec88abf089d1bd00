// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// Component describes any kind of link-layer entity supervised by a
// Manager, either a Link or a Provider.
type Component interface {
	// Close signals this Component to shut down.
	Close() error
}

// Link is an established packet channel to one peer device. Incoming
// Packets and lifecycle changes are reported through the status Channel;
// outgoing Packets are handed to Send, which must serialize concurrent
// calls internally so frames never interleave.
type Link interface {
	Component

	// Start this Link and might return an error and a boolean indicating
	// if another Start should be tried later.
	Start() (error, bool)

	// Channel for LinkStatus messages: received Packets, establishment,
	// teardown. The supervising code must drain it.
	Channel() chan LinkStatus

	// Address returns a unique address string to both identify this Link
	// and ensure it will not be opened twice.
	Address() string

	// IsPermanent returns true if this Link should not be removed after
	// failures.
	IsPermanent() bool

	// Send transmits one Packet to the peer. Thread safe; a fresh Packet
	// value must be constructed for every call.
	Send(p protocol.Packet) error

	// PeerIdentity of the connected device, known once the Link reported
	// LinkEstablished.
	PeerIdentity() identity.Identity

	// PeerFingerprint is the colon-hex SHA-256 fingerprint of the peer's
	// TLS certificate, known once the Link reported LinkEstablished.
	PeerFingerprint() string

	// Role this device plays in the Link's TLS session.
	Role() Role
}

// Provider is a link-layer service which does not exchange Packets itself
// but creates new Links, e.g., a listening TCP socket. Created Links are
// reported to the registered Manager.
type Provider interface {
	Component

	// RegisterManager tells the Provider where to report new Links to.
	RegisterManager(*Manager)

	// Start this Provider. RegisterManager is called before; the Manager
	// takes care of both calls.
	Start() error
}
