// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"fmt"

	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// StatusMessageType indicates the kind of a LinkStatus.
type StatusMessageType uint

const (
	_ StatusMessageType = iota

	// ReceivedPacket shows the reception of a Packet. The Message's type
	// must be a protocol.Packet.
	ReceivedPacket

	// LinkEstablished shows a completed handshake. The Message's type must
	// be an identity.Identity, the peer's.
	LinkEstablished

	// LinkClosed shows the teardown of a Link. The Message's type must be
	// a ClosedInfo.
	LinkClosed
)

func (smt StatusMessageType) String() string {
	switch smt {
	case ReceivedPacket:
		return "Received Packet"
	case LinkEstablished:
		return "Link Established"
	case LinkClosed:
		return "Link Closed"
	default:
		return "Unknown Type"
	}
}

// ErrorKind classifies why a Link ended, so callers can distinguish trust
// problems from generic network failures, e.g., to prompt for re-pairing.
type ErrorKind uint

const (
	// ErrorNone marks a regular, requested shutdown.
	ErrorNone ErrorKind = iota

	// ErrorIo marks a transport-level failure.
	ErrorIo

	// ErrorTls marks a failed TLS handshake.
	ErrorTls

	// ErrorCertificate marks a certificate or fingerprint trust failure.
	ErrorCertificate

	// ErrorProtocol marks a protocol violation, e.g., corrupted framing or
	// an identity mismatch.
	ErrorProtocol

	// ErrorTimeout marks an exceeded per-operation deadline.
	ErrorTimeout
)

func (kind ErrorKind) String() string {
	switch kind {
	case ErrorNone:
		return "none"
	case ErrorIo:
		return "io"
	case ErrorTls:
		return "tls"
	case ErrorCertificate:
		return "certificate"
	case ErrorProtocol:
		return "protocol"
	case ErrorTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ClosedInfo is the Message content of a LinkClosed status.
type ClosedInfo struct {
	Kind ErrorKind
	Err  error
}

// LinkStatus allows transmission of information via a return channel from
// a Link instance.
type LinkStatus struct {
	Sender      Link
	MessageType StatusMessageType
	Message     interface{}
}

func (ls LinkStatus) String() string {
	return fmt.Sprintf("%v-LinkStatus from %v", ls.MessageType, ls.Sender)
}

// NewStatusReceivedPacket creates a new LinkStatus for a ReceivedPacket type.
func NewStatusReceivedPacket(sender Link, p protocol.Packet) LinkStatus {
	return LinkStatus{
		Sender:      sender,
		MessageType: ReceivedPacket,
		Message:     p,
	}
}

// NewStatusLinkEstablished creates a new LinkStatus for a LinkEstablished
// type, transmitting the peer's Identity.
func NewStatusLinkEstablished(sender Link, peer identity.Identity) LinkStatus {
	return LinkStatus{
		Sender:      sender,
		MessageType: LinkEstablished,
		Message:     peer,
	}
}

// NewStatusLinkClosed creates a new LinkStatus for a LinkClosed type,
// transmitting the classified teardown reason.
func NewStatusLinkClosed(sender Link, kind ErrorKind, err error) LinkStatus {
	return LinkStatus{
		Sender:      sender,
		MessageType: LinkClosed,
		Message:     ClosedInfo{Kind: kind, Err: err},
	}
}
