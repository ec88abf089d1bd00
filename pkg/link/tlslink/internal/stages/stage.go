// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package stages implements the handshake state machine of a device link:
// plaintext identity exchange, TLS upgrade with inverted roles, encrypted
// identity exchange. Each step is a Stage, executed in sequence by a
// StageHandler; a failing Stage terminates the handshake.
package stages

import (
	"bufio"
	"errors"
	"fmt"
	"net"

	"github.com/devbridge/devbridge-go/pkg/certs"
	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
)

// Configuration for stages.
type Configuration struct {
	// LocalIdentity announced to the peer during the handshake.
	LocalIdentity identity.Identity

	// Certificate is this device's identity certificate.
	Certificate *certs.Certificate

	// Dialed indicates that this device opened the TCP connection.
	Dialed bool

	// ExpectedPeerId is the peer's device id as learned from discovery.
	// Required for dialed connections, empty for accepted ones.
	ExpectedPeerId string
}

// StageClose signals a closed stage, after calling the StageHandler's Close
// method.
var StageClose = errors.New("stage closed down")

// Error describes a failed handshake Stage, classified by an ErrorKind so
// the link can report why it never reached establishment.
type Error struct {
	Step  string
	Kind  link.ErrorKind
	Cause error
}

func (err *Error) Error() string {
	return fmt.Sprintf("handshake step %s failed: %v", err.Step, err.Cause)
}

func (err *Error) Unwrap() error {
	return err.Cause
}

// State for stages, both used as input and as an altered output.
type State struct {
	// Configuration to be used; should not be altered.
	Configuration Configuration

	// Conn the stages operate on. The TLS upgrade stage replaces it with
	// the encrypted session.
	Conn net.Conn

	// Reader is a buffered reader over Conn, created by the TLS upgrade
	// stage. The plaintext stage reads unbuffered so no TLS record bytes
	// are lost to an over-reading buffer.
	Reader *bufio.Reader

	// StageError reports back the failure of a stage.
	StageError error

	// PLAINTEXT IDENTITY STAGE
	// PeerDeviceId is the peer's claimed device id: read from the
	// plaintext identity packet on accepted connections, taken from the
	// Configuration on dialed ones.
	PeerDeviceId string
	// PLAINTEXT IDENTITY STAGE END

	// TLS UPGRADE STAGE
	// Role is this device's TLS role, derived from the device id comparison.
	Role link.Role
	// PeerFingerprint is the peer certificate's colon-hex SHA-256 digest.
	PeerFingerprint string
	// TLS UPGRADE STAGE END

	// ENCRYPTED IDENTITY STAGE
	// PeerIdentity is the peer's full Identity from the encrypted exchange.
	PeerIdentity identity.Identity
	// ENCRYPTED IDENTITY STAGE END
}

// Stage described by this interface.
type Stage interface {
	// Handle this Stage's action based on the previous Stage's State and
	// the StageHandler's close channel.
	Handle(state *State, closeChan <-chan struct{})
}
