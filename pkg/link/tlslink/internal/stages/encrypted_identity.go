// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stages

import (
	"fmt"

	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink/internal/frame"
)

const stepEncryptedIdentity = "encrypted-identity"

// EncryptedIdentityStage repeats the identity exchange over the now
// encrypted channel, this time in both directions. The encrypted identity's
// device id must match the one from the plaintext exchange, protecting
// against a peer substituting its identity mid-handshake.
type EncryptedIdentityStage struct {
	state     *State
	closeChan <-chan struct{}
}

// Handle this Stage's action based on the previous Stage's State and the
// StageHandler's close channel.
func (ei *EncryptedIdentityStage) Handle(state *State, closeChan <-chan struct{}) {
	ei.state = state
	ei.closeChan = closeChan

	var (
		peer identity.Identity
		err  error
	)

	// The dialing device sends first, mirroring the plaintext stage. This
	// fixed order keeps the exchange deadlock-free without relying on
	// kernel buffer sizes.
	if ei.state.Configuration.Dialed {
		err = ei.send()
		if err == nil {
			peer, err = ei.receive()
		}
	} else {
		peer, err = ei.receive()
		if err == nil {
			err = ei.send()
		}
	}

	if err != nil {
		ei.state.StageError = err
		return
	}

	if peer.DeviceID != ei.state.PeerDeviceId {
		ei.state.StageError = &Error{
			Step: stepEncryptedIdentity,
			Kind: link.ErrorProtocol,
			Cause: fmt.Errorf("device id mismatch: plaintext exchange claimed %q, encrypted exchange %q",
				ei.state.PeerDeviceId, peer.DeviceID),
		}
		return
	}

	ei.state.PeerIdentity = peer
}

func (ei *EncryptedIdentityStage) send() error {
	if err := frame.Write(ei.state.Conn, ei.state.Configuration.LocalIdentity.Packet()); err != nil {
		return &Error{Step: stepEncryptedIdentity, Kind: writeErrorKind(err), Cause: err}
	}
	return nil
}

func (ei *EncryptedIdentityStage) receive() (identity.Identity, error) {
	p, err := frame.Read(ei.state.Reader, ei.state.Conn)
	if err != nil {
		return identity.Identity{}, &Error{Step: stepEncryptedIdentity, Kind: writeErrorKind(err), Cause: err}
	}

	peer, err := identity.FromPacket(p)
	if err != nil {
		return identity.Identity{}, &Error{Step: stepEncryptedIdentity, Kind: link.ErrorProtocol, Cause: err}
	}

	return peer, nil
}
