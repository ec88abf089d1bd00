// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stages

import (
	"bytes"
	"errors"
	"net"
	"time"

	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink/internal/frame"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

const stepPlaintextIdentity = "plaintext-identity"

// PlaintextIdentityStage models the initial unencrypted identity exchange:
// the dialing device announces itself, the accepting device reads this
// announcement. Afterwards both sides know the peer's claimed device id and
// can derive their TLS roles.
type PlaintextIdentityStage struct {
	state     *State
	closeChan <-chan struct{}
}

// Handle this Stage's action based on the previous Stage's State and the
// StageHandler's close channel.
func (pi *PlaintextIdentityStage) Handle(state *State, closeChan <-chan struct{}) {
	pi.state = state
	pi.closeChan = closeChan

	if pi.state.Configuration.Dialed {
		pi.handleDialed()
	} else {
		pi.handleAccepted()
	}
}

func (pi *PlaintextIdentityStage) handleDialed() {
	conf := pi.state.Configuration

	if conf.ExpectedPeerId == "" {
		pi.state.StageError = &Error{
			Step:  stepPlaintextIdentity,
			Kind:  link.ErrorProtocol,
			Cause: errors.New("dialed connection misses the expected peer device id"),
		}
		return
	}

	if conf.ExpectedPeerId == conf.LocalIdentity.DeviceID {
		pi.state.StageError = &Error{
			Step:  stepPlaintextIdentity,
			Kind:  link.ErrorProtocol,
			Cause: errors.New("refusing a connection to ourselves"),
		}
		return
	}

	if err := frame.Write(pi.state.Conn, conf.LocalIdentity.Packet()); err != nil {
		pi.state.StageError = &Error{Step: stepPlaintextIdentity, Kind: writeErrorKind(err), Cause: err}
		return
	}

	pi.state.PeerDeviceId = conf.ExpectedPeerId
}

func (pi *PlaintextIdentityStage) handleAccepted() {
	line, err := readLineUnbuffered(pi.state.Conn)
	if err != nil {
		pi.state.StageError = &Error{Step: stepPlaintextIdentity, Kind: writeErrorKind(err), Cause: err}
		return
	}

	p, err := protocol.UnmarshalLine(line)
	if err != nil {
		pi.state.StageError = &Error{Step: stepPlaintextIdentity, Kind: link.ErrorProtocol, Cause: err}
		return
	}

	peer, err := identity.FromPacket(p)
	if err != nil {
		pi.state.StageError = &Error{Step: stepPlaintextIdentity, Kind: link.ErrorProtocol, Cause: err}
		return
	}

	if peer.DeviceID == pi.state.Configuration.LocalIdentity.DeviceID {
		pi.state.StageError = &Error{
			Step:  stepPlaintextIdentity,
			Kind:  link.ErrorProtocol,
			Cause: errors.New("refusing a connection to ourselves"),
		}
		return
	}

	pi.state.PeerDeviceId = peer.DeviceID
}

// writeErrorKind classifies a framed read or write error during the
// handshake, where every failure is fatal.
func writeErrorKind(err error) link.ErrorKind {
	var invalidErr *protocol.InvalidPacketError

	switch {
	case frame.IsTimeout(err):
		return link.ErrorTimeout
	case errors.Is(err, protocol.ErrPacketTooLarge), errors.As(err, &invalidErr):
		return link.ErrorProtocol
	default:
		return link.ErrorIo
	}
}

// readLineUnbuffered reads one newline-terminated line byte-by-byte. No
// buffered reader may wrap the conn here: the peer starts the TLS handshake
// right after its identity and buffered TLS record bytes would be lost.
func readLineUnbuffered(conn net.Conn) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(frame.Timeout)); err != nil {
		return nil, err
	}
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var buff bytes.Buffer
	b := make([]byte, 1)

	for {
		if _, err := conn.Read(b); err != nil {
			return nil, err
		}

		if b[0] == '\n' {
			return buff.Bytes(), nil
		}

		buff.WriteByte(b[0])
		if buff.Len() > protocol.MaxPacketSize {
			return nil, protocol.ErrPacketTooLarge
		}
	}
}
