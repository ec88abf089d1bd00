// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"time"

	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// Session is one trusted, established connection to a peer device. It
// lives exactly as long as the underlying Link; nothing of it survives a
// reconnect except the fingerprint pinned in the pairing store.
type Session struct {
	Peer           identity.Identity
	Role           link.Role
	Fingerprint    string
	ConnectedSince time.Time

	lnk link.Link
}

func newSession(lnk link.Link) *Session {
	return &Session{
		Peer:           lnk.PeerIdentity(),
		Role:           lnk.Role(),
		Fingerprint:    lnk.PeerFingerprint(),
		ConnectedSince: time.Now(),

		lnk: lnk,
	}
}

// Send one Packet to this Session's peer.
func (session *Session) Send(p protocol.Packet) error {
	return session.lnk.Send(p)
}
