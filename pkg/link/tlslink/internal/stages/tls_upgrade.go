// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stages

import (
	"bufio"
	"crypto/tls"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devbridge/devbridge-go/pkg/certs"
	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink/internal/frame"
)

const stepTlsUpgrade = "tls-upgrade"

// TlsUpgradeStage replaces the plaintext conn with a TLS session. The role
// is derived from the device id comparison alone: the device which is
// supposed to initiate the TCP connection plays the TLS server, inverted to
// the usual convention. Any structurally valid peer certificate is accepted;
// its fingerprint is recorded for the pairing layer's trust decision.
type TlsUpgradeStage struct {
	state     *State
	closeChan <-chan struct{}
}

// Handle this Stage's action based on the previous Stage's State and the
// StageHandler's close channel.
func (tu *TlsUpgradeStage) Handle(state *State, closeChan <-chan struct{}) {
	tu.state = state
	tu.closeChan = closeChan

	conf := state.Configuration
	role := link.RoleFor(conf.LocalIdentity.DeviceID, state.PeerDeviceId)

	if initiate := link.ShouldInitiateConnection(conf.LocalIdentity.DeviceID, state.PeerDeviceId); initiate != conf.Dialed {
		log.WithFields(log.Fields{
			"local": conf.LocalIdentity.DeviceID,
			"peer":  state.PeerDeviceId,
			"role":  role,
		}).Warn("Peer violated the connection initiation ordering; deriving the TLS role from the device ids regardless")
	}

	tlsConn, err := tu.upgrade(role)
	if err != nil {
		state.StageError = err
		return
	}

	fingerprint, fpErr := certs.PeerFingerprint(tlsConn.ConnectionState())
	if fpErr != nil {
		_ = tlsConn.Close()
		state.StageError = &Error{Step: stepTlsUpgrade, Kind: link.ErrorTls, Cause: fpErr}
		return
	}

	state.Conn = tlsConn
	state.Reader = bufio.NewReader(tlsConn)
	state.Role = role
	state.PeerFingerprint = fingerprint
}

func (tu *TlsUpgradeStage) upgrade(role link.Role) (*tls.Conn, error) {
	var (
		conf    = tu.state.Configuration
		tlsConn *tls.Conn
	)

	switch role {
	case link.RoleServer:
		tlsConf, err := conf.Certificate.ServerTLSConfig()
		if err != nil {
			return nil, &Error{Step: stepTlsUpgrade, Kind: link.ErrorCertificate, Cause: err}
		}
		tlsConn = tls.Server(tu.state.Conn, tlsConf)

	default:
		tlsConf, err := conf.Certificate.ClientTLSConfig()
		if err != nil {
			return nil, &Error{Step: stepTlsUpgrade, Kind: link.ErrorCertificate, Cause: err}
		}
		tlsConn = tls.Client(tu.state.Conn, tlsConf)
	}

	if err := tlsConn.SetDeadline(time.Now().Add(frame.Timeout)); err != nil {
		return nil, &Error{Step: stepTlsUpgrade, Kind: link.ErrorIo, Cause: err}
	}

	if err := tlsConn.Handshake(); err != nil {
		kind := link.ErrorTls
		if frame.IsTimeout(err) {
			kind = link.ErrorTimeout
		}
		return nil, &Error{Step: stepTlsUpgrade, Kind: kind, Cause: err}
	}

	if err := tlsConn.SetDeadline(time.Time{}); err != nil {
		return nil, &Error{Step: stepTlsUpgrade, Kind: link.ErrorIo, Cause: err}
	}

	return tlsConn, nil
}
