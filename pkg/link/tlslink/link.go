// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlslink

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/devbridge/devbridge-go/pkg/certs"
	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink/internal/frame"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink/internal/stages"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// TLSLink is the TCP Link of the device protocol. Start runs the handshake
// state machine, afterwards newline-delimited JSON Packets are exchanged
// over the encrypted session. This struct implements the link.Link
// interface for both the dialing and the accepting device.
type TLSLink struct {
	address        string
	permanent      bool
	dialed         bool
	expectedPeerId string

	// localIdentity is requested freshly for every handshake; the announced
	// capability sets depend on the currently registered handlers.
	localIdentity func() identity.Identity
	certificate   *certs.Certificate

	conn   net.Conn
	reader *bufio.Reader
	mutex  sync.Mutex

	peerIdentity    identity.Identity
	peerFingerprint string
	role            link.Role

	reportChan chan link.LinkStatus

	stopSyn   chan struct{}
	stopAck   chan struct{}
	closeOnce sync.Once
}

// DialTLS creates a TLSLink connecting to the given address, expecting the
// device id learned from discovery. The permanent flag indicates if this
// TLSLink should be redialed after failures.
func DialTLS(address, expectedPeerId string, localIdentity func() identity.Identity, certificate *certs.Certificate, permanent bool) *TLSLink {
	return &TLSLink{
		address:        address,
		permanent:      permanent,
		dialed:         true,
		expectedPeerId: expectedPeerId,
		localIdentity:  localIdentity,
		certificate:    certificate,
	}
}

// NewAcceptedLink creates a TLSLink for a connection accepted by a Listener.
// The peer's device id is only known after the plaintext identity stage.
func NewAcceptedLink(conn net.Conn, localIdentity func() identity.Identity, certificate *certs.Certificate) *TLSLink {
	return &TLSLink{
		address:       conn.RemoteAddr().String(),
		localIdentity: localIdentity,
		certificate:   certificate,
		conn:          conn,
	}
}

func handshakeStages() []stages.StageSetup {
	return []stages.StageSetup{
		{Stage: &stages.PlaintextIdentityStage{}},
		{Stage: &stages.TlsUpgradeStage{}},
		{Stage: &stages.EncryptedIdentityStage{}},
	}
}

// Start this TLSLink: dial if necessary, run the handshake and spawn the
// receiving goroutines. A dialed TLSLink asks for a retry on transport
// errors; a failed handshake and a consumed accepted socket are final.
func (l *TLSLink) Start() (error, bool) {
	conn := l.conn
	if l.dialed {
		c, err := dial(l.address)
		if err != nil {
			return err, true
		}
		conn = c
	} else if conn == nil {
		return fmt.Errorf("accepted connection from %s was already consumed", l.address), false
	}

	sh := stages.NewStageHandler(handshakeStages(), conn, stages.Configuration{
		LocalIdentity:  l.localIdentity(),
		Certificate:    l.certificate,
		Dialed:         l.dialed,
		ExpectedPeerId: l.expectedPeerId,
	})

	if err, ok := <-sh.Error(); ok && err != nil {
		_ = sh.Close()
		l.conn = nil

		return err, l.dialed && errorKind(err) == link.ErrorIo
	}

	state := sh.State()
	l.conn = state.Conn
	l.reader = state.Reader
	l.peerIdentity = state.PeerIdentity
	l.peerFingerprint = state.PeerFingerprint
	l.role = state.Role

	l.reportChan = make(chan link.LinkStatus)
	l.stopSyn = make(chan struct{})
	l.stopAck = make(chan struct{})

	go l.handler()
	go l.readLoop()

	return nil, false
}

func (l *TLSLink) handler() {
	// Introduce ourselves once
	l.report(link.NewStatusLinkEstablished(l, l.peerIdentity))

	<-l.stopSyn

	l.mutex.Lock()
	defer l.mutex.Unlock()

	_ = l.conn.Close()
	close(l.reportChan)

	close(l.stopAck)
}

// report a LinkStatus upstream. After a shutdown the reportChan is closed
// while the readLoop might still be about to deliver; the recover catches
// this last send.
func (l *TLSLink) report(ls link.LinkStatus) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"link":   l,
				"status": ls,
			}).Debug("TLSLink dropped a status for its closed channel")
		}
	}()

	select {
	case <-l.stopSyn:
	case l.reportChan <- ls:
	}
}

func (l *TLSLink) readLoop() {
	for {
		p, err := frame.Read(l.reader, l.conn)
		if err == nil {
			l.report(link.NewStatusReceivedPacket(l, p))
			continue
		}

		var invalidErr *protocol.InvalidPacketError
		if errors.As(err, &invalidErr) {
			log.WithFields(log.Fields{
				"link":  l,
				"error": err,
			}).Warn("TLSLink dropped an invalid packet")

			continue
		}

		select {
		case <-l.stopSyn:
			// Requested shutdown, the error is just our own closed socket.

		default:
			l.report(link.NewStatusLinkClosed(l, errorKind(err), err))
		}

		return
	}
}

// Send one Packet to the peer. Concurrent calls are serialized so frames
// never interleave on the wire.
func (l *TLSLink) Send(p protocol.Packet) (err error) {
	defer func() {
		if r := recover(); r != nil && err == nil {
			err = fmt.Errorf("TLSLink.Send: %v", r)
		}

		// An oversized or structurally invalid Packet never reached the
		// wire; the session is fine and only the caller learns about it.
		var invalidErr *protocol.InvalidPacketError
		if err != nil && !errors.Is(err, protocol.ErrPacketTooLarge) && !errors.As(err, &invalidErr) {
			l.report(link.NewStatusLinkClosed(l, errorKind(err), err))
		}
	}()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.conn == nil {
		return fmt.Errorf("link to %s is not established", l.address)
	}

	return frame.Write(l.conn, p)
}

// Channel for LinkStatus messages.
func (l *TLSLink) Channel() chan link.LinkStatus {
	return l.reportChan
}

// Close this TLSLink and its connection.
func (l *TLSLink) Close() error {
	l.closeOnce.Do(func() {
		if l.stopSyn == nil {
			return
		}

		close(l.stopSyn)
		<-l.stopAck
	})

	return nil
}

// PeerIdentity of the connected device.
func (l *TLSLink) PeerIdentity() identity.Identity {
	return l.peerIdentity
}

// PeerFingerprint of the peer's TLS certificate.
func (l *TLSLink) PeerFingerprint() string {
	return l.peerFingerprint
}

// Role this device plays in the TLS session.
func (l *TLSLink) Role() link.Role {
	return l.role
}

func (l *TLSLink) Address() string {
	return fmt.Sprintf("tls://%s", l.address)
}

func (l *TLSLink) IsPermanent() bool {
	return l.permanent
}

func (l *TLSLink) String() string {
	if l.peerIdentity.DeviceID != "" {
		return fmt.Sprintf("tls://%s/%s", l.address, l.peerIdentity.DeviceID)
	}
	return l.Address()
}
