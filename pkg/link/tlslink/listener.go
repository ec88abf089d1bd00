// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlslink

import (
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devbridge/devbridge-go/pkg/certs"
	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
)

// Listener accepts incoming TCP connections and registers each one as an
// accepted TLSLink with its Manager. This struct implements the
// link.Provider interface.
type Listener struct {
	listenAddress string
	localIdentity func() identity.Identity
	certificate   *certs.Certificate

	manager *link.Manager

	stopSyn   chan struct{}
	stopAck   chan struct{}
	closeOnce sync.Once
}

// NewListener for the given listen address, e.g., ":1716".
func NewListener(listenAddress string, localIdentity func() identity.Identity, certificate *certs.Certificate) *Listener {
	return &Listener{
		listenAddress: listenAddress,
		localIdentity: localIdentity,
		certificate:   certificate,

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}
}

// RegisterManager tells the Listener where to report accepted Links to.
func (listener *Listener) RegisterManager(manager *link.Manager) {
	listener.manager = manager
}

// Start listening. Accepted connections become TLSLinks handed to the
// Manager, which supervises their handshakes.
func (listener *Listener) Start() error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", listener.listenAddress)
	if err != nil {
		return err
	}

	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return err
	}

	go func(ln *net.TCPListener) {
		for {
			select {
			case <-listener.stopSyn:
				_ = ln.Close()
				close(listener.stopAck)

				return

			default:
				if err := ln.SetDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
					log.WithFields(log.Fields{
						"listener": listener,
						"error":    err,
					}).Warn("Listener failed to set deadline on TCP socket")

					go func() { _ = listener.Close() }()
				} else if conn, err := ln.Accept(); err == nil {
					log.WithFields(log.Fields{
						"listener": listener,
						"peer":     conn.RemoteAddr(),
					}).Debug("Listener accepted a new connection")

					// Register runs the handshake; keep accepting meanwhile.
					go listener.manager.Register(
						NewAcceptedLink(conn, listener.localIdentity, listener.certificate))
				}
			}
		}
	}(ln)

	return nil
}

// Close this Listener's socket.
func (listener *Listener) Close() error {
	listener.closeOnce.Do(func() {
		close(listener.stopSyn)
		<-listener.stopAck
	})

	return nil
}

func (listener *Listener) Address() string {
	return fmt.Sprintf("tls-listen://%s", listener.listenAddress)
}

func (listener *Listener) String() string {
	return listener.Address()
}
