// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/devbridge/devbridge-go/pkg/certs"
	"github.com/devbridge/devbridge-go/pkg/discovery"
	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink"
	"github.com/devbridge/devbridge-go/pkg/pairing"
	"github.com/devbridge/devbridge-go/pkg/plugin"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// Config assembles everything a Core needs. Certificate and Store are
// created by the caller since their location is deployment-specific.
type Config struct {
	DeviceID   string
	DeviceName string
	TcpPort    int

	Certificate *certs.Certificate
	Store       *pairing.Store

	// AutoAccept pairs unknown devices on first contact; meant for
	// headless deployments.
	AutoAccept bool

	// PingReply lets the ping plugin answer incoming pings.
	PingReply bool
}

// outbound is one queued outgoing Packet. An empty deviceId broadcasts to
// every Session.
type outbound struct {
	deviceId string
	packet   protocol.Packet
}

// Core is a running bridge device.
type Core struct {
	deviceId   string
	deviceName string
	tcpPort    int

	cert     *certs.Certificate
	store    *pairing.Store
	policy   *pairing.Policy
	registry *plugin.Registry
	manager  *link.Manager
	hub      *eventHub

	sessions      map[string]*Session
	sessionsMutex sync.Mutex

	outChnl chan outbound

	stopSyn chan struct{}
	stopAck chan struct{}

	stopFlag      bool
	stopFlagMutex sync.Mutex
}

// NewCore starts a Core: the plugin Registry with the reference plugins,
// the link Manager with a TCP Listener on the configured port, the
// dispatcher and the writer.
func NewCore(conf Config) (*Core, error) {
	if err := identity.ValidateDeviceID(conf.DeviceID); err != nil {
		return nil, err
	}
	if conf.Certificate == nil || conf.Store == nil {
		return nil, fmt.Errorf("core needs both a certificate and a pairing store")
	}
	if err := conf.Certificate.Validate(); err != nil {
		return nil, err
	}

	c := &Core{
		deviceId:   conf.DeviceID,
		deviceName: conf.DeviceName,
		tcpPort:    conf.TcpPort,

		cert:    conf.Certificate,
		store:   conf.Store,
		policy:  pairing.NewPolicy(conf.Store, conf.AutoAccept),
		manager: link.NewManager(),
		hub:     newEventHub(),

		sessions: make(map[string]*Session),

		outChnl: make(chan outbound, 100),

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	c.registry = plugin.NewRegistry(plugin.SenderFunc(c.Broadcast))

	if err := c.registry.Register(plugin.NewPingPlugin(conf.PingReply)); err != nil {
		return nil, err
	}
	if err := c.registry.Register(plugin.NewBatteryPlugin()); err != nil {
		return nil, err
	}

	go c.dispatcher()
	go c.writer()

	c.manager.Register(tlslink.NewListener(
		fmt.Sprintf(":%d", conf.TcpPort), c.Identity, c.cert))

	log.WithFields(log.Fields{
		"device": conf.DeviceID,
		"name":   conf.DeviceName,
		"port":   conf.TcpPort,
	}).Info("Core started")

	return c, nil
}

// Identity of this device with the current capability union of all
// registered plugins.
func (c *Core) Identity() identity.Identity {
	incoming, outgoing := c.registry.Capabilities()

	return identity.Identity{
		DeviceID:             c.deviceId,
		DeviceName:           c.deviceName,
		ProtocolVersion:      protocol.Version,
		IncomingCapabilities: incoming,
		OutgoingCapabilities: outgoing,
		TcpPort:              uint16(c.tcpPort),
	}
}

// Fingerprint of this device's own certificate, shown to the user for
// out-of-band verification during pairing.
func (c *Core) Fingerprint() string {
	return c.cert.Fingerprint()
}

// RegisterPlugin adds a further Plugin beyond the built-in ones. Already
// connected peers learn new capabilities only on their next handshake.
func (c *Core) RegisterPlugin(p plugin.Plugin) error {
	return c.registry.Register(p)
}

// Plugin returns a registered Plugin by name.
func (c *Core) Plugin(name string) (plugin.Plugin, error) {
	return c.registry.Plugin(name)
}

// ConnectTo dials a discovered peer. Already connected peers are skipped.
func (c *Core) ConnectTo(candidate discovery.Candidate) {
	if c.isStopped() || c.manager.HasLink(candidate.DeviceID) {
		return
	}

	log.WithFields(log.Fields{
		"device":  candidate.DeviceID,
		"address": candidate.Address,
		"port":    candidate.Port,
	}).Debug("Connecting to a discovered peer")

	c.manager.Register(tlslink.DialTLS(
		fmt.Sprintf("%s:%d", candidate.Address, candidate.Port),
		candidate.DeviceID, c.Identity, c.cert, false))
}

// dispatcher consumes the Manager's status stream: pairing decisions on
// establishment, plugin routing for received Packets, session teardown on
// closure.
func (c *Core) dispatcher() {
	for {
		select {
		case <-c.stopSyn:
			// The Manager's handler might be blocked delivering a status;
			// keep draining until its channel is closed.
			go func() { _ = c.manager.Close() }()
			for range c.manager.Channel() {
			}

			if err := c.registry.Shutdown(); err != nil {
				log.WithError(err).Warn("Plugin shutdown errored")
			}
			close(c.outChnl)

			c.hub.closeAll()

			close(c.stopAck)
			return

		case ls := <-c.manager.Channel():
			switch ls.MessageType {
			case link.LinkEstablished:
				c.handleEstablished(ls.Sender, ls.Message.(identity.Identity))

			case link.ReceivedPacket:
				c.handlePacket(ls.Sender, ls.Message.(protocol.Packet))

			case link.LinkClosed:
				c.handleClosed(ls.Sender, ls.Message.(link.ClosedInfo))
			}
		}
	}
}

func (c *Core) handleEstablished(lnk link.Link, peer identity.Identity) {
	decision, err := c.policy.Decide(peer.DeviceID, peer.DeviceName, lnk.PeerFingerprint())

	switch decision {
	case pairing.DecisionTrusted:
		c.promote(lnk)

	case pairing.DecisionPending:
		log.WithFields(log.Fields{
			"device":      peer.DeviceID,
			"fingerprint": lnk.PeerFingerprint(),
		}).Info("Unpaired device connected, awaiting pairing decision")

		c.hub.publish(Event{
			Type:   EventPairingRequest,
			Device: peer.DeviceID,
			Name:   peer.DeviceName,
			Detail: lnk.PeerFingerprint(),
		})

	case pairing.DecisionRejected:
		log.WithError(err).WithFields(log.Fields{
			"device": peer.DeviceID,
		}).Error("Refusing session")

		c.hub.publish(Event{
			Type:   EventPairingDenied,
			Device: peer.DeviceID,
			Name:   peer.DeviceName,
			Detail: fmt.Sprintf("%v", err),
		})

		// Close blocks until the Link acknowledges; not on the dispatcher.
		go func() { _ = lnk.Close() }()
	}
}

// promote a handshaked Link of a trusted device into a Session.
func (c *Core) promote(lnk link.Link) {
	session := newSession(lnk)

	c.sessionsMutex.Lock()
	c.sessions[session.Peer.DeviceID] = session
	c.sessionsMutex.Unlock()

	log.WithFields(log.Fields{
		"device": session.Peer.DeviceID,
		"role":   session.Role,
	}).Info("Session established")

	c.hub.publish(Event{
		Type:   EventEstablished,
		Device: session.Peer.DeviceID,
		Name:   session.Peer.DeviceName,
	})

	// Ask for the peer's battery state right away, if it can provide one.
	for _, capability := range session.Peer.OutgoingCapabilities {
		if capability == protocol.TypeBattery {
			_ = c.SendTo(session.Peer.DeviceID,
				protocol.NewPacket(protocol.TypeBatteryRequest, nil))
			break
		}
	}
}

func (c *Core) handlePacket(lnk link.Link, p protocol.Packet) {
	deviceId := lnk.PeerIdentity().DeviceID

	c.sessionsMutex.Lock()
	_, trusted := c.sessions[deviceId]
	c.sessionsMutex.Unlock()

	if !trusted {
		log.WithFields(log.Fields{
			"device": deviceId,
			"type":   p.Type,
		}).Debug("Dropping packet from a device without a session")

		return
	}

	if p.Type == protocol.TypePair {
		c.handlePair(lnk, p)
		return
	}

	if err := c.registry.Route(p); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"device": deviceId,
			"type":   p.Type,
		}).Debug("Routing finished with plugin errors")
	}
}

// handlePair reacts to pair packets of a session peer. Pairing itself is
// settled at handshake time, so the only request left is an unpairing,
// which drops the stored record and closes the connection.
func (c *Core) handlePair(lnk link.Link, p protocol.Packet) {
	deviceId := lnk.PeerIdentity().DeviceID

	pair, ok := p.BodyBool("pair")
	if !ok {
		log.WithField("device", deviceId).Debug("Dropping pair packet without a pair field")
		return
	}
	if pair {
		// Both sides are already paired, nothing to negotiate.
		return
	}

	log.WithField("device", deviceId).Info("Peer requested unpairing")

	if err := c.policy.Reject(deviceId); err != nil {
		log.WithError(err).WithField("device", deviceId).Warn("Dropping pairing record errored")
	}

	go func() { _ = lnk.Close() }()
}

func (c *Core) handleClosed(lnk link.Link, info link.ClosedInfo) {
	deviceId := lnk.PeerIdentity().DeviceID
	if deviceId == "" {
		return
	}

	c.sessionsMutex.Lock()
	session, existed := c.sessions[deviceId]
	if existed && session.lnk == lnk {
		delete(c.sessions, deviceId)
	} else {
		existed = false
	}
	c.sessionsMutex.Unlock()

	if !existed {
		return
	}

	log.WithFields(log.Fields{
		"device": deviceId,
		"kind":   info.Kind,
		"error":  info.Err,
	}).Info("Session closed")

	c.hub.publish(Event{
		Type:   EventClosed,
		Device: deviceId,
		Detail: info.Kind.String(),
	})
}

// writer is the single goroutine touching outgoing Sessions, so Packets
// from concurrent plugins never interleave.
func (c *Core) writer() {
	for ob := range c.outChnl {
		if ob.deviceId != "" {
			if session, ok := c.Session(ob.deviceId); ok {
				c.deliver(session, ob.packet)
			}
			continue
		}

		for _, session := range c.Sessions() {
			c.deliver(session, ob.packet)
		}
	}
}

func (c *Core) deliver(session *Session, p protocol.Packet) {
	if err := session.Send(p); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"device": session.Peer.DeviceID,
			"type":   p.Type,
		}).Warn("Sending packet failed")
	}
}

// Broadcast queues one Packet for every current Session.
func (c *Core) Broadcast(p protocol.Packet) error {
	return c.enqueue(outbound{packet: p})
}

// SendTo queues one Packet for the Session of the given device.
func (c *Core) SendTo(deviceId string, p protocol.Packet) error {
	if _, ok := c.Session(deviceId); !ok {
		return fmt.Errorf("no session with device %s", deviceId)
	}
	return c.enqueue(outbound{deviceId: deviceId, packet: p})
}

func (c *Core) enqueue(ob outbound) (err error) {
	defer func() {
		if r := recover(); r != nil && err == nil {
			err = fmt.Errorf("core is shutting down: %v", r)
		}
	}()

	if c.isStopped() {
		return fmt.Errorf("core is shutting down")
	}

	c.outChnl <- ob
	return nil
}

// Session returns the Session with the given device, if one exists.
func (c *Core) Session(deviceId string) (*Session, bool) {
	c.sessionsMutex.Lock()
	defer c.sessionsMutex.Unlock()

	session, ok := c.sessions[deviceId]
	return session, ok
}

// Sessions returns all current Sessions.
func (c *Core) Sessions() []*Session {
	c.sessionsMutex.Lock()
	defer c.sessionsMutex.Unlock()

	sessions := make([]*Session, 0, len(c.sessions))
	for _, session := range c.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// PairedDevices returns every record of the pairing store.
func (c *Core) PairedDevices() ([]pairing.PairedDevice, error) {
	return c.store.Devices()
}

// AcceptPairing pins a pending device's fingerprint. A still connected
// device becomes a Session right away.
func (c *Core) AcceptPairing(deviceId string) error {
	if err := c.policy.Accept(deviceId); err != nil {
		return err
	}

	if lnk, ok := c.manager.LinkFor(deviceId); ok {
		if _, exists := c.Session(deviceId); !exists {
			c.promote(lnk)
		}
	}

	return nil
}

// RejectPairing drops a pending request or unpairs a trusted device and
// closes its connection.
func (c *Core) RejectPairing(deviceId string) error {
	// Tell a connected peer, best effort; the link closes right after.
	if session, ok := c.Session(deviceId); ok {
		_ = session.Send(protocol.NewPacket(protocol.TypePair,
			map[string]interface{}{"pair": false}))
	}

	if err := c.policy.Reject(deviceId); err != nil {
		return err
	}

	if lnk, ok := c.manager.LinkFor(deviceId); ok {
		go func() { _ = lnk.Close() }()
	}

	return nil
}

// Subscribe to the Core's event stream.
func (c *Core) Subscribe() chan Event {
	return c.hub.subscribe()
}

// Unsubscribe a previously subscribed event channel.
func (c *Core) Unsubscribe(events chan Event) {
	c.hub.unsubscribe(events)
}

func (c *Core) isStopped() bool {
	c.stopFlagMutex.Lock()
	defer c.stopFlagMutex.Unlock()

	return c.stopFlag
}

// Close the Core: links, plugins, event stream and the pairing store.
func (c *Core) Close() error {
	c.stopFlagMutex.Lock()
	c.stopFlag = true
	c.stopFlagMutex.Unlock()

	close(c.stopSyn)
	<-c.stopAck

	return c.store.Close()
}
