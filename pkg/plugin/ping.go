// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package plugin

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// PingPlugin acknowledges incoming "x.ping" packets and tracks packet
// counts for diagnostics.
//
// Only pings without a message body are answered. Replies carry one, so
// two answering devices do not bounce pings back and forth forever.
type PingPlugin struct {
	mutex  sync.Mutex
	sender PacketSender

	reply    bool
	counter  int64
	sent     int64
	received int64
}

// NewPingPlugin, answering incoming pings if reply is set.
func NewPingPlugin(reply bool) *PingPlugin {
	return &PingPlugin{reply: reply}
}

func (p *PingPlugin) Name() string {
	return "ping"
}

func (p *PingPlugin) IncomingCapabilities() []string {
	return []string{protocol.TypePing}
}

func (p *PingPlugin) OutgoingCapabilities() []string {
	return []string{protocol.TypePing}
}

func (p *PingPlugin) Initialize(sender PacketSender) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.sender = sender
	return nil
}

func (p *PingPlugin) HandlePacket(pkt protocol.Packet) error {
	if pkt.Type != protocol.TypePing {
		return nil
	}

	p.mutex.Lock()
	p.received++
	sender := p.sender
	answer := p.reply && sender != nil
	p.mutex.Unlock()

	message, hasMessage := pkt.BodyString("message")
	log.WithFields(log.Fields{
		"plugin":  p.Name(),
		"message": message,
	}).Info("Received ping")

	if !answer || hasMessage {
		return nil
	}

	return p.SendPing()
}

// SendPing emits one ping packet with an incrementing counter message.
func (p *PingPlugin) SendPing() error {
	p.mutex.Lock()
	sender := p.sender
	p.counter++
	n := p.counter
	p.mutex.Unlock()

	if sender == nil {
		return fmt.Errorf("ping plugin is not initialized")
	}

	err := sender.SendPacket(protocol.NewPacket(protocol.TypePing, map[string]interface{}{
		"message": fmt.Sprintf("pong %d", n),
	}))
	if err != nil {
		return err
	}

	p.mutex.Lock()
	p.sent++
	p.mutex.Unlock()

	return nil
}

// Counts returns the number of sent and received pings.
func (p *PingPlugin) Counts() (sent, received int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.sent, p.received
}

func (p *PingPlugin) Shutdown() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.sender = nil
	return nil
}
