// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package plugin

import (
	"sync"

	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// mockPlugin is a configurable Plugin for Registry tests.
type mockPlugin struct {
	mutex sync.Mutex

	name     string
	incoming []string
	outgoing []string

	initErr   error
	handleErr error

	sender    PacketSender
	handled   []protocol.Packet
	shutdowns int
}

func (mp *mockPlugin) Name() string {
	return mp.name
}

func (mp *mockPlugin) IncomingCapabilities() []string {
	return mp.incoming
}

func (mp *mockPlugin) OutgoingCapabilities() []string {
	return mp.outgoing
}

func (mp *mockPlugin) Initialize(sender PacketSender) error {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()

	if mp.initErr != nil {
		return mp.initErr
	}

	mp.sender = sender
	return nil
}

func (mp *mockPlugin) HandlePacket(p protocol.Packet) error {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()

	mp.handled = append(mp.handled, p)
	return mp.handleErr
}

func (mp *mockPlugin) Shutdown() error {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()

	mp.shutdowns++
	return nil
}

func (mp *mockPlugin) handledCount() int {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()

	return len(mp.handled)
}

func (mp *mockPlugin) shutdownCount() int {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()

	return mp.shutdowns
}

// captureSender records every sent Packet.
type captureSender struct {
	mutex   sync.Mutex
	packets []protocol.Packet
}

func (cs *captureSender) SendPacket(p protocol.Packet) error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.packets = append(cs.packets, p)
	return nil
}

func (cs *captureSender) sent() []protocol.Packet {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	return append([]protocol.Packet{}, cs.packets...)
}
