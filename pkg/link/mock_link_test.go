// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"fmt"
	"sync"

	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// mockLink mocks a Link where all fields are directly editable.
type mockLink struct {
	// startable and startableRetry define if this mockLink can be started.
	startable      bool
	startableRetry bool

	// reportChan is the channel, which can be directly used for mocking purpose.
	reportChan chan LinkStatus

	// permanent defines if this mockLink is handled as permanent.
	permanent bool

	// address is the unique address, peer the mocked peer Identity.
	address string
	peer    identity.Identity

	// sentPackets holds all sent Packets, sendFail lets Send fail.
	sentMutex   sync.Mutex
	sentPackets []protocol.Packet
	sendFail    bool
}

func newMockLink(startable bool, address string, peer identity.Identity) *mockLink {
	return &mockLink{
		startable:      startable,
		startableRetry: true,
		reportChan:     make(chan LinkStatus),
		permanent:      false,
		address:        address,
		peer:           peer,
		sentPackets:    make([]protocol.Packet, 0),
		sendFail:       false,
	}
}

func (m *mockLink) Start() (err error, retry bool) {
	if !m.startable {
		err = fmt.Errorf("startable := false")
	}

	retry = m.startableRetry
	return
}

func (m *mockLink) Close() error {
	return nil
}

func (m *mockLink) Channel() chan LinkStatus { return m.reportChan }

func (m *mockLink) Address() string { return m.address }

func (m *mockLink) IsPermanent() bool { return m.permanent }

func (m *mockLink) Send(p protocol.Packet) error {
	if m.sendFail {
		return fmt.Errorf("sendFail := true")
	}

	m.sentMutex.Lock()
	defer m.sentMutex.Unlock()

	m.sentPackets = append(m.sentPackets, p)
	return nil
}

func (m *mockLink) sent() []protocol.Packet {
	m.sentMutex.Lock()
	defer m.sentMutex.Unlock()

	return append([]protocol.Packet(nil), m.sentPackets...)
}

func (m *mockLink) PeerIdentity() identity.Identity { return m.peer }

func (m *mockLink) PeerFingerprint() string { return "00:11:22" }

func (m *mockLink) Role() Role { return RoleClient }

func (m *mockLink) String() string { return m.address }
