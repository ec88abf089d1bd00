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

// BatteryState is one device's battery snapshot. The low and critical
// thresholds only carry meaning while the device is not charging.
type BatteryState struct {
	IsCharging    bool
	CurrentCharge int
}

// IsLow reports a discharging battery below 15 percent.
func (bs BatteryState) IsLow() bool {
	return !bs.IsCharging && bs.CurrentCharge < 15
}

// IsCritical reports a discharging battery below 5 percent.
func (bs BatteryState) IsCritical() bool {
	return !bs.IsCharging && bs.CurrentCharge < 5
}

func (bs BatteryState) String() string {
	if bs.IsCharging {
		return fmt.Sprintf("%d%%, charging", bs.CurrentCharge)
	}
	return fmt.Sprintf("%d%%", bs.CurrentCharge)
}

// BatteryPlugin announces the local battery state over "x.battery" and
// tracks the peer's last known state. The platform's battery watcher
// pushes local updates in through UpdateLocalState; the plugin never
// polls hardware itself.
type BatteryPlugin struct {
	mutex  sync.Mutex
	sender PacketSender

	localKnown bool
	local      BatteryState

	remoteKnown bool
	remote      BatteryState
}

func NewBatteryPlugin() *BatteryPlugin {
	return &BatteryPlugin{}
}

func (b *BatteryPlugin) Name() string {
	return "battery"
}

func (b *BatteryPlugin) IncomingCapabilities() []string {
	return []string{protocol.TypeBattery, protocol.TypeBatteryRequest}
}

func (b *BatteryPlugin) OutgoingCapabilities() []string {
	return []string{protocol.TypeBattery}
}

func (b *BatteryPlugin) Initialize(sender PacketSender) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.sender = sender
	return nil
}

func (b *BatteryPlugin) HandlePacket(pkt protocol.Packet) error {
	switch pkt.Type {
	case protocol.TypeBattery:
		return b.handleState(pkt)

	case protocol.TypeBatteryRequest:
		return b.handleRequest()

	default:
		return nil
	}
}

func (b *BatteryPlugin) handleState(pkt protocol.Packet) error {
	isCharging, chargingOk := pkt.BodyBool("isCharging")
	currentCharge, chargeOk := pkt.BodyInt("currentCharge")
	if !chargingOk || !chargeOk {
		return &protocol.InvalidPacketError{Reason: "battery state misses isCharging or currentCharge"}
	}

	state := BatteryState{IsCharging: isCharging, CurrentCharge: currentCharge}

	b.mutex.Lock()
	b.remoteKnown = true
	b.remote = state
	b.mutex.Unlock()

	log.WithFields(log.Fields{
		"plugin":  b.Name(),
		"battery": state,
	}).Debug("Peer announced its battery state")

	if state.IsCritical() {
		log.WithField("battery", state).Warn("Peer battery is critical")
	}

	return nil
}

func (b *BatteryPlugin) handleRequest() error {
	b.mutex.Lock()
	sender := b.sender
	known := b.localKnown
	state := b.local
	b.mutex.Unlock()

	// Nothing to announce before the platform pushed a first state in.
	if !known || sender == nil {
		return nil
	}

	return sender.SendPacket(statePacket(state))
}

// UpdateLocalState stores a fresh local battery snapshot and announces it
// to the peers.
func (b *BatteryPlugin) UpdateLocalState(state BatteryState) error {
	b.mutex.Lock()
	b.localKnown = true
	b.local = state
	sender := b.sender
	b.mutex.Unlock()

	if sender == nil {
		return nil
	}

	return sender.SendPacket(statePacket(state))
}

// LocalState returns the last pushed local battery state, if any.
func (b *BatteryPlugin) LocalState() (BatteryState, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.local, b.localKnown
}

// RemoteState returns the peer's last announced battery state, if any.
func (b *BatteryPlugin) RemoteState() (BatteryState, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.remote, b.remoteKnown
}

func statePacket(state BatteryState) protocol.Packet {
	return protocol.NewPacket(protocol.TypeBattery, map[string]interface{}{
		"isCharging":    state.IsCharging,
		"currentCharge": state.CurrentCharge,
	})
}

func (b *BatteryPlugin) Shutdown() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.sender = nil
	return nil
}
