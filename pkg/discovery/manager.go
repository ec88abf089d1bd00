// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/schollz/peerdiscovery"

	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/link"
)

// Candidate is a discovered peer worth connecting to: who it is and where
// to reach it.
type Candidate struct {
	DeviceID   string
	DeviceName string
	Address    string
	Port       int
}

// Manager publishes and receives Announcements. Discovered peers for which
// this device is the connection initiator are handed to the register
// callback; the other side just waits for the inbound connection.
type Manager struct {
	localId      string
	registerFunc func(Candidate)

	stopChan4 chan struct{}
	stopChan6 chan struct{}
}

// NewManager starts announcing the given Identity and listening for peers.
func NewManager(
	localIdentity identity.Identity, registerFunc func(Candidate),
	announcementInterval time.Duration, ipv4, ipv6 bool) (*Manager, error) {

	manager := &Manager{
		localId:      localIdentity.DeviceID,
		registerFunc: registerFunc,
	}
	if ipv4 {
		manager.stopChan4 = make(chan struct{})
	}
	if ipv6 {
		manager.stopChan6 = make(chan struct{})
	}

	log.WithFields(log.Fields{
		"interval": announcementInterval,
		"IPv4":     ipv4,
		"IPv6":     ipv6,
		"device":   localIdentity.DeviceID,
	}).Info("Starting discovery Manager")

	msg, err := MarshalAnnouncement(NewAnnouncement(localIdentity))
	if err != nil {
		return nil, err
	}

	sets := []struct {
		active           bool
		multicastAddress string
		stopChan         chan struct{}
		ipVersion        peerdiscovery.IPVersion
		notify           func(discovered peerdiscovery.Discovered)
	}{
		{ipv4, address4, manager.stopChan4, peerdiscovery.IPv4, manager.notify},
		{ipv6, address6, manager.stopChan6, peerdiscovery.IPv6, manager.notify6},
	}

	for _, set := range sets {
		if !set.active {
			continue
		}

		settings := peerdiscovery.Settings{
			Limit:            -1,
			Port:             fmt.Sprintf("%d", port),
			MulticastAddress: set.multicastAddress,
			Payload:          msg,
			Delay:            announcementInterval,
			TimeLimit:        -1,
			StopChan:         set.stopChan,
			AllowSelf:        true,
			IPVersion:        set.ipVersion,
			Notify:           set.notify,
		}

		discoverErrChan := make(chan error)
		go func() {
			_, discoverErr := peerdiscovery.Discover(settings)
			discoverErrChan <- discoverErr
		}()

		select {
		case discoverErr := <-discoverErrChan:
			if discoverErr != nil {
				return nil, discoverErr
			}

		case <-time.After(time.Second):
			break
		}
	}

	return manager, nil
}

func (manager *Manager) notify6(discovered peerdiscovery.Discovered) {
	discovered.Address = fmt.Sprintf("[%s]", discovered.Address)

	manager.notify(discovered)
}

func (manager *Manager) notify(discovered peerdiscovery.Discovered) {
	announcement, err := UnmarshalAnnouncement(discovered.Payload)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"peer": discovered.Address,
		}).Warn("Peer discovery failed to parse an incoming datagram")

		return
	}

	go manager.handleDiscovery(announcement, discovered.Address)
}

func (manager *Manager) handleDiscovery(announcement Announcement, addr string) {
	log.WithFields(log.Fields{
		"peer":    addr,
		"message": announcement,
	}).Debug("Peer discovery received an announcement")

	if announcement.DeviceID == manager.localId {
		return
	}

	// The device with the smaller id dials; the other one only listens for
	// the inbound connection and must not act on this announcement.
	if !link.ShouldInitiateConnection(manager.localId, announcement.DeviceID) {
		return
	}

	manager.registerFunc(Candidate{
		DeviceID:   announcement.DeviceID,
		DeviceName: announcement.DeviceName,
		Address:    addr,
		Port:       announcement.TcpPort,
	})
}

// Close this Manager.
func (manager *Manager) Close() {
	for _, c := range []chan struct{}{manager.stopChan4, manager.stopChan6} {
		if c != nil {
			c <- struct{}{}
		}
	}
}
