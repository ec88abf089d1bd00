// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Event types published on the Core's event stream.
const (
	EventEstablished    = "established"
	EventClosed         = "closed"
	EventPairingRequest = "pairing-request"
	EventPairingDenied  = "pairing-denied"
)

// Event is one entry of the Core's event stream, consumed by local UIs
// through the websocket feed.
type Event struct {
	Type   string    `json:"type"`
	Device string    `json:"device,omitempty"`
	Name   string    `json:"name,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// eventHub fans Events out to subscribers. A slow subscriber loses Events
// instead of stalling the dispatcher.
type eventHub struct {
	mutex       sync.Mutex
	subscribers map[chan Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subscribers: make(map[chan Event]struct{})}
}

func (hub *eventHub) subscribe() chan Event {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	c := make(chan Event, 32)
	hub.subscribers[c] = struct{}{}
	return c
}

func (hub *eventHub) unsubscribe(c chan Event) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if _, exists := hub.subscribers[c]; exists {
		delete(hub.subscribers, c)
		close(c)
	}
}

func (hub *eventHub) publish(event Event) {
	event.Time = time.Now()

	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for c := range hub.subscribers {
		select {
		case c <- event:
		default:
			log.WithField("event", event.Type).Debug("Dropped event for a slow subscriber")
		}
	}
}

func (hub *eventHub) closeAll() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for c := range hub.subscribers {
		close(c)
	}
	hub.subscribers = make(map[chan Event]struct{})
}
