// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package plugin

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// Registry maps packet types to registered Plugins and routes incoming
// Packets. Routing happens under a read lock so many Route calls may run
// concurrently, while registration changes take the write lock.
type Registry struct {
	mutex sync.RWMutex

	// plugins maps each Plugin's name to its registration.
	plugins map[string]*registration

	// byType maps a packet type to the names of all Plugins claiming it
	// as an incoming capability.
	byType map[string][]string

	sender PacketSender
}

type registration struct {
	plugin Plugin
	state  State
}

// NewRegistry with the PacketSender handed to every Plugin's Initialize.
func NewRegistry(sender PacketSender) *Registry {
	return &Registry{
		plugins: make(map[string]*registration),
		byType:  make(map[string][]string),
		sender:  sender,
	}
}

// Register a Plugin and run its Initialize. A name collision is refused
// with a DuplicateHandlerError. Packets are only routed to this Plugin
// after a successful Initialize.
func (registry *Registry) Register(p Plugin) error {
	registry.mutex.Lock()

	if _, exists := registry.plugins[p.Name()]; exists {
		registry.mutex.Unlock()
		return &DuplicateHandlerError{Name: p.Name()}
	}

	reg := &registration{plugin: p, state: StateRegistered}
	registry.plugins[p.Name()] = reg
	for _, packetType := range p.IncomingCapabilities() {
		registry.byType[packetType] = append(registry.byType[packetType], p.Name())
	}

	registry.mutex.Unlock()

	if err := p.Initialize(registry.sender); err != nil {
		registry.remove(p.Name())
		return err
	}

	registry.mutex.Lock()
	reg.state = StateInitialized
	registry.mutex.Unlock()

	log.WithFields(log.Fields{
		"plugin":   p.Name(),
		"incoming": p.IncomingCapabilities(),
		"outgoing": p.OutgoingCapabilities(),
	}).Info("Registered plugin")

	return nil
}

// Unregister the named Plugin and run its Shutdown. Unknown names are a
// no-op; a peer asking for the removal of something absent already has
// what it wanted.
func (registry *Registry) Unregister(name string) {
	reg := registry.remove(name)
	if reg == nil {
		return
	}

	if err := reg.plugin.Shutdown(); err != nil {
		log.WithError(err).WithField("plugin", name).Warn("Plugin shutdown errored")
	}

	registry.mutex.Lock()
	reg.state = StateRemoved
	registry.mutex.Unlock()
}

// remove the named registration from both lookup tables and mark it as
// shutting down. Returns nil for unknown names.
func (registry *Registry) remove(name string) *registration {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	reg, exists := registry.plugins[name]
	if !exists {
		return nil
	}

	reg.state = StateShuttingDown
	delete(registry.plugins, name)

	for packetType, names := range registry.byType {
		for i, known := range names {
			if known == name {
				registry.byType[packetType] = append(names[:i], names[i+1:]...)
				break
			}
		}
		if len(registry.byType[packetType]) == 0 {
			delete(registry.byType, packetType)
		}
	}

	return reg
}

// Plugin returns the registered Plugin with the given name or an
// UnknownHandlerError.
func (registry *Registry) Plugin(name string) (Plugin, error) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	reg, exists := registry.plugins[name]
	if !exists {
		return nil, &UnknownHandlerError{Name: name}
	}
	return reg.plugin, nil
}

// Capabilities returns the sorted unions of all registered Plugins'
// incoming and outgoing packet types, used to populate the identity
// packet of the handshake.
func (registry *Registry) Capabilities() (incoming, outgoing []string) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	inSet := make(map[string]struct{})
	outSet := make(map[string]struct{})
	for _, reg := range registry.plugins {
		for _, packetType := range reg.plugin.IncomingCapabilities() {
			inSet[packetType] = struct{}{}
		}
		for _, packetType := range reg.plugin.OutgoingCapabilities() {
			outSet[packetType] = struct{}{}
		}
	}

	for packetType := range inSet {
		incoming = append(incoming, packetType)
	}
	for packetType := range outSet {
		outgoing = append(outgoing, packetType)
	}

	sort.Strings(incoming)
	sort.Strings(outgoing)
	return
}

// Route a Packet to every initialized Plugin claiming its type. A failing
// Plugin does not keep the Packet from the others; their errors are
// collected. An unclaimed packet type is a no-op since peers with richer
// capability sets legitimately send types nobody here handles.
func (registry *Registry) Route(p protocol.Packet) error {
	registry.mutex.RLock()

	var targets []Plugin
	for _, name := range registry.byType[p.Type] {
		if reg, exists := registry.plugins[name]; exists && reg.state == StateInitialized {
			targets = append(targets, reg.plugin)
		}
	}

	registry.mutex.RUnlock()

	if len(targets) == 0 {
		log.WithField("type", p.Type).Debug("No plugin claims this packet type")
		return nil
	}

	var errs *multierror.Error
	for _, target := range targets {
		if err := target.HandlePacket(p); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"plugin": target.Name(),
				"type":   p.Type,
			}).Warn("Plugin errored while handling a packet")

			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

// Shutdown every registered Plugin and empty the Registry, collecting the
// individual shutdown errors.
func (registry *Registry) Shutdown() error {
	registry.mutex.Lock()

	regs := make([]*registration, 0, len(registry.plugins))
	for _, reg := range registry.plugins {
		reg.state = StateShuttingDown
		regs = append(regs, reg)
	}
	registry.plugins = make(map[string]*registration)
	registry.byType = make(map[string][]string)

	registry.mutex.Unlock()

	var errs *multierror.Error
	for _, reg := range regs {
		if err := reg.plugin.Shutdown(); err != nil {
			errs = multierror.Append(errs, err)
		}
		reg.state = StateRemoved
	}

	return errs.ErrorOrNil()
}
