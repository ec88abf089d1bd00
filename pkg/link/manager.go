// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Manager monitors and manages Links and Providers, retries failed
// activations and forwards LinkStatus messages. The recipient can act on
// these without taking care of link administration themselves.
type Manager struct {
	// queueTtl is the amount of retries for a Link.
	queueTtl int

	// retryTime is the duration between two activation attempts.
	retryTime time.Duration

	// links maps each Link's address to a wrapped linkElem struct.
	// links: Map[string]*linkElem
	links *sync.Map

	// providers is an array of Providers. Those will report their created
	// Links to this Manager, which also supervises them.
	providers      []Provider
	providersMutex sync.Mutex

	// inChnl receives LinkStatus while outChnl passes it on. outChnl must
	// always be read, otherwise the Manager will block.
	inChnl  chan LinkStatus
	outChnl chan LinkStatus

	// stop{Syn,Ack} are used to supervise closing this Manager, see Close()
	stopSyn chan struct{}
	stopAck chan struct{}

	// stopFlag and its mutex protect the Manager against acting on new
	// Links after the Close method was called once.
	stopFlag      bool
	stopFlagMutex sync.Mutex
}

// NewManager creates a new Manager to supervise Links and Providers.
func NewManager() *Manager {
	manager := &Manager{
		queueTtl:  10,
		retryTime: 10 * time.Second,

		links: new(sync.Map),

		inChnl:  make(chan LinkStatus, 100),
		outChnl: make(chan LinkStatus),

		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),

		stopFlag: false,
	}

	go manager.handler()

	return manager
}

// handler is the internal goroutine for management.
func (manager *Manager) handler() {
	activateTicker := time.NewTicker(manager.retryTime)
	defer activateTicker.Stop()

	for {
		select {
		case <-manager.stopSyn:
			log.Debug("Link Manager received closing signal")

			manager.links.Range(func(_, elem interface{}) bool {
				manager.Unregister(elem.(*linkElem).lnk)
				return true
			})

			manager.providersMutex.Lock()
			for _, provider := range manager.providers {
				_ = provider.Close()
			}
			manager.providersMutex.Unlock()

			close(manager.inChnl)
			close(manager.outChnl)

			close(manager.stopAck)
			return

		case ls := <-manager.inChnl:
			log.WithFields(log.Fields{
				"type":   ls.MessageType,
				"status": ls.String(),
			}).Debug("Link Manager received LinkStatus")

			switch ls.MessageType {
			case LinkClosed:
				info := ls.Message.(ClosedInfo)
				log.WithFields(log.Fields{
					"link":  ls.Sender,
					"kind":  info.Kind,
					"error": info.Err,
				}).Info("Link Manager received Link Closed, unregistering link")

				manager.Unregister(ls.Sender)
				manager.outChnl <- ls

			default:
				manager.outChnl <- ls
			}

		case <-activateTicker.C:
			manager.links.Range(func(key, elem interface{}) bool {
				le := elem.(*linkElem)
				if le.isActive() {
					return true
				}

				if successful, retry := le.activate(); !successful && !retry {
					log.WithFields(log.Fields{
						"link": le.lnk,
					}).Warn("Startup of link failed, a retry should not be made")

					manager.links.Delete(key)
				}
				return true
			})
		}
	}
}

// Channel references the outgoing channel for LinkStatus messages.
func (manager *Manager) Channel() chan LinkStatus {
	return manager.outChnl
}

// isStopped signals if the Manager should be stopped.
func (manager *Manager) isStopped() bool {
	manager.stopFlagMutex.Lock()
	defer manager.stopFlagMutex.Unlock()

	return manager.stopFlag
}

// Close the Manager and all supervised Links and Providers.
func (manager *Manager) Close() error {
	manager.stopFlagMutex.Lock()
	manager.stopFlag = true
	manager.stopFlagMutex.Unlock()

	close(manager.stopSyn)
	<-manager.stopAck

	return nil
}

// Register any kind of link-layer Component, Link or Provider.
func (manager *Manager) Register(c Component) {
	if manager.isStopped() {
		return
	}

	if lnk, ok := c.(Link); ok {
		manager.registerLink(lnk)
	} else if provider, ok := c.(Provider); ok {
		manager.registerProvider(provider)
	} else {
		log.WithField("component", c).Warn("Unknown kind of link Component")
	}
}

func (manager *Manager) registerLink(lnk Link) {
	// Check if this Link is already known. Re-activate a deactivated Link or abort.
	var le *linkElem
	if elem, exists := manager.links.Load(lnk.Address()); exists {
		le = elem.(*linkElem)
		if le.isActive() {
			log.WithFields(log.Fields{
				"link":    lnk,
				"address": lnk.Address(),
			}).Debug("Link registration failed, because this address does already exist")

			return
		}
	} else {
		le = newLinkElem(lnk, manager.inChnl, manager.queueTtl)
	}

	if successful, retry := le.activate(); !successful && !retry {
		log.WithFields(log.Fields{
			"link":    lnk,
			"address": lnk.Address(),
		}).Warn("Startup of link failed, a retry should not be made")
	} else {
		manager.links.Store(lnk.Address(), le)
	}
}

func (manager *Manager) registerProvider(provider Provider) {
	manager.providersMutex.Lock()
	defer manager.providersMutex.Unlock()

	for _, known := range manager.providers {
		if provider == known {
			log.WithField("provider", provider).Debug("Provider registration aborted, already known")
			return
		}
	}

	manager.providers = append(manager.providers, provider)

	provider.RegisterManager(manager)

	if err := provider.Start(); err != nil {
		log.WithError(err).WithField("provider", provider).Warn("Starting Provider errored")
	}
}

// Unregister any kind of link-layer Component.
func (manager *Manager) Unregister(c Component) {
	if lnk, ok := c.(Link); ok {
		manager.unregisterLink(lnk)
	} else if provider, ok := c.(Provider); ok {
		manager.unregisterProvider(provider)
	} else {
		log.WithField("component", c).Warn("Unknown kind of link Component")
	}
}

func (manager *Manager) unregisterLink(lnk Link) {
	elem, exists := manager.links.Load(lnk.Address())
	if !exists {
		log.WithFields(log.Fields{
			"link":    lnk,
			"address": lnk.Address(),
		}).Info("Link unregistration failed, this address does not exist")

		return
	}

	elem.(*linkElem).deactivate(manager.queueTtl, true)
	manager.links.Delete(lnk.Address())
}

func (manager *Manager) unregisterProvider(provider Provider) {
	manager.providersMutex.Lock()
	defer manager.providersMutex.Unlock()

	for i, known := range manager.providers {
		if provider == known {
			manager.providers = append(manager.providers[:i], manager.providers[i+1:]...)
			return
		}
	}
}

// Links returns all active Links.
func (manager *Manager) Links() (lnks []Link) {
	manager.links.Range(func(_, elem interface{}) bool {
		le := elem.(*linkElem)
		if le.isActive() {
			lnks = append(lnks, le.lnk)
		}
		return true
	})
	return
}

// LinkFor returns the active Link connected to the given device id.
func (manager *Manager) LinkFor(deviceId string) (lnk Link, ok bool) {
	for _, known := range manager.Links() {
		if known.PeerIdentity().DeviceID == deviceId {
			return known, true
		}
	}
	return nil, false
}

// HasLink reports if an active Link to the given device id exists.
func (manager *Manager) HasLink(deviceId string) bool {
	_, ok := manager.LinkFor(deviceId)
	return ok
}

// SendAll closes over all active Links and collects each Send error.
func (manager *Manager) SendAll(send func(Link) error) error {
	var errs *multierror.Error

	for _, lnk := range manager.Links() {
		if err := send(lnk); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}
