// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// linkElem is a wrapper around a Link to assign a status, supervised by a
// Manager.
type linkElem struct {
	// lnk is the wrapped Link.
	lnk Link

	// mutex protects critical parts.
	mutex sync.Mutex

	// statusChnl is the Manager's inChnl.
	statusChnl chan LinkStatus

	// ttl is used both for determining the activity and for counting-off.
	// A negative ttl implies an active linkElem.
	ttl int

	// stop{Syn,Ack} are used to supervise closing this linkElem, see deactivate()
	stopSyn chan struct{}
	stopAck chan struct{}
}

// newLinkElem creates a new linkElem for a Link with an initial ttl value.
func newLinkElem(lnk Link, statusChnl chan LinkStatus, ttl int) *linkElem {
	return &linkElem{
		lnk:        lnk,
		statusChnl: statusChnl,
		ttl:        ttl,
	}
}

// isActive returns if this linkElem is wrapped around an active Link.
func (le *linkElem) isActive() bool {
	return le.ttl < 0
}

// handler supervises both stopping and LinkStatus forwarding to the Manager.
func (le *linkElem) handler() {
	for {
		select {
		case <-le.stopSyn:
			log.WithFields(log.Fields{
				"link": le.lnk,
			}).Debug("Closing link's handler")

			close(le.stopAck)
			return

		case ls := <-le.lnk.Channel():
			le.statusChnl <- ls
		}
	}
}

// activate tries to start this linkElem. Both a success message and an
// indicator for a new attempt are returned.
func (le *linkElem) activate() (successful, retry bool) {
	if le.isActive() {
		return
	}

	le.mutex.Lock()
	defer le.mutex.Unlock()

	if le.ttl == 0 && !le.lnk.IsPermanent() {
		log.WithFields(log.Fields{
			"link":  le.lnk,
			"error": "TTL expired",
		}).Info("Failed to start link")

		return false, false
	}

	lnkErr, lnkRetry := le.lnk.Start()
	if lnkErr == nil {
		log.WithFields(log.Fields{
			"link": le.lnk,
		}).Info("Started link")

		le.ttl = -1

		le.stopSyn = make(chan struct{})
		le.stopAck = make(chan struct{})
		go le.handler()

		return true, false
	} else {
		log.WithFields(log.Fields{
			"link":      le.lnk,
			"permanent": le.lnk.IsPermanent(),
			"ttl":       le.ttl,
			"retry":     lnkRetry,
			"error":     lnkErr,
		}).Info("Failed to start link")

		if lnkRetry {
			le.ttl -= 1
		} else {
			le.ttl = 0
		}

		return false, lnkRetry
	}
}

// deactivate marks this linkElem as deactivated. Both a new ttl as well as
// whether Close should be executed can be specified.
func (le *linkElem) deactivate(ttl int, closeCall bool) {
	if !le.isActive() {
		return
	}

	log.WithFields(log.Fields{
		"link":  le.lnk,
		"close": closeCall,
	}).Info("Deactivating link")

	if closeCall {
		_ = le.lnk.Close()
	}

	close(le.stopSyn)
	<-le.stopAck

	le.ttl = ttl
}
