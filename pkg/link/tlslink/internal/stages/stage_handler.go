// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stages

import (
	"net"
	"sync"
)

// StageSetup wraps a Stage with two possible hooks (pre and post) to be used
// within the StageHandler.
type StageSetup struct {
	// Stage to be executed.
	Stage Stage

	// PreHook will be executed before starting the Stage, if not nil.
	PreHook func(*StageHandler, *State) error
	// PostHook will be executed after a finished Stage, if not nil.
	PostHook func(*StageHandler, *State) error
}

// StageHandler executes a sequence of Stages and passes the State from one
// Stage to another. Errors might be propagated back through the Error
// method; a closed error channel without a previous error indicates a
// completed handshake.
type StageHandler struct {
	stages []StageSetup
	state  *State

	errChan   chan error
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewStageHandler for a slice of Stages, an established conn and a
// Configuration.
func NewStageHandler(setups []StageSetup, conn net.Conn, config Configuration) (sh *StageHandler) {
	sh = &StageHandler{
		stages: setups,
		state: &State{
			Configuration: config,
			Conn:          conn,
		},

		errChan:   make(chan error),
		closeChan: make(chan struct{}),
	}

	go sh.handler()

	return
}

func (sh *StageHandler) handler() {
	defer close(sh.errChan)

	for i := 0; i < len(sh.stages); i++ {
		select {
		case <-sh.closeChan:
			sh.errChan <- StageClose
			return
		default:
		}

		if sh.stages[i].PreHook != nil {
			if err := sh.stages[i].PreHook(sh, sh.state); err != nil {
				sh.errChan <- err
				return
			}
		}

		sh.stages[i].Stage.Handle(sh.state, sh.closeChan)
		if err := sh.state.StageError; err != nil {
			sh.errChan <- err
			return
		}

		if sh.stages[i].PostHook != nil {
			if err := sh.stages[i].PostHook(sh, sh.state); err != nil {
				sh.errChan <- err
				return
			}
		}
	}
}

// Error might return errors risen in a Stage. The channel is closed after
// the last Stage finished.
func (sh *StageHandler) Error() <-chan error {
	return sh.errChan
}

// State of the Stages after completion. Only meaningful once the Error
// channel was closed without an error.
func (sh *StageHandler) State() *State {
	return sh.state
}

// Close this StageHandler and the current Stage. The underlying conn is
// closed as well to interrupt blocking I/O.
func (sh *StageHandler) Close() error {
	sh.closeOnce.Do(func() {
		close(sh.closeChan)
		_ = sh.state.Conn.Close()
	})
	return nil
}
