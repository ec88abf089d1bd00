// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// devbridged is the bridge daemon: it announces this device on the local
// network, maintains encrypted sessions with paired peers and serves a
// local control API.
package main

import (
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
)

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	core, discovery, apiServer, err := parseCore(os.Args[1])
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Failed to parse config")
	}

	watcherStop := make(chan struct{})
	go watchLogLevel(os.Args[1], watcherStop)

	waitSigint()
	log.Info("Shutting down..")

	close(watcherStop)

	if apiServer != nil {
		_ = apiServer.Close()
	}
	if discovery != nil {
		discovery.Close()
	}

	_ = core.Close()
}
