// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/devbridge/devbridge-go/pkg/api"
	"github.com/devbridge/devbridge-go/pkg/certs"
	"github.com/devbridge/devbridge-go/pkg/core"
	"github.com/devbridge/devbridge-go/pkg/discovery"
	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/pairing"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Device    deviceConf
	Logging   logConf
	Listen    listenConf
	Discovery discoveryConf
	Pairing   pairingConf
	Plugins   pluginsConf
	Api       apiConf `toml:"api"`
}

// deviceConf describes the Device-configuration block.
type deviceConf struct {
	// Id of this device. Generated on first start and persisted in the
	// data directory when left empty.
	Id string

	// Name shown to peers; the hostname when left empty.
	Name string

	// DataDir holds the certificate, device id and pairing database.
	DataDir string `toml:"data-dir"`
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// listenConf describes the Listen-configuration block.
type listenConf struct {
	Port int
}

// discoveryConf describes the Discovery-configuration block.
type discoveryConf struct {
	IPv4     bool
	IPv6     bool
	Interval uint
}

// pairingConf describes the Pairing-configuration block.
type pairingConf struct {
	AutoAccept bool `toml:"auto-accept"`
}

// pluginsConf describes the Plugins-configuration block.
type pluginsConf struct {
	PingReply bool `toml:"ping-reply"`
}

// apiConf describes the Api-configuration block.
type apiConf struct {
	Listen string
}

// applyLogging configures logrus from the Logging block.
func applyLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}

// resolveDeviceId from the configuration or the persisted id file, creating
// a fresh one on the very first start.
func resolveDeviceId(conf deviceConf) (string, error) {
	if conf.Id != "" {
		return conf.Id, identity.ValidateDeviceID(conf.Id)
	}

	idPath := filepath.Join(conf.DataDir, "device-id")

	if data, err := os.ReadFile(idPath); err == nil {
		deviceId := strings.TrimSpace(string(data))
		return deviceId, identity.ValidateDeviceID(deviceId)
	}

	deviceId := identity.NewDeviceID()
	if err := os.WriteFile(idPath, []byte(deviceId+"\n"), 0600); err != nil {
		return "", err
	}

	log.WithField("device", deviceId).Info("Generated a new device id")
	return deviceId, nil
}

// parseCore creates the Core and its surroundings based on the given TOML
// configuration.
func parseCore(filename string) (c *core.Core, ds *discovery.Manager, srv *api.Server, err error) {
	var conf tomlConfig
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	applyLogging(conf.Logging)

	if conf.Device.DataDir == "" {
		err = fmt.Errorf("device.data-dir is empty")
		return
	}
	if mkdirErr := os.MkdirAll(conf.Device.DataDir, 0700); mkdirErr != nil {
		err = mkdirErr
		return
	}

	if conf.Device.Name == "" {
		if conf.Device.Name, err = os.Hostname(); err != nil {
			return
		}
	}
	if conf.Listen.Port == 0 {
		conf.Listen.Port = 1716
	}

	deviceId, idErr := resolveDeviceId(conf.Device)
	if idErr != nil {
		err = idErr
		return
	}

	certStorage, certErr := certs.NewFileStorage(conf.Device.DataDir)
	if certErr != nil {
		err = certErr
		return
	}
	cert, certErr := certs.LoadOrGenerate(certStorage, deviceId)
	if certErr != nil {
		err = certErr
		return
	}

	store, storeErr := pairing.NewStore(filepath.Join(conf.Device.DataDir, "pairing"))
	if storeErr != nil {
		err = storeErr
		return
	}

	c, err = core.NewCore(core.Config{
		DeviceID:    deviceId,
		DeviceName:  conf.Device.Name,
		TcpPort:     conf.Listen.Port,
		Certificate: cert,
		Store:       store,
		AutoAccept:  conf.Pairing.AutoAccept,
		PingReply:   conf.Plugins.PingReply,
	})
	if err != nil {
		return
	}

	log.WithFields(log.Fields{
		"device":      deviceId,
		"fingerprint": c.Fingerprint(),
	}).Info("This device's certificate fingerprint, compare it when pairing")

	// Discovery
	if conf.Discovery.IPv4 || conf.Discovery.IPv6 {
		if conf.Discovery.Interval == 0 {
			conf.Discovery.Interval = 10
		}

		ds, err = discovery.NewManager(
			c.Identity(), c.ConnectTo,
			time.Duration(conf.Discovery.Interval)*time.Second,
			conf.Discovery.IPv4, conf.Discovery.IPv6)
		if err != nil {
			return
		}
	}

	// Local API
	if conf.Api.Listen != "" {
		srv = api.NewServer(conf.Api.Listen, c)
		if err = srv.Start(); err != nil {
			return
		}
	}

	return
}

// watchLogLevel applies Logging block changes of the configuration file at
// runtime, so a stuck daemon can be switched to debug logging without a
// restart.
func watchLogLevel(filename string, stopChan <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("Starting configuration watcher errored")
		return
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory; editors often replace the file on save.
	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		log.WithError(err).Warn("Watching the configuration directory errored")
		return
	}

	for {
		select {
		case <-stopChan:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(filename) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			var conf tomlConfig
			if _, err := toml.DecodeFile(filename, &conf); err != nil {
				log.WithError(err).Warn("Reloading the configuration errored")
				continue
			}

			log.WithField("level", conf.Logging.Level).Info("Applying changed logging configuration")
			applyLogging(conf.Logging)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(watchErr).Warn("Configuration watcher errored")
		}
	}
}
