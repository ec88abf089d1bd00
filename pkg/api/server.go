// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/devbridge/devbridge-go/pkg/core"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// Server is the local HTTP control surface of a Core.
type Server struct {
	core   *core.Core
	router *mux.Router
	srv    *http.Server

	upgrader websocket.Upgrader
}

// NewServer for a Core, bound to the given listen address once started.
func NewServer(listenAddress string, c *core.Core) (s *Server) {
	s = &Server{
		core:   c,
		router: mux.NewRouter(),

		upgrader: websocket.Upgrader{},
	}

	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/devices", s.handleDevices).Methods(http.MethodGet)
	s.router.HandleFunc("/devices/{deviceId}/accept", s.handleAccept).Methods(http.MethodPost)
	s.router.HandleFunc("/devices/{deviceId}/reject", s.handleReject).Methods(http.MethodPost)
	s.router.HandleFunc("/devices/{deviceId}/ping", s.handlePing).Methods(http.MethodPost)
	s.router.HandleFunc("/events", s.handleEvents)

	s.srv = &http.Server{
		Addr:    listenAddress,
		Handler: s.router,
	}

	return
}

// Start serving in the background. The listen error, e.g., an occupied
// port, is returned right away.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	log.WithField("address", s.srv.Addr).Info("API server listening")

	go func() {
		if serveErr := s.srv.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			log.WithError(serveErr).Error("API server failed")
		}
	}()

	return nil
}

// Close the Server, waiting for running requests.
func (s *Server) Close() error {
	return s.srv.Shutdown(context.Background())
}

// ServeHTTP dispatches to the Server's router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write API response")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	id := s.core.Identity()

	writeJSON(w, http.StatusOK, StatusResponse{
		DeviceID:             id.DeviceID,
		DeviceName:           id.DeviceName,
		ProtocolVersion:      id.ProtocolVersion,
		Fingerprint:          s.core.Fingerprint(),
		IncomingCapabilities: id.IncomingCapabilities,
		OutgoingCapabilities: id.OutgoingCapabilities,
		Sessions:             len(s.core.Sessions()),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	stored, err := s.core.PairedDevices()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	devices := make([]DeviceResponse, 0, len(stored))
	for _, device := range stored {
		response := DeviceResponse{
			DeviceID:    device.DeviceID,
			DeviceName:  device.DeviceName,
			Fingerprint: device.Fingerprint,
			Trusted:     device.Trusted,
			PairedAt:    device.PairedAt,
			LastSeen:    device.LastSeen,
		}

		if session, ok := s.core.Session(device.DeviceID); ok {
			response.Connected = true
			response.Role = session.Role.String()
		}

		devices = append(devices, response)
	}

	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	deviceId := mux.Vars(r)["deviceId"]

	if err := s.core.AcceptPairing(deviceId); err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	deviceId := mux.Vars(r)["deviceId"]

	if err := s.core.RejectPairing(deviceId); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	deviceId := mux.Vars(r)["deviceId"]

	if err := s.core.SendTo(deviceId, protocol.NewPacket(protocol.TypePing, nil)); err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// handleEvents upgrades to a websocket and streams the Core's events until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	events := s.core.Subscribe()

	// Drain the client side only to notice its disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	defer func() {
		s.core.Unsubscribe(events)
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if writeErr := conn.WriteJSON(event); writeErr != nil {
				return
			}

		case <-closed:
			return
		}
	}
}
