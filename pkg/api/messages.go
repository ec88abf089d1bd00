// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"time"
)

// StatusResponse describes the local device.
type StatusResponse struct {
	DeviceID             string   `json:"deviceId"`
	DeviceName           string   `json:"deviceName"`
	ProtocolVersion      int      `json:"protocolVersion"`
	Fingerprint          string   `json:"fingerprint"`
	IncomingCapabilities []string `json:"incomingCapabilities"`
	OutgoingCapabilities []string `json:"outgoingCapabilities"`
	Sessions             int      `json:"sessions"`
}

// DeviceResponse describes one known peer device, merged from the pairing
// store and the currently connected sessions.
type DeviceResponse struct {
	DeviceID    string    `json:"deviceId"`
	DeviceName  string    `json:"deviceName"`
	Fingerprint string    `json:"fingerprint"`
	Trusted     bool      `json:"trusted"`
	PairedAt    time.Time `json:"pairedAt,omitempty"`
	LastSeen    time.Time `json:"lastSeen,omitempty"`

	Connected bool   `json:"connected"`
	Role      string `json:"role,omitempty"`
}

// ErrorResponse carries a failed request's reason.
type ErrorResponse struct {
	Error string `json:"error"`
}
