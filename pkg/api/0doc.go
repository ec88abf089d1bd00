// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api exposes a local control surface over HTTP: device status and
// the paired device list as REST resources, pairing accept/reject verbs,
// and the Core's event stream over a websocket. The server is meant to
// bind to localhost only; everyone who can reach it is trusted as much as
// the daemon itself.
package api
