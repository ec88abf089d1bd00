// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package plugin defines the handler interface for packet types and the
// Registry routing incoming Packets to registered Plugins. A Plugin
// declares the packet types it consumes and emits; the union of all
// declared types becomes the capability lists announced in the identity
// handshake.
//
// The reference Plugins for "x.ping" and "x.battery" live here as well.
package plugin
