// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package core wires certificate, links, pairing and plugins into one
// running bridge device. The Core consumes the link Manager's status
// stream: every established handshake passes the pairing Policy before a
// Session exists, every received Packet of a trusted Session is routed
// through the plugin Registry, and outgoing Packets leave through one
// writer so concurrent plugins never interleave.
package core
