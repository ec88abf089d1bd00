// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package protocol implements the wire data model: the Packet type with its
// newline-delimited UTF-8 JSON representation, the packet type constants and
// the protocol's hard framing limits.
package protocol
