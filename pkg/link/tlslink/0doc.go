// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tlslink provides the TCP-based Link of the device protocol.
//
// A connection starts in plaintext for the initial identity exchange and is
// then upgraded to TLS with inverted roles: the dialing device plays the
// TLS server, the accepting device the TLS client. After a second,
// encrypted identity exchange the Link is established and exchanges
// newline-delimited JSON Packets.
//
// DialTLS creates the dialing side, the Listener accepts incoming
// connections and reports the resulting Links to its Manager.
package tlslink
