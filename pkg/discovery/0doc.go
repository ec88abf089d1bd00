// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package discovery finds other bridge devices on the local network through
// periodic UDP multicast announcements.
package discovery

const (
	// address4 is the default multicast IPv4 address used for discovery.
	address4 = "224.23.17.16"

	// address6 is the default multicast IPv6 address used for discovery.
	address6 = "ff02::1716"

	// port is the default multicast UDP port used for discovery.
	port = 1716
)
