// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pairing persists which devices are trusted and decides, on every
// completed handshake, whether a peer may proceed. Trust follows the
// trust-on-first-use model: the first observed certificate fingerprint of
// an accepted device is pinned, every later contact must present the same
// one. The TLS layer itself accepts any certificate; this package is where
// an unknown or changed fingerprint gets refused.
package pairing
