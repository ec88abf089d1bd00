// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package identity holds a device's Identity: the stable device id acting as
// trust anchor and TLS role discriminator, the display name and the declared
// capability sets. It also converts Identities from and to their x.identity
// Packet representation used during the handshake.
package identity
