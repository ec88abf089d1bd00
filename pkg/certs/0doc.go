// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package certs manages a device's self-signed identity certificate:
// generation, validation, SHA-256 fingerprinting and PEM persistence behind
// a pluggable Storage. There is no CA and no chain; the fingerprint is the
// trust anchor, consumed by the pairing layer.
package certs
