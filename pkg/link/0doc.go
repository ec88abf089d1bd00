// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package link defines the interfaces of the link layer.
//
// A Link is an established, mutually authenticated packet channel to one
// peer device. A Provider, e.g., a TCP listener, creates new Links and
// reports them to a Manager.
//
// The Manager supervises Links and Providers, retries failed activations
// and forwards each Link's status messages upstream through one channel.
// Retry and reconnect policy lives here, above the channel layer, which
// itself never retries.
//
// The deterministic connection role negotiation is implemented by
// ShouldInitiateConnection and RoleFor.
package link
