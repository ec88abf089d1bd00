// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

// Role of a device within one Link's TLS session. The protocol inverts the
// conventional mapping: the device initiating the TCP connection plays the
// TLS server, the accepting device the TLS client.
type Role uint

const (
	_ Role = iota

	// RoleServer is the TLS server role, played by the TCP initiator.
	RoleServer

	// RoleClient is the TLS client role, played by the TCP acceptor.
	RoleClient
)

func (role Role) String() string {
	switch role {
	case RoleServer:
		return "tls-server"
	case RoleClient:
		return "tls-client"
	default:
		return "unknown"
	}
}

// ShouldInitiateConnection decides if this device opens the TCP connection
// towards the peer: the lexicographically smaller device id always
// initiates. For any two distinct ids exactly one side returns true, so
// both peers never dial simultaneously.
func ShouldInitiateConnection(ourDeviceId, peerDeviceId string) bool {
	return ourDeviceId < peerDeviceId
}

// RoleFor derives this device's TLS Role towards a peer from the device id
// comparison alone, never from who happened to dial. Both ends thereby
// always pick complementary roles, even against a peer violating the
// initiation ordering.
func RoleFor(ourDeviceId, peerDeviceId string) Role {
	if ShouldInitiateConnection(ourDeviceId, peerDeviceId) {
		return RoleServer
	}
	return RoleClient
}
