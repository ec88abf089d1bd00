// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package identity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// deviceIdPattern limits device ids to a safe, filename- and DN-compatible
// alphabet.
var deviceIdPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Identity describes one device for a session: its stable id, display name,
// protocol version and declared capability sets. An Identity is immutable
// for the lifetime of a session.
type Identity struct {
	DeviceID             string
	DeviceName           string
	ProtocolVersion      int
	IncomingCapabilities []string
	OutgoingCapabilities []string
	TcpPort              uint16
}

// NewDeviceID generates a fresh random device id.
func NewDeviceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "_")
}

// ValidateDeviceID checks a device id against the allowed alphabet.
func ValidateDeviceID(deviceId string) error {
	if !deviceIdPattern.MatchString(deviceId) {
		return fmt.Errorf("device id %q is empty, too long or contains characters outside [A-Za-z0-9_-]", deviceId)
	}
	return nil
}

// Packet builds a fresh x.identity Packet for this Identity. Capability
// lists are sorted copies, keeping the wire representation deterministic.
func (id Identity) Packet() protocol.Packet {
	incoming := append([]string(nil), id.IncomingCapabilities...)
	outgoing := append([]string(nil), id.OutgoingCapabilities...)
	sort.Strings(incoming)
	sort.Strings(outgoing)

	return protocol.NewPacket(protocol.TypeIdentity, map[string]interface{}{
		"deviceId":             id.DeviceID,
		"deviceName":           id.DeviceName,
		"protocolVersion":      id.ProtocolVersion,
		"incomingCapabilities": incoming,
		"outgoingCapabilities": outgoing,
		"tcpPort":              int(id.TcpPort),
	})
}

// FromPacket extracts an Identity from an x.identity Packet. Missing
// required fields or an unsupported protocol version result in an
// InvalidPacketError.
func FromPacket(p protocol.Packet) (id Identity, err error) {
	if p.Type != protocol.TypeIdentity {
		err = &protocol.InvalidPacketError{Reason: fmt.Sprintf("type %s is no identity packet", p.Type)}
		return
	}

	deviceId, ok := p.BodyString("deviceId")
	if !ok {
		err = &protocol.InvalidPacketError{Reason: "identity packet misses deviceId"}
		return
	}
	if idErr := ValidateDeviceID(deviceId); idErr != nil {
		err = &protocol.InvalidPacketError{Reason: "identity packet carries invalid deviceId", Cause: idErr}
		return
	}

	deviceName, ok := p.BodyString("deviceName")
	if !ok || deviceName == "" {
		err = &protocol.InvalidPacketError{Reason: "identity packet misses deviceName"}
		return
	}

	version, ok := p.BodyInt("protocolVersion")
	if !ok {
		err = &protocol.InvalidPacketError{Reason: "identity packet misses protocolVersion"}
		return
	}
	if version < protocol.MinVersion {
		err = &protocol.InvalidPacketError{
			Reason: fmt.Sprintf("protocol version %d is older than the supported minimum %d", version, protocol.MinVersion),
		}
		return
	}

	incoming, _ := p.BodyStringSlice("incomingCapabilities")
	outgoing, _ := p.BodyStringSlice("outgoingCapabilities")

	port, _ := p.BodyInt("tcpPort")
	if port < 0 || port > 65535 {
		err = &protocol.InvalidPacketError{Reason: fmt.Sprintf("tcpPort %d is out of range", port)}
		return
	}

	id = Identity{
		DeviceID:             deviceId,
		DeviceName:           deviceName,
		ProtocolVersion:      version,
		IncomingCapabilities: incoming,
		OutgoingCapabilities: outgoing,
		TcpPort:              uint16(port),
	}
	return
}

func (id Identity) String() string {
	return fmt.Sprintf("Identity(%s,%s,v%d)", id.DeviceID, id.DeviceName, id.ProtocolVersion)
}
