// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Packet types known to this core. Plugins may introduce further
// dot-namespaced types without touching this list.
const (
	TypeIdentity       = "x.identity"
	TypePair           = "x.pair"
	TypePing           = "x.ping"
	TypeBattery        = "x.battery"
	TypeBatteryRequest = "x.battery.request"
)

const (
	// Version is the protocol version spoken by this implementation.
	Version = 8

	// MinVersion is the oldest peer protocol version accepted.
	MinVersion = 7

	// MaxPacketSize is the maximum serialized size of a single Packet in
	// bytes. Exceeding it is fatal for the connection.
	MaxPacketSize = 10 * 1024 * 1024
)

// ErrPacketTooLarge is returned for Packets whose serialization exceeds
// MaxPacketSize, both on the read and the write path.
var ErrPacketTooLarge = fmt.Errorf("packet exceeds the maximum size of %d bytes", MaxPacketSize)

// InvalidPacketError describes a structurally broken Packet, e.g., invalid
// JSON or a missing type field. A single invalid Packet is dropped; it does
// not terminate the connection.
type InvalidPacketError struct {
	Reason string
	Cause  error
}

func (err *InvalidPacketError) Error() string {
	if err.Cause != nil {
		return fmt.Sprintf("invalid packet: %s: %v", err.Reason, err.Cause)
	}
	return fmt.Sprintf("invalid packet: %s", err.Reason)
}

func (err *InvalidPacketError) Unwrap() error {
	return err.Cause
}

// PayloadTransferInfo announces the TCP port for an out-of-band binary
// payload accompanying a Packet. Payload transport itself is handled
// outside this core.
type PayloadTransferInfo struct {
	Port uint16 `json:"port"`
}

// Packet is the atomic unit of protocol exchange: a numeric id used for
// logging and ordering hints, a dot-namespaced type and a JSON body.
//
// A Packet is immutable once constructed. NewPacket copies the given body,
// so later changes to the caller's map are not reflected. Every send must
// construct a fresh Packet value.
type Packet struct {
	Id   int64                  `json:"id"`
	Type string                 `json:"type"`
	Body map[string]interface{} `json:"body"`

	PayloadSize  int64                `json:"payloadSize,omitempty"`
	PayloadTrans *PayloadTransferInfo `json:"payloadTransferInfo,omitempty"`
}

// NewPacket creates a Packet of the given type with a timestamp-derived id.
// The body map is copied; a nil body becomes an empty JSON object.
func NewPacket(packetType string, body map[string]interface{}) Packet {
	bodyCopy := make(map[string]interface{}, len(body))
	for k, v := range body {
		bodyCopy[k] = v
	}

	return Packet{
		Id:   time.Now().UnixMilli(),
		Type: packetType,
		Body: bodyCopy,
	}
}

// MarshalLine serializes this Packet as UTF-8 JSON, terminated by exactly
// one newline. An ErrPacketTooLarge is returned for oversized Packets.
func (p Packet) MarshalLine() ([]byte, error) {
	if p.Type == "" {
		return nil, &InvalidPacketError{Reason: "empty type field"}
	}

	if p.Body == nil {
		p.Body = map[string]interface{}{}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, &InvalidPacketError{Reason: "marshalling failed", Cause: err}
	}

	if len(data)+1 > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}

	return append(data, '\n'), nil
}

// UnmarshalLine parses one newline-terminated JSON line into a Packet. The
// trailing newline may already be stripped by a line reader.
func UnmarshalLine(line []byte) (p Packet, err error) {
	line = bytes.TrimSuffix(line, []byte("\n"))

	if len(line) > MaxPacketSize {
		return Packet{}, ErrPacketTooLarge
	}

	if jsonErr := json.Unmarshal(line, &p); jsonErr != nil {
		return Packet{}, &InvalidPacketError{Reason: "unmarshalling failed", Cause: jsonErr}
	}

	if p.Type == "" {
		return Packet{}, &InvalidPacketError{Reason: "empty type field"}
	}

	if p.Body == nil {
		p.Body = map[string]interface{}{}
	}

	return p, nil
}

// HasPayload indicates an announced out-of-band payload.
func (p Packet) HasPayload() bool {
	return p.PayloadSize > 0 && p.PayloadTrans != nil
}

func (p Packet) String() string {
	return fmt.Sprintf("Packet(%d,%s)", p.Id, p.Type)
}
