// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/devbridge/devbridge-go/pkg/identity"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// Announcement is the JSON payload of one discovery datagram. It carries
// just enough for a peer to decide whether and where to connect; the full
// capability lists follow in the identity handshake.
type Announcement struct {
	DeviceID        string `json:"deviceId"`
	DeviceName      string `json:"deviceName"`
	ProtocolVersion int    `json:"protocolVersion"`
	TcpPort         int    `json:"tcpPort"`
}

// NewAnnouncement for a local Identity.
func NewAnnouncement(id identity.Identity) Announcement {
	return Announcement{
		DeviceID:        id.DeviceID,
		DeviceName:      id.DeviceName,
		ProtocolVersion: id.ProtocolVersion,
		TcpPort:         int(id.TcpPort),
	}
}

// MarshalAnnouncement into its JSON form.
func MarshalAnnouncement(announcement Announcement) ([]byte, error) {
	return json.Marshal(announcement)
}

// UnmarshalAnnouncement parses and validates a received datagram payload.
func UnmarshalAnnouncement(data []byte) (announcement Announcement, err error) {
	if err = json.Unmarshal(data, &announcement); err != nil {
		return
	}

	if idErr := identity.ValidateDeviceID(announcement.DeviceID); idErr != nil {
		err = idErr
		return
	}
	if announcement.ProtocolVersion < protocol.MinVersion {
		err = fmt.Errorf("announced protocol version %d is below the minimum of %d",
			announcement.ProtocolVersion, protocol.MinVersion)
		return
	}
	if announcement.TcpPort <= 0 || announcement.TcpPort > 65535 {
		err = fmt.Errorf("announced tcp port %d is out of range", announcement.TcpPort)
		return
	}

	return
}

func (announcement Announcement) String() string {
	return fmt.Sprintf("Announcement(%s,%s,v%d,:%d)",
		announcement.DeviceID, announcement.DeviceName,
		announcement.ProtocolVersion, announcement.TcpPort)
}
