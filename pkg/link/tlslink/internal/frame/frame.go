// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package frame reads and writes newline-delimited Packets on a net.Conn,
// enforcing the protocol's size cap and per-operation deadline.
package frame

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"os"
	"time"

	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// Timeout bounds every single framed read or write. An exceeded deadline is
// fatal for the connection.
const Timeout = 5 * time.Minute

// ErrTimeout marks an exceeded per-operation deadline.
var ErrTimeout = errors.New("framed operation exceeded its deadline")

// IsTimeout reports whether an error originates from an exceeded deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Write one Packet to the conn, newline-terminated, within Timeout.
func Write(conn net.Conn, p protocol.Packet) error {
	line, err := p.MarshalLine()
	if err != nil {
		return err
	}

	if err := conn.SetWriteDeadline(time.Now().Add(Timeout)); err != nil {
		return err
	}

	_, err = conn.Write(line)
	return err
}

// Read one newline-terminated Packet from the buffered reader, within
// Timeout. The conn is only used to arm the read deadline; r must wrap it.
//
// An ErrPacketTooLarge or any transport error is fatal for the connection.
// An InvalidPacketError refers to a single broken line; the stream itself
// is still intact and the caller may continue reading.
func Read(r *bufio.Reader, conn net.Conn) (protocol.Packet, error) {
	if err := conn.SetReadDeadline(time.Now().Add(Timeout)); err != nil {
		return protocol.Packet{}, err
	}

	line, err := readLine(r)
	if err != nil {
		return protocol.Packet{}, err
	}

	return protocol.UnmarshalLine(line)
}

// readLine accumulates bytes until a newline is observed, bailing out once
// the size cap is reached. bufio's ErrBufferFull is expected for lines
// longer than the reader's buffer.
func readLine(r *bufio.Reader) ([]byte, error) {
	var buff bytes.Buffer

	for {
		chunk, err := r.ReadSlice('\n')
		buff.Write(chunk)

		if buff.Len() > protocol.MaxPacketSize {
			return nil, protocol.ErrPacketTooLarge
		}

		if err == nil {
			return buff.Bytes(), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		return nil, err
	}
}
