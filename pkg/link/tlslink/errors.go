// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlslink

import (
	"errors"

	"github.com/devbridge/devbridge-go/pkg/link"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink/internal/frame"
	"github.com/devbridge/devbridge-go/pkg/link/tlslink/internal/stages"
	"github.com/devbridge/devbridge-go/pkg/protocol"
)

// errorKind classifies an error of this Link into a link.ErrorKind for the
// LinkClosed status.
func errorKind(err error) link.ErrorKind {
	var stageErr *stages.Error
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}

	var invalidErr *protocol.InvalidPacketError

	switch {
	case err == nil:
		return link.ErrorNone
	case frame.IsTimeout(err):
		return link.ErrorTimeout
	case errors.Is(err, protocol.ErrPacketTooLarge), errors.As(err, &invalidErr):
		return link.ErrorProtocol
	default:
		return link.ErrorIo
	}
}
