// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package plugin

import (
	"fmt"
)

// DuplicateHandlerError is returned when a Plugin's name is already taken
// within the Registry.
type DuplicateHandlerError struct {
	Name string
}

func (err *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("a plugin named %s is already registered", err.Name)
}

// UnknownHandlerError is returned when a Plugin name is not registered.
type UnknownHandlerError struct {
	Name string
}

func (err *UnknownHandlerError) Error() string {
	return fmt.Sprintf("no plugin named %s is registered", err.Name)
}
