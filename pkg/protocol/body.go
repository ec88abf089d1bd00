// SPDX-FileCopyrightText: 2026 The devbridge-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

// Typed accessors for Packet body fields. JSON numbers arrive as float64;
// these helpers hide the necessary conversions from plugin code.

// BodyString returns the named body field as a string.
func (p Packet) BodyString(key string) (s string, ok bool) {
	v, exists := p.Body[key]
	if !exists {
		return "", false
	}

	s, ok = v.(string)
	return
}

// BodyInt returns the named body field as an int.
func (p Packet) BodyInt(key string) (n int, ok bool) {
	v, exists := p.Body[key]
	if !exists {
		return 0, false
	}

	switch v := v.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// BodyBool returns the named body field as a bool.
func (p Packet) BodyBool(key string) (b bool, ok bool) {
	v, exists := p.Body[key]
	if !exists {
		return false, false
	}

	b, ok = v.(bool)
	return
}

// BodyStringSlice returns the named body field as a slice of strings.
// Non-string elements are skipped.
func (p Packet) BodyStringSlice(key string) (ss []string, ok bool) {
	v, exists := p.Body[key]
	if !exists {
		return nil, false
	}

	raw, isSlice := v.([]interface{})
	if !isSlice {
		if ss, ok = v.([]string); ok {
			return ss, true
		}
		return nil, false
	}

	ss = make([]string, 0, len(raw))
	for _, elem := range raw {
		if s, isString := elem.(string); isString {
			ss = append(ss, s)
		}
	}
	return ss, true
}
