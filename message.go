// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// field is one ordered (key, value) pair of a Message.
type field struct {
	key   string
	value string
}

// Message is an ordered sequence of (key, value) string pairs plus an
// immutable creation timestamp. Order is preserved on both read and write:
// AMI is order-sensitive on the wire for certain fields and for log
// readability. Duplicate keys are permitted; some AMI events repeat a key.
//
// Key comparisons are case-insensitive (AMI servers have been observed using
// varying case); values are compared verbatim. The wire byte sequence is
// preserved on encode regardless of lookup case-folding.
type Message struct {
	fields  []field
	created time.Time
}

// NewMessage constructs an outbound Message from the given ordered pairs.
// pairs must have an even length: key, value, key, value, ...
//
// If no ActionID field is present among pairs, one is auto-assigned at
// construction time (not at send time) as a random UUID; Client.NewMessage
// uses the Client's configured generator instead. This lets a caller read
// back ActionID before sending.
func NewMessage(pairs ...string) *Message {
	return newMessage(newActionID, pairs...)
}

func newMessage(gen func() string, pairs ...string) *Message {
	m := &Message{created: time.Now()}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.fields = append(m.fields, field{key: pairs[i], value: pairs[i+1]})
	}
	if m.Get("ActionID") == "" {
		if gen == nil {
			gen = newActionID
		}
		m.fields = append(m.fields, field{key: "ActionID", value: gen()})
	}
	return m
}

func newActionID() string {
	return uuid.New().String()
}

// CreatedAt returns the Message's construction timestamp.
func (m *Message) CreatedAt() time.Time { return m.created }

// Get returns the value of the first pair whose key matches name
// case-insensitively, or "" if none match.
func (m *Message) Get(name string) string {
	for _, f := range m.fields {
		if strings.EqualFold(f.key, name) {
			return f.value
		}
	}
	return ""
}

// Set replaces the value of the first pair whose key matches name
// case-insensitively, or appends a new pair if none match.
func (m *Message) Set(name, value string) {
	for i, f := range m.fields {
		if strings.EqualFold(f.key, name) {
			m.fields[i].value = value
			return
		}
	}
	m.fields = append(m.fields, field{key: name, value: value})
}

// Add appends a new (key, value) pair without regard to any existing pair
// for the same key, for AMI messages that legitimately repeat a key.
func (m *Message) Add(name, value string) {
	m.fields = append(m.fields, field{key: name, value: value})
}

// Pairs returns a copy of the Message's ordered (key, value) pairs.
func (m *Message) Pairs() [][2]string {
	out := make([][2]string, len(m.fields))
	for i, f := range m.fields {
		out[i] = [2]string{f.key, f.value}
	}
	return out
}

// ActionID returns the Message's ActionID field, or "" if absent.
func (m *Message) ActionID() string { return m.Get("ActionID") }

// Encode serializes the Message deterministically in the order fields were
// added, terminated by the CRLFCRLF frame boundary.
func (m *Message) Encode() []byte {
	var b strings.Builder
	for _, f := range m.fields {
		b.WriteString(f.key)
		b.WriteString(": ")
		b.WriteString(f.value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// String returns the same bytes Encode produces, as a string.
func (m *Message) String() string { return string(m.Encode()) }

// FromBytes decodes a single complete frame: a sequence of "Key: Value"
// lines with no trailing blank line (the blank line is the framer's
// boundary, not part of the message). Lines may be separated by CRLF or
// bare LF. Decoding fails with ErrMalformedMessage if a non-empty line
// lacks a colon separator.
func FromBytes(b []byte) (*Message, error) {
	return FromString(string(b))
}

// FromString is the string equivalent of FromBytes.
func FromString(s string) (*Message, error) {
	m := &Message{created: time.Now()}
	lines := splitLines(s)
	for _, line := range lines {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, fmt.Errorf("%w: header line without colon: %q", ErrMalformedMessage, line)
		}
		key := line[:idx]
		value := line[idx+1:]
		value = strings.TrimFunc(value, isASCIISpace)
		m.fields = append(m.fields, field{key: key, value: value})
	}
	return m, nil
}

func isASCIISpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
