// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage reports a decode failure: a non-empty, non-banner
	// header line lacking a "Key: Value" colon separator, or a frame that
	// exceeds the configured size cap. Terminal.
	ErrMalformedMessage = errors.New("ami: malformed message")

	// ErrUnexpectedEOF reports that the stream ended in the middle of a
	// frame. Terminal.
	ErrUnexpectedEOF = errors.New("ami: unexpected eof mid-frame")

	// ErrDuplicateActionID reports that a Publish was attempted with an
	// ActionID already outstanding. Local: the first outstanding request is
	// untouched.
	ErrDuplicateActionID = errors.New("ami: duplicate action id")

	// ErrInvalidArgument reports a required field missing from a request,
	// currently only a missing ActionID. Local.
	ErrInvalidArgument = errors.New("ami: invalid argument")

	// ErrCancelled reports that the caller's context was done before a
	// reply arrived. Local.
	ErrCancelled = errors.New("ami: publish cancelled")

	// ErrDisposed is the terminal cause recorded by an explicit Close, as
	// opposed to a cause observed from the wire.
	ErrDisposed = errors.New("ami: client disposed")
)

// ClientClosedError is returned by Publish once the client has transitioned
// to terminal. Cause is the terminal cause: io.EOF, a wrapped
// I/O error, ErrMalformedMessage, ErrUnexpectedEOF, or ErrDisposed.
type ClientClosedError struct {
	Cause error
}

func (e *ClientClosedError) Error() string {
	return fmt.Sprintf("ami: client closed: %v", e.Cause)
}

func (e *ClientClosedError) Unwrap() error { return e.Cause }

func clientClosed(cause error) error {
	return &ClientClosedError{Cause: cause}
}
