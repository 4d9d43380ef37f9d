// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"io"
	"sync"
)

// writer is a critical section around the shared stream. A send serializes
// a Message to bytes, acquires exclusive access, writes all bytes, and
// releases. Two concurrent sends therefore never interleave on the wire.
//
// writer is held only across the bytes-to-wire step; it must never be held
// across an await of a reply.
type writer struct {
	mu     sync.Mutex
	w      io.Writer
	onData func([]byte)
}

func newWriter(w io.Writer, onData func([]byte)) *writer {
	return &writer{w: w, onData: onData}
}

// send writes msg's encoded bytes to the stream under the writer's mutex.
func (wr *writer) send(msg *Message) error {
	b := msg.Encode()

	wr.mu.Lock()
	defer wr.mu.Unlock()

	if _, err := wr.w.Write(b); err != nil {
		return err
	}
	if f, ok := wr.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	if wr.onData != nil {
		wr.onData(b)
	}
	return nil
}
