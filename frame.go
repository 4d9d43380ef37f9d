// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"bytes"
	"fmt"
	"io"
)

// crlfcrlf is the frame boundary: two CRLF line endings in a row, i.e. a
// header line terminator immediately followed by a blank line.
var crlfcrlf = []byte("\r\n\r\n")

// Framer splits an inbound byte stream into message-sized frames on the
// CRLFCRLF boundary. It holds a growing byte buffer, searches for the
// boundary, and on a match yields the prefix (without the trailing
// CRLFCRLF) as one frame while retaining the remainder for the next call.
//
// A Framer is not safe for concurrent use; the Client drives it from a
// single reader goroutine.
type Framer struct {
	r   io.Reader
	buf []byte
	max int

	bannerChecked bool

	onData func([]byte)
}

// NewFramer constructs a Framer reading from r. maxSize caps the number of
// buffered bytes accumulated while searching for a boundary; zero or
// negative selects defaultMaxFrameSize. onData, if non-nil, is invoked with
// the raw bytes of each frame (including a discarded banner line) as they
// are consumed, for debugging only.
func NewFramer(r io.Reader, maxSize int, onData func([]byte)) *Framer {
	if maxSize <= 0 {
		maxSize = defaultMaxFrameSize
	}
	return &Framer{r: r, max: maxSize, onData: onData}
}

// Next returns the next frame: the bytes of one AMI message, not including
// the terminating CRLFCRLF. It returns io.EOF when the stream ends cleanly
// between frames, ErrUnexpectedEOF when the stream ends mid-frame, and
// ErrMalformedMessage when a single frame would exceed the configured cap.
func (fr *Framer) Next() ([]byte, error) {
	if !fr.bannerChecked {
		if err := fr.discardBanner(); err != nil {
			return nil, err
		}
	}

	for {
		if idx := bytes.Index(fr.buf, crlfcrlf); idx >= 0 {
			frame := fr.buf[:idx]
			rest := fr.buf[idx+len(crlfcrlf):]
			fr.buf = append([]byte(nil), rest...)
			if fr.onData != nil {
				fr.onData(append(append([]byte(nil), frame...), crlfcrlf...))
			}
			return frame, nil
		}

		if len(fr.buf) > fr.max {
			return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedMessage, fr.max)
		}

		n, err := fr.fill()
		if n == 0 && err != nil {
			if err == io.EOF {
				if len(fr.buf) == 0 {
					return nil, io.EOF
				}
				return nil, ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}

// fill reads one chunk from the underlying reader into buf, returning the
// number of bytes appended and any read error (io.EOF included).
func (fr *Framer) fill() (int, error) {
	tmp := make([]byte, 32*1024)
	n, err := fr.r.Read(tmp)
	if n > 0 {
		fr.buf = append(fr.buf, tmp[:n]...)
	}
	return n, err
}

// discardBanner consumes a single leading banner line, if present. The
// first thing an AMI server sends on a new connection is a line such as
// "Asterisk Call Manager/2.6.0\r\n" that is not terminated by a blank line
// and is not a well-formed "Key: Value" header. discardBanner peeks at the
// first line and drops it when it does not look like a header.
func (fr *Framer) discardBanner() error {
	fr.bannerChecked = true

	for {
		if nl := bytes.IndexByte(fr.buf, '\n'); nl >= 0 {
			line := fr.buf[:nl+1]
			trimmed := bytes.TrimRight(line, "\r\n")
			if looksLikeHeaderLine(trimmed) {
				// Not a banner; leave bytes in place for normal framing.
				return nil
			}
			fr.buf = append([]byte(nil), fr.buf[nl+1:]...)
			if fr.onData != nil {
				fr.onData(append([]byte(nil), line...))
			}
			return nil
		}

		// No newline yet. If we already hold enough bytes to know this
		// can't be a banner (it would itself exceed any sane line length),
		// stop looking and let normal framing handle it.
		if len(fr.buf) > fr.max {
			return nil
		}

		n, err := fr.fill()
		if n == 0 && err != nil {
			// Stream ended before any newline; nothing to discard as a
			// banner. Let Next's EOF handling take over.
			return nil
		}
	}
}

func looksLikeHeaderLine(line []byte) bool {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return false
	}
	// "Key: Value" — require the separator to look like ": " so a banner
	// that happens to contain a bare colon isn't mistaken for a header.
	return idx+1 < len(line) && line[idx+1] == ' '
}
