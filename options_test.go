// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClient_ActionIDGeneratorOverrideIsDeterministic(t *testing.T) {
	t.Parallel()

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	seq := 0
	gen := func() string {
		seq++
		return "det-" + string(rune('0'+seq))
	}

	go func() {
		fr := NewFramer(serverConn, 0, nil)
		req := readOneFrame(t, fr)
		assert.Equal(t, "det-1", req.ActionID())
		writeRaw(t, serverConn, newMessage(func() string { return req.ActionID() }, "Response", "Success"))
	}()

	c := New(clientConn, WithActionIDGenerator(gen))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg := c.NewMessage("Action", "Login")
	assert.Equal(t, "det-1", msg.ActionID())

	_, err := c.Publish(ctx, msg)
	assert.NoError(t, err)
}

func TestClient_TraceHooksObserveRawBytes(t *testing.T) {
	t.Parallel()

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var sent, received [][]byte
	trace := TraceHooks{
		OnDataSent:     func(b []byte) { sent = append(sent, append([]byte(nil), b...)) },
		OnDataReceived: func(b []byte) { received = append(received, append([]byte(nil), b...)) },
	}

	go func() {
		fr := NewFramer(serverConn, 0, nil)
		req := readOneFrame(t, fr)
		writeRaw(t, serverConn, newMessage(func() string { return req.ActionID() }, "Response", "Success"))
	}()

	c := New(clientConn, WithTrace(trace))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Publish(ctx, c.NewMessage("Action", "Ping"))
	assert.NoError(t, err)

	// Give the reader goroutine a moment to invoke the receive hook after
	// the reply completes the publish.
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, sent, 1)
	assert.Len(t, received, 1)
}
