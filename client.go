// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Client owns a bidirectional AMI stream, the writer mutex, the pending
// request table, the subscription set, and the reader goroutine. Its
// lifecycle is constructed → running → terminal (once, irreversibly); the
// terminal state holds the final cause (clean EOF, a decode error, an I/O
// error, or explicit Close).
type Client struct {
	conn io.ReadWriteCloser

	opts Options

	writer     *writer
	pending    *pendingTable
	hub        *hub
	dispatcher *dispatcher

	readerDone chan struct{}

	closeOnce sync.Once
	closeErr  error // guarded by closeOnce having fired
}

// New constructs a Client over an already-opened bidirectional byte stream
// and starts its reader goroutine. The caller owns establishing conn (e.g.
// via Dial or net.Dial); Close closes conn exactly once.
func New(conn io.ReadWriteCloser, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	c := &Client{
		conn:       conn,
		opts:       o,
		pending:    newPendingTable(),
		hub:        newHub(o.Backpressure, o.SubscriberBuffer, o.Logger),
		readerDone: make(chan struct{}),
	}
	c.dispatcher = newDispatcher(c.pending, c.hub)

	var onSent, onRecv func([]byte)
	if o.Trace != nil {
		onSent = safeHook(o.Trace.OnDataSent, o.Logger)
		onRecv = safeHook(o.Trace.OnDataReceived, o.Logger)
	}
	c.writer = newWriter(conn, onSent)

	framer := NewFramer(conn, o.MaxFrameSize, onRecv)
	go c.readLoop(framer)

	return c
}

// Dial opens a TCP connection to address and constructs a Client over it.
// network is typically "tcp"; ctx bounds the dial only, not the client's
// subsequent lifetime.
func Dial(ctx context.Context, network, address string, opts ...Option) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return New(conn, opts...), nil
}

func safeHook(fn func([]byte), log *logrus.Logger) func([]byte) {
	if fn == nil {
		return nil
	}
	return func(b []byte) {
		defer func() {
			if r := recover(); r != nil && log != nil {
				log.WithField("component", "ami.client").Warnf("trace hook panicked: %v", r)
			}
		}()
		fn(b)
	}
}

// Publish sends action and waits for its matching reply, or for ctx to be
// done. action must carry a non-empty ActionID (every Message constructed
// via NewMessage does, by construction). Publish returns the reply Message,
// or ErrDuplicateActionID, ErrInvalidArgument, ErrCancelled, a
// *ClientClosedError, or the write error when sending fails on a client
// that was still running.
func (c *Client) Publish(ctx context.Context, action *Message) (*Message, error) {
	// readerDone is only ever closed after closeErr is written (both in
	// terminate and in readLoop's deferred close following terminateAsync),
	// so observing it closed here makes the closeErr read below race-free.
	select {
	case <-c.readerDone:
		return nil, clientClosed(c.closeErr)
	default:
	}

	id := action.ActionID()
	if id == "" {
		return nil, ErrInvalidArgument
	}

	s, err := c.pending.register(id)
	if err != nil {
		return nil, err
	}

	if err := c.writer.send(action); err != nil {
		c.pending.cancel(id)
		if cause := c.terminate(err); cause != err {
			// The client was already terminal for another reason.
			return nil, clientClosed(cause)
		}
		return nil, err
	}

	select {
	case res := <-s:
		if res.err != nil {
			return nil, res.err
		}
		return res.msg, nil
	case <-ctx.Done():
		c.pending.cancel(id)
		return nil, ErrCancelled
	}
}

// NewMessage builds an outbound Message using this Client's configured
// ActionIDGenerator, so tests constructed with WithActionIDGenerator see
// deterministic ActionID values from the Login/Logoff helpers as well as
// from direct use of NewMessage.
func (c *Client) NewMessage(pairs ...string) *Message {
	return newMessage(c.opts.ActionIDGenerator, pairs...)
}

// Subscribe registers a new event subscription. Events arrive on the
// returned Subscription's channel until the client terminates or the
// subscription is closed.
func (c *Client) Subscribe() *Subscription {
	return c.hub.subscribe()
}

// Unsubscribe removes sub from the hub; equivalent to sub.Close().
func (c *Client) Unsubscribe(sub *Subscription) {
	sub.Close()
}

// Close disposes the client: it transitions to terminal with ErrDisposed as
// the cause (if not already terminal for another reason), closes the
// stream, fails every pending request, and completes every subscriber.
// Close waits for the reader goroutine to observe the resulting error and
// exit, so it returns only once the reader's pending Read on conn returns.
func (c *Client) Close() error {
	c.terminate(ErrDisposed)
	return nil
}

// terminate performs the one-time terminal transition and returns the
// cause that ultimately won the race (the first caller's cause, if Close
// and a reader error happen concurrently).
func (c *Client) terminate(cause error) error {
	c.closeOnce.Do(func() {
		c.closeErr = cause
		c.opts.Logger.WithFields(logrus.Fields{
			"component": "ami.client",
			"cause":     cause,
		}).Debug("client terminating")

		_ = c.conn.Close()
		c.pending.failAll(cause)
		c.hub.complete(cause)
	})
	<-c.readerDone
	return c.closeErr
}

// readLoop is the single reader goroutine: Framer.Next → Message.Decode →
// dispatcher.dispatch, until a clean EOF, a decode error, or an I/O error
// forces the terminal transition.
func (c *Client) readLoop(fr *Framer) {
	defer close(c.readerDone)

	for {
		frame, err := fr.Next()
		if err != nil {
			if err == io.EOF {
				c.terminateAsync(io.EOF)
			} else {
				c.terminateAsync(err)
			}
			return
		}

		msg, err := FromBytes(frame)
		if err != nil {
			c.terminateAsync(err)
			return
		}

		c.dispatcher.dispatch(msg)
	}
}

// terminateAsync runs the terminal transition without waiting on
// readerDone, since it is invoked from the reader goroutine itself (which
// closes readerDone immediately after via its deferred close).
func (c *Client) terminateAsync(cause error) {
	c.closeOnce.Do(func() {
		c.closeErr = cause
		c.opts.Logger.WithFields(logrus.Fields{
			"component": "ami.client",
			"cause":     cause,
		}).Debug("client terminating")

		_ = c.conn.Close()
		c.pending.failAll(cause)
		c.hub.complete(cause)
	})
}
