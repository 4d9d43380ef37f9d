// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Subscription is a handle to a live stream of AMI events. Events arrive in
// the order the reader goroutine observed them on the wire. Under the
// DropOldest backpressure policy a slow subscriber may miss events (order
// among delivered events is still preserved); under BlockReader none are
// missed, at the cost of blocking the shared reader goroutine.
//
// Once the client reaches terminal, Events() is closed and Err returns the
// terminal cause.
type Subscription struct {
	ch     chan *Message
	hub    *hub
	done   chan struct{}
	mu     sync.Mutex
	err    error
	closed bool
}

// Events returns the channel events are delivered on. It is closed when the
// client terminates or the subscription is closed.
func (s *Subscription) Events() <-chan *Message { return s.ch }

// Err returns the terminal cause once the client has reached terminal, and
// nil otherwise.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close removes the subscription from the hub. Idempotent.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// deliver sends msg to the subscriber. It holds s.mu for the duration of the
// attempt (including a blocking send under BlockReader), so it can never
// race complete's close(s.ch): complete blocks on the same mutex until any
// in-flight deliver has returned, and deliver checks s.closed before ever
// touching the channel.
func (s *Subscription) deliver(msg *Message, policy BackpressurePolicy, log *logrus.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- msg:
		return
	default:
	}

	if policy == BlockReader {
		s.ch <- msg
		return
	}

	// DropOldest: make room by discarding the oldest queued event, then
	// retry once. A concurrent receiver may have already drained a slot;
	// either way one more attempt is enough to make progress or to
	// legitimately drop this event under a fully-raced buffer.
	select {
	case <-s.ch:
		if log != nil {
			log.WithField("component", "ami.hub").Debug("dropping oldest event for slow subscriber")
		}
	default:
	}

	select {
	case s.ch <- msg:
	default:
		if log != nil {
			log.WithField("component", "ami.hub").Debug("dropping event for slow subscriber")
		}
	}
}

func (s *Subscription) complete(cause error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = cause
	s.mu.Unlock()

	close(s.done)
	close(s.ch)
}

// hub maintains the current set of event subscribers and delivers each
// inbound event to all of them. Delivery never blocks the reader goroutine
// under DropOldest; iteration for delivery takes a snapshot to avoid
// holding the set mutex during channel sends.
type hub struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	policy      BackpressurePolicy
	bufferSize  int
	log         *logrus.Logger

	done      bool
	doneCause error
}

func newHub(policy BackpressurePolicy, bufferSize int, log *logrus.Logger) *hub {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	return &hub{
		subscribers: make(map[*Subscription]struct{}),
		policy:      policy,
		bufferSize:  bufferSize,
		log:         log,
	}
}

// subscribe creates and registers a new Subscription. If the hub has
// already completed, the returned Subscription is immediately closed with
// the recorded cause.
func (h *hub) subscribe() *Subscription {
	sub := &Subscription{
		ch:   make(chan *Message, h.bufferSize),
		hub:  h,
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.done {
		cause := h.doneCause
		h.mu.Unlock()
		sub.complete(cause)
		return sub
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	_, existed := h.subscribers[sub]
	delete(h.subscribers, sub)
	h.mu.Unlock()

	if existed {
		sub.complete(nil)
	}
}

// publish delivers msg to every current subscriber. Called from the reader
// goroutine; must never block under DropOldest.
func (h *hub) publish(msg *Message) {
	h.mu.Lock()
	snapshot := make([]*Subscription, 0, len(h.subscribers))
	for sub := range h.subscribers {
		snapshot = append(snapshot, sub)
	}
	h.mu.Unlock()

	for _, sub := range snapshot {
		sub.deliver(msg, h.policy, h.log)
	}
}

// complete signals completion with cause to every active subscriber and
// empties the set. Called exactly once, on the terminal transition.
func (h *hub) complete(cause error) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	h.doneCause = cause
	snapshot := make([]*Subscription, 0, len(h.subscribers))
	for sub := range h.subscribers {
		snapshot = append(snapshot, sub)
	}
	h.subscribers = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for _, sub := range snapshot {
		sub.complete(cause)
	}
}
