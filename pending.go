// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import "sync"

// slotResult is the single value a pending slot is ever fulfilled with:
// either a reply Message or an error (ErrCancelled, or a *ClientClosedError
// wrapping the terminal cause).
type slotResult struct {
	msg *Message
	err error
}

// slot is a one-shot rendezvous for exactly one reply. It is a buffered
// channel of size 1 so the fulfiller never blocks on a slow or abandoned
// receiver.
type slot chan slotResult

func newSlot() slot { return make(chan slotResult, 1) }

// pendingTable maps a request's ActionID to its one-shot reply slot. At most
// one entry exists per id at any instant; register, complete, cancel, and
// failAll are serialized against each other by mu. Slot fulfilment always
// happens after mu is released, so a blocked receiver can never stall table
// mutation.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]slot
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]slot)}
}

// register inserts a fresh slot for id. It fails with ErrDuplicateActionID
// if an entry already exists for id.
func (t *pendingTable) register(id string) (slot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[id]; exists {
		return nil, ErrDuplicateActionID
	}
	s := newSlot()
	t.entries[id] = s
	return s, nil
}

// complete fulfils the slot registered for id with msg and removes it,
// returning true. It returns false if no entry exists for id, signalling
// the dispatcher to treat msg as an event instead.
func (t *pendingTable) complete(id string, msg *Message) bool {
	t.mu.Lock()
	s, exists := t.entries[id]
	if exists {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !exists {
		return false
	}
	s <- slotResult{msg: msg}
	return true
}

// cancel removes the entry for id, if any, and fulfils it with ErrCancelled.
func (t *pendingTable) cancel(id string) {
	t.mu.Lock()
	s, exists := t.entries[id]
	if exists {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if exists {
		s <- slotResult{err: ErrCancelled}
	}
}

// failAll removes every entry and fulfils each with a *ClientClosedError
// wrapping cause. Called exactly
// once, on the terminal transition.
func (t *pendingTable) failAll(cause error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]slot)
	t.mu.Unlock()

	for _, s := range entries {
		s <- slotResult{err: clientClosed(cause)}
	}
}
