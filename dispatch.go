// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

// dispatcher classifies each inbound message as a reply (matches a pending
// request) or an event (no match), and routes it accordingly. A decoded
// message is delivered either to exactly one pending slot or to the
// subscription hub, never both.
type dispatcher struct {
	pending *pendingTable
	hub     *hub
}

func newDispatcher(pending *pendingTable, hub *hub) *dispatcher {
	return &dispatcher{pending: pending, hub: hub}
}

// dispatch routes one decoded inbound message. By AMI convention an action
// receives exactly one Response and then zero or more Events; once the
// pending entry for an ActionID is consumed by the first reply (or removed
// by cancellation), any further message bearing that ActionID is treated as
// an event and published to the hub.
func (d *dispatcher) dispatch(msg *Message) {
	id := msg.ActionID()

	if id != "" && d.pending.complete(id, msg) {
		return
	}
	d.hub.publish(msg)
}
