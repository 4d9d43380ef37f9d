// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ami provides a client for the Asterisk Manager Interface (AMI), a
// line-oriented, text-based, full-duplex TCP protocol used to control and
// observe an Asterisk telephony server.
//
// Semantics and design:
//   - Multiplexing: one shared TCP stream and one shared background reader
//     goroutine serve two logically independent surfaces — request/reply
//     (Publish) and a live event stream (Subscribe) — correlated by the
//     ActionID field carried on every AMI message.
//   - Request/reply: Publish registers a one-shot slot for the outbound
//     message's ActionID, writes the message, and waits for the reader
//     goroutine to deliver the matching reply or for ctx to be done.
//   - Events: any inbound message that does not match a pending ActionID is
//     fanned out to every active Subscription. This includes follow-up
//     events that share an ActionID with a prior action (by AMI convention
//     the first reply to an action consumes that ActionID; any further
//     message bearing it is an event).
//   - Back-pressure: event delivery never blocks the reader goroutine under
//     the default DropOldest policy; BlockReader is available but couples
//     reader liveness to the slowest subscriber.
//
// This package does not provide connection retry, reconnection, or a typed
// catalog of AMI actions/events — those are explicitly out of scope; callers
// compose Message values with whatever fields a given Asterisk installation
// expects.
package ami
