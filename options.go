// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"github.com/sirupsen/logrus"
)

// BackpressurePolicy selects how the subscription hub behaves when a
// subscriber's event channel is full.
type BackpressurePolicy uint8

const (
	// DropOldest discards the oldest queued event for a slow subscriber to
	// make room for the new one. The reader goroutine never blocks. Default.
	DropOldest BackpressurePolicy = iota

	// BlockReader blocks the reader goroutine until a slow subscriber
	// drains its channel. Couples reader liveness to the slowest
	// subscriber; select this only when every subscriber is known to keep
	// up.
	BlockReader
)

// TraceHooks are best-effort, debug-only observer callbacks for the raw
// bytes crossing the wire. A nil hook is skipped. A panicking hook is
// recovered and logged; it never brings down the client.
type TraceHooks struct {
	// OnDataSent is called with the exact bytes written to the stream for
	// one message, after the write succeeds.
	OnDataSent func(data []byte)

	// OnDataReceived is called with the exact bytes read off the stream for
	// one frame (including a discarded banner line), before decoding.
	OnDataReceived func(data []byte)
}

// Options configures a Client.
type Options struct {
	// Backpressure selects the subscription hub's policy for slow
	// subscribers.
	Backpressure BackpressurePolicy

	// MaxFrameSize caps the number of buffered bytes the framer will
	// accumulate while searching for a CRLFCRLF boundary before giving up
	// with ErrMalformedMessage. Zero selects the default (1 MiB).
	MaxFrameSize int

	// SubscriberBuffer sets the channel depth allocated per Subscription.
	// Zero selects the default (64).
	SubscriberBuffer int

	// ActionIDGenerator overrides the function used to mint ActionID
	// values for outbound messages that do not already carry one. Defaults
	// to uuid.NewString. Tests inject a deterministic generator.
	ActionIDGenerator func() string

	// Logger receives structured lifecycle and back-pressure diagnostics.
	// Defaults to logrus.StandardLogger().
	Logger *logrus.Logger

	// Trace installs raw-bytes observer hooks. Nil (the default) disables
	// tracing entirely.
	Trace *TraceHooks
}

const (
	defaultMaxFrameSize     = 1 << 20 // 1 MiB
	defaultSubscriberBuffer = 64
)

func defaultOptions() Options {
	return Options{
		Backpressure:      DropOldest,
		MaxFrameSize:      defaultMaxFrameSize,
		SubscriberBuffer:  defaultSubscriberBuffer,
		ActionIDGenerator: newActionID,
		Logger:            logrus.StandardLogger(),
		Trace:             nil,
	}
}

// Option configures a Client at construction time.
type Option func(*Options)

// WithBackpressure selects the subscription hub's policy for slow
// subscribers. See DropOldest and BlockReader.
func WithBackpressure(policy BackpressurePolicy) Option {
	return func(o *Options) { o.Backpressure = policy }
}

// WithMaxFrameSize caps the framer's internal buffer. A frame that would
// exceed limit fails decoding with ErrMalformedMessage.
func WithMaxFrameSize(limit int) Option {
	return func(o *Options) { o.MaxFrameSize = limit }
}

// WithSubscriberBuffer sets the channel depth allocated per Subscription.
func WithSubscriberBuffer(depth int) Option {
	return func(o *Options) { o.SubscriberBuffer = depth }
}

// WithActionIDGenerator overrides ActionID generation, e.g. for
// deterministic tests.
func WithActionIDGenerator(gen func() string) Option {
	return func(o *Options) { o.ActionIDGenerator = gen }
}

// WithLogger installs a structured logger for client diagnostics.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithTrace installs raw-bytes observer hooks for debugging.
func WithTrace(hooks TraceHooks) Option {
	return func(o *Options) { o.Trace = &hooks }
}
