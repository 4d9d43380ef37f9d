// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	h := newHub(DropOldest, 8, nil)
	a := h.subscribe()
	b := h.subscribe()

	msg := newMessage(func() string { return "" }, "Event", "FullyBooted")
	h.publish(msg)

	for _, sub := range []*Subscription{a, b} {
		select {
		case got := <-sub.Events():
			assert.Same(t, msg, got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestHub_OrderPreservedPerSubscriber(t *testing.T) {
	t.Parallel()

	h := newHub(DropOldest, 8, nil)
	sub := h.subscribe()

	for i := 0; i < 5; i++ {
		h.publish(newMessage(func() string { return "" }, "Seq", string(rune('0'+i))))
	}

	for i := 0; i < 5; i++ {
		got := <-sub.Events()
		require.Equal(t, string(rune('0'+i)), got.Get("Seq"))
	}
}

func TestHub_DropOldestNeverBlocksReader(t *testing.T) {
	t.Parallel()

	h := newHub(DropOldest, 2, nil)
	sub := h.subscribe()

	// Publish more events than the buffer holds; publish must not block
	// even though nothing is draining sub.Events().
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.publish(newMessage(func() string { return "" }, "Seq", strconv.Itoa(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked under DropOldest")
	}

	// The two most recent buffered events should still be present and in
	// order, not some arbitrary truncation.
	first := <-sub.Events()
	second := <-sub.Events()
	require.Equal(t, "998", first.Get("Seq"))
	require.Equal(t, "999", second.Get("Seq"))
}

func TestHub_UnsubscribeClosesEventsChannel(t *testing.T) {
	t.Parallel()

	h := newHub(DropOldest, 4, nil)
	sub := h.subscribe()
	sub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok, "expected channel closed after Close")
}

func TestHub_CompleteFansOutCauseToEverySubscriber(t *testing.T) {
	t.Parallel()

	h := newHub(DropOldest, 4, nil)
	a := h.subscribe()
	b := h.subscribe()

	cause := errors.New("eof")
	h.complete(cause)

	for _, sub := range []*Subscription{a, b} {
		_, ok := <-sub.Events()
		assert.False(t, ok)
		assert.Same(t, cause, sub.Err())
	}

	// complete is idempotent.
	h.complete(errors.New("different"))
	assert.Same(t, cause, a.Err())
}

func TestHub_SubscribeAfterCompleteIsImmediatelyClosed(t *testing.T) {
	t.Parallel()

	h := newHub(DropOldest, 4, nil)
	cause := errors.New("already done")
	h.complete(cause)

	sub := h.subscribe()
	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Same(t, cause, sub.Err())
}
