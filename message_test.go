// Copyright (C) Hybscloud Labs. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ami

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_RoundTrip(t *testing.T) {
	t.Parallel()

	m := newMessage(func() string { return "fixed-id" },
		"Action", "Originate",
		"Channel", "SIP/100",
		"Context", "default",
	)

	decoded, err := FromBytes(m.Encode())
	require.NoError(t, err)

	assert.Equal(t, m.Pairs(), decoded.Pairs())
}

func TestMessage_GetIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := newMessage(func() string { return "x" }, "response", "Success")
	assert.Equal(t, "Success", m.Get("Response"))
	assert.Equal(t, "Success", m.Get("RESPONSE"))
}

func TestMessage_SetReplacesFirstMatch(t *testing.T) {
	t.Parallel()

	m := newMessage(func() string { return "x" }, "Event", "FullyBooted")
	m.Set("event", "Reload")

	assert.Equal(t, "Reload", m.Get("Event"))
	assert.Len(t, m.Pairs(), 2) // Event + auto ActionID; Set did not append
}

func TestMessage_SetAppendsWhenAbsent(t *testing.T) {
	t.Parallel()

	m := newMessage(func() string { return "x" })
	m.Set("Response", "Success")
	assert.Equal(t, "Success", m.Get("Response"))
}

func TestMessage_DuplicateKeysPreserved(t *testing.T) {
	t.Parallel()

	m := newMessage(func() string { return "x" })
	m.Add("Variable", "A=1")
	m.Add("Variable", "B=2")

	pairs := m.Pairs()
	var vars []string
	for _, p := range pairs {
		if p[0] == "Variable" {
			vars = append(vars, p[1])
		}
	}
	assert.Equal(t, []string{"A=1", "B=2"}, vars)
}

func TestMessage_ActionIDAutoAssignedAtConstruction(t *testing.T) {
	t.Parallel()

	m := NewMessage("Action", "Ping")
	assert.NotEmpty(t, m.ActionID())
}

func TestMessage_ActionIDUniqueAcrossManyConstructions(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 100000)
	for i := 0; i < 100000; i++ {
		id := NewMessage("Action", "Ping").ActionID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ActionID generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestMessage_EncodeOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	m := newMessage(func() string { return "x" }, "Action", "Login", "Username", "admin")
	want := "Action: Login\r\nUsername: admin\r\nActionID: x\r\n\r\n"
	assert.Equal(t, want, m.String())
}

func TestFromBytes_MalformedLineWithoutColon(t *testing.T) {
	t.Parallel()

	_, err := FromBytes([]byte("Action Login"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestFromBytes_TrimsWhitespaceFromValue(t *testing.T) {
	t.Parallel()

	m, err := FromBytes([]byte("Response:   Success  "))
	require.NoError(t, err)
	assert.Equal(t, "Success", m.Get("Response"))
}

func TestFromBytes_ValueMayContainColon(t *testing.T) {
	t.Parallel()

	m, err := FromBytes([]byte("Message: error: something went wrong"))
	require.NoError(t, err)
	assert.Equal(t, "error: something went wrong", m.Get("Message"))
}
