package rpcstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowedTransitions(t *testing.T) {
	var cases = []struct {
		from, to State
		ok       bool
	}{
		{Created, Initializing, true},
		{Created, Executing, false},
		{Initializing, Executing, true},
		{Initializing, Inactive, true},
		{Initializing, Finished, true},
		{Executing, Inactive, true},
		{Executing, Disposing, true},
		{Executing, Finished, true},
		{Executing, Created, false},
		{Inactive, Inactive, true},
		{Inactive, Disposing, true},
		{Inactive, Finished, true},
		{Disposing, Finished, true},
		{Disposing, Inactive, false},
		{Finished, Created, false},
		{Finished, Finished, false},
	}

	for _, c := range cases {
		var m = &Machine{state: c.from}
		require.Equal(t, c.ok, m.SetState(c.to), "from %v to %v", c.from, c.to)
		if c.ok {
			require.Equal(t, c.to, m.GetState(true))
		} else {
			require.Equal(t, c.from, m.GetState(true))
		}
	}
}

func TestOnChangeFiresAfterUnlockOnSuccessOnly(t *testing.T) {
	var m = NewMachine()
	var calls [][2]State
	m.OnChange = func(from, to State) {
		// Must be able to read state without deadlocking: proves the
		// callback runs outside the lock.
		_ = m.GetState(true)
		calls = append(calls, [2]State{from, to})
	}

	require.True(t, m.SetState(Initializing))
	require.False(t, m.SetState(Disposing)) // illegal from Initializing
	require.True(t, m.SetState(Executing))

	require.Equal(t, [][2]State{{Created, Initializing}, {Initializing, Executing}}, calls)
}
