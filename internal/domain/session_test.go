package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycleTransitions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		from    SessionStatus
		to      SessionStatus
		allowed bool
	}{
		{StatusOffline, StatusLoggingIn, true},
		{StatusOffline, StatusOnline, false},
		{StatusOffline, StatusError, false},
		{StatusLoggingIn, StatusOnline, true},
		{StatusLoggingIn, StatusOffline, true},
		{StatusLoggingIn, StatusError, true},
		{StatusOnline, StatusDisconnected, true},
		{StatusOnline, StatusError, true},
		{StatusOnline, StatusLoggingIn, false},
		{StatusDisconnected, StatusLoggingIn, true},
		{StatusDisconnected, StatusError, true},
		{StatusDisconnected, StatusOnline, false},
		{StatusError, StatusOffline, false},
		{StatusError, StatusLoggingIn, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to))
		})
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	session := NewSession(0, "a", "ref", "")
	err := session.Transition("frozen")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusOffline, session.Status)
}

func TestTransitionRejectsIllegalMoveAndKeepsState(t *testing.T) {
	t.Parallel()

	session := NewSession(0, "a", "ref", "")
	require.NoError(t, session.Transition(StatusLoggingIn))
	require.NoError(t, session.Transition(StatusOnline))

	err := session.Transition(StatusLoggingIn)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusOnline, session.Status)
}

func TestErrorStateIsTerminal(t *testing.T) {
	t.Parallel()

	session := NewSession(0, "a", "ref", "")
	require.NoError(t, session.Transition(StatusLoggingIn))
	require.NoError(t, session.Transition(StatusError))

	for _, next := range []SessionStatus{StatusOffline, StatusLoggingIn, StatusOnline, StatusDisconnected} {
		assert.ErrorIs(t, session.Transition(next), ErrInvalidTransition)
	}
}

func TestNewSessionStartsOfflineWithEmptyLedger(t *testing.T) {
	t.Parallel()

	session := NewSession(3, "alice", "roster/accounts/alice/password", "eu-1")
	assert.Equal(t, 3, session.Index)
	assert.Equal(t, StatusOffline, session.Status)
	assert.Equal(t, ProxyID("eu-1"), session.Proxy)
	assert.Zero(t, session.LoginAttempts)
	require.NotNil(t, session.Ledger)
	assert.Zero(t, session.Ledger.Len())
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	for _, status := range []SessionStatus{StatusOffline, StatusLoggingIn, StatusOnline, StatusDisconnected, StatusError} {
		assert.True(t, status.Valid())
	}
	assert.False(t, SessionStatus("frozen").Valid())
	assert.False(t, SessionStatus("").Valid())
}
