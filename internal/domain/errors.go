package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrProxyNotFound     = errors.New("proxy not found")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrBatchAborted      = errors.New("batch aborted before dispatch")
	ErrProxyOffline      = errors.New("assigned proxy is offline")
	ErrDuplicateRemoval  = errors.New("removal already pending for peer")
)

// AuthError is a fatal credential failure: the session goes to error state
// immediately and is never retried.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// NetworkError is a transient transport failure, retried with bounded
// attempts before the session is given up on.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// LimitationError reports a friend-list action dropped because the issuing
// session is limited. It is a policy signal, not a transport failure.
type LimitationError struct {
	Session string
	Kind    ActionKind
}

func (e *LimitationError) Error() string {
	return fmt.Sprintf("session %s is limited: %s dropped", e.Session, e.Kind)
}

func IsTransient(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

func IsFatal(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
