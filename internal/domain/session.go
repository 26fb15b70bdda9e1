package domain

import "fmt"

type SessionStatus string

const (
	StatusOffline      SessionStatus = "offline"
	StatusLoggingIn    SessionStatus = "logging_in"
	StatusOnline       SessionStatus = "online"
	StatusDisconnected SessionStatus = "disconnected"
	StatusError        SessionStatus = "error"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusOffline, StatusLoggingIn, StatusOnline, StatusDisconnected, StatusError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// StatusError is terminal until an external restart rebuilds the fleet.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case StatusOffline:
		return next == StatusLoggingIn
	case StatusLoggingIn:
		// Back to offline on a transient failure so the session can requeue.
		return next == StatusOnline || next == StatusOffline || next == StatusError
	case StatusOnline:
		return next == StatusDisconnected || next == StatusError
	case StatusDisconnected:
		return next == StatusLoggingIn || next == StatusError
	case StatusError:
		return false
	default:
		return false
	}
}

// Limitations is an overlay reflecting remote-imposed restrictions. It is
// orthogonal to the lifecycle status and only refreshed from the
// connectivity capability, never derived locally.
type Limitations struct {
	Limited         bool
	CommunityBanned bool
}

// Session is one managed remote-service account. Sessions are created once
// at fleet initialization and live for the whole process; failures mark
// them offline or errored, never remove them.
type Session struct {
	Index         int
	Name          string
	SecretRef     string
	Proxy         ProxyID
	Status        SessionStatus
	Limitations   Limitations
	LoginAttempts int
	Ledger        *RelationshipLedger
}

func NewSession(index int, name, secretRef string, proxy ProxyID) *Session {
	return &Session{
		Index:     index,
		Name:      name,
		SecretRef: secretRef,
		Proxy:     proxy,
		Status:    StatusOffline,
		Ledger:    NewRelationshipLedger(),
	}
}

func (s *Session) Transition(next SessionStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if !s.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}

	s.Status = next
	return nil
}
