package domain

import "time"

type ActionKind string

const (
	ActionFriendAdd    ActionKind = "friend_add"
	ActionFriendRemove ActionKind = "friend_remove"
	ActionComment      ActionKind = "comment"
	ActionVote         ActionKind = "vote"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionFriendAdd, ActionFriendRemove, ActionComment, ActionVote:
		return true
	default:
		return false
	}
}

// TouchesFriendList reports whether the action mutates the relationship
// list. Limited sessions are blocked from these; comments and votes stay
// allowed.
func (k ActionKind) TouchesFriendList() bool {
	return k == ActionFriendAdd || k == ActionFriendRemove
}

// ActionRequest is one throttled outgoing call. Requests are transient:
// created per invocation, never persisted, ordered by insertion plus the
// computed stagger delay.
type ActionRequest struct {
	ID        string
	Kind      ActionKind
	Session   string
	Peer      PeerID
	Body      string
	NotBefore time.Time
}

type ActionOutcome struct {
	Request      ActionRequest
	DispatchedAt time.Time
	Err          error
}
