package ports

import (
	"context"

	"github.com/roster-cli/roster/internal/domain"
)

type Credentials struct {
	Account string
	Secret  string
}

type EventKind string

const (
	EventDisconnected      EventKind = "disconnected"
	EventLimitationChanged EventKind = "limitation_changed"
)

type ConnectivityEvent struct {
	Kind        EventKind
	Limitations domain.Limitations
}

// Connectivity is the per-session remote-service capability. The wire
// protocol behind it is out of scope; implementations classify failures as
// *domain.AuthError (fatal) or *domain.NetworkError (transient).
type Connectivity interface {
	Login(ctx context.Context, creds Credentials, proxyURL string) error
	Logoff(ctx context.Context) error
	AddRelationship(ctx context.Context, peer domain.PeerID) error
	RemoveRelationship(ctx context.Context, peer domain.PeerID) error
	PostComment(ctx context.Context, peer domain.PeerID, text string) error
	Vote(ctx context.Context, peer domain.PeerID) error
	RelationshipCount(ctx context.Context) (int, error)
	Events() <-chan ConnectivityEvent
}

// ConnectivityFactory opens one capability handle per configured account.
type ConnectivityFactory interface {
	Open(account string) Connectivity
}
