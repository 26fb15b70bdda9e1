package application

import (
	"time"

	"github.com/roster-cli/roster/internal/domain"
)

// SessionStatusView is the read model exposed to the command layer and
// plugins.
type SessionStatusView struct {
	Index           int
	Name            string
	Status          domain.SessionStatus
	Limited         bool
	CommunityBanned bool
	Proxy           domain.ProxyID
	ProxyOnline     bool
	Relationships   int
	LoginAttempts   int
}

type ProxyStatusView struct {
	ID            domain.ProxyID
	URL           string
	Online        bool
	LastCheckedAt time.Time
	Sessions      []string
}
