package domain

import "time"

type ProxyID string

// ProxyRecord is an egress path optionally assigned to one or more
// sessions. Online is only trustworthy while LastCheckedAt is recent;
// interpreting staleness is the caller's call.
type ProxyRecord struct {
	ID            ProxyID
	URL           string
	Online        bool
	LastCheckedAt time.Time
}

func (p ProxyRecord) Checked() bool {
	return !p.LastCheckedAt.IsZero()
}

func (p ProxyRecord) Stale(now time.Time, maxAge time.Duration) bool {
	if p.LastCheckedAt.IsZero() {
		return true
	}

	if maxAge <= 0 {
		return false
	}

	return now.Sub(p.LastCheckedAt) > maxAge
}
