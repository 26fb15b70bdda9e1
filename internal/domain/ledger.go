package domain

import "time"

type PeerID string

type LedgerEntry struct {
	Peer            PeerID
	LastInteraction time.Time
}

// RelationshipLedger records the peers a session is related to and the last
// time each was interacted with. Entries keep their insertion position, and
// a peer appears at most once.
type RelationshipLedger struct {
	entries []LedgerEntry
	index   map[PeerID]int
}

func NewRelationshipLedger() *RelationshipLedger {
	return &RelationshipLedger{index: map[PeerID]int{}}
}

// Touch records an interaction with peer at the given time, inserting the
// peer if it is not yet tracked. Existing entries keep their insertion
// position.
func (l *RelationshipLedger) Touch(peer PeerID, at time.Time) {
	if i, ok := l.index[peer]; ok {
		l.entries[i].LastInteraction = at
		return
	}

	l.index[peer] = len(l.entries)
	l.entries = append(l.entries, LedgerEntry{Peer: peer, LastInteraction: at})
}

func (l *RelationshipLedger) Remove(peer PeerID) bool {
	i, ok := l.index[peer]
	if !ok {
		return false
	}

	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	delete(l.index, peer)
	for j := i; j < len(l.entries); j++ {
		l.index[l.entries[j].Peer] = j
	}

	return true
}

func (l *RelationshipLedger) Has(peer PeerID) bool {
	_, ok := l.index[peer]
	return ok
}

func (l *RelationshipLedger) Len() int {
	return len(l.entries)
}

// Oldest returns the entry with the earliest last-interaction time. Ties
// resolve to the earlier insertion.
func (l *RelationshipLedger) Oldest() (LedgerEntry, bool) {
	if len(l.entries) == 0 {
		return LedgerEntry{}, false
	}

	oldest := l.entries[0]
	for _, entry := range l.entries[1:] {
		if entry.LastInteraction.Before(oldest.LastInteraction) {
			oldest = entry
		}
	}

	return oldest, true
}

// OlderThan returns, in insertion order, the peers whose last interaction is
// strictly before cutoff.
func (l *RelationshipLedger) OlderThan(cutoff time.Time) []PeerID {
	var peers []PeerID
	for _, entry := range l.entries {
		if entry.LastInteraction.Before(cutoff) {
			peers = append(peers, entry.Peer)
		}
	}

	return peers
}

func (l *RelationshipLedger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
