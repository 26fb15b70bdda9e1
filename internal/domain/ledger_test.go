package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerBase = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestTouchInsertsOncePerPeer(t *testing.T) {
	t.Parallel()

	ledger := NewRelationshipLedger()
	ledger.Touch("p1", ledgerBase)
	ledger.Touch("p2", ledgerBase.Add(time.Minute))
	ledger.Touch("p1", ledgerBase.Add(2*time.Minute))

	assert.Equal(t, 2, ledger.Len())
	assert.True(t, ledger.Has("p1"))

	entries := ledger.Entries()
	require.Len(t, entries, 2)
	// p1 keeps its insertion position with a refreshed timestamp.
	assert.Equal(t, PeerID("p1"), entries[0].Peer)
	assert.Equal(t, ledgerBase.Add(2*time.Minute), entries[0].LastInteraction)
}

func TestRemoveReindexesRemainingEntries(t *testing.T) {
	t.Parallel()

	ledger := NewRelationshipLedger()
	ledger.Touch("p1", ledgerBase)
	ledger.Touch("p2", ledgerBase)
	ledger.Touch("p3", ledgerBase)

	assert.True(t, ledger.Remove("p2"))
	assert.False(t, ledger.Remove("p2"))
	assert.Equal(t, 2, ledger.Len())

	// Later removals still resolve after reindexing.
	assert.True(t, ledger.Remove("p3"))
	assert.True(t, ledger.Has("p1"))
	assert.Equal(t, 1, ledger.Len())
}

func TestOldestPicksEarliestInteraction(t *testing.T) {
	t.Parallel()

	ledger := NewRelationshipLedger()
	ledger.Touch("p1", ledgerBase.Add(time.Hour))
	ledger.Touch("p2", ledgerBase)
	ledger.Touch("p3", ledgerBase.Add(2*time.Hour))

	oldest, ok := ledger.Oldest()
	require.True(t, ok)
	assert.Equal(t, PeerID("p2"), oldest.Peer)
}

func TestOldestTieResolvesToEarlierInsertion(t *testing.T) {
	t.Parallel()

	ledger := NewRelationshipLedger()
	ledger.Touch("p1", ledgerBase)
	ledger.Touch("p2", ledgerBase)

	oldest, ok := ledger.Oldest()
	require.True(t, ok)
	assert.Equal(t, PeerID("p1"), oldest.Peer)
}

func TestOldestOnEmptyLedger(t *testing.T) {
	t.Parallel()

	_, ok := NewRelationshipLedger().Oldest()
	assert.False(t, ok)
}

func TestOlderThanIsStrictAndInsertionOrdered(t *testing.T) {
	t.Parallel()

	cutoff := ledgerBase.Add(time.Hour)

	ledger := NewRelationshipLedger()
	ledger.Touch("p1", ledgerBase.Add(30*time.Minute))
	ledger.Touch("p2", cutoff)
	ledger.Touch("p3", ledgerBase)

	expired := ledger.OlderThan(cutoff)
	assert.Equal(t, []PeerID{"p1", "p3"}, expired)
}

func TestEntriesReturnsACopy(t *testing.T) {
	t.Parallel()

	ledger := NewRelationshipLedger()
	ledger.Touch("p1", ledgerBase)

	entries := ledger.Entries()
	entries[0].Peer = "tampered"

	fresh := ledger.Entries()
	assert.Equal(t, PeerID("p1"), fresh[0].Peer)
}
