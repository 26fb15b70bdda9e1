package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster-cli/roster/internal/domain"
)

type capacityRig struct {
	*throttlerRig
	manager *CapacityManager
}

func newCapacityRig(cfg CapacityConfig, names ...string) *capacityRig {
	rig := newOnlineRig(ThrottleConfig{PerItemDelay: time.Second}, names...)
	manager := NewCapacityManager(rig.fleet, rig.throttler, rig.clock, cfg, rig.bus, zerolog.Nop())
	return &capacityRig{throttlerRig: rig, manager: manager}
}

func (r *capacityRig) seedLedger(name string, peers ...domain.PeerID) {
	at := r.clock.Now()
	_ = r.fleet.WithSession(name, func(session *domain.Session) error {
		for _, peer := range peers {
			session.Ledger.Touch(peer, at)
			at = at.Add(time.Minute)
		}
		return nil
	})
}

func TestCheckSessionWarnsBelowThreshold(t *testing.T) {
	t.Parallel()

	rig := newCapacityRig(CapacityConfig{MaxCapacity: 10, WarnThreshold: 3}, "a")
	rig.factory.conn("a").count = 8
	warnings := rig.bus.Subscribe(4)

	report, err := rig.manager.CheckSession(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Remaining)
	assert.True(t, report.Warned)
	assert.False(t, report.ReclaimQueued)

	select {
	case event := <-warnings:
		assert.Equal(t, EventWarning, event.Kind)
		assert.Equal(t, "a", event.Session)
	default:
		t.Fatal("no capacity warning published")
	}
}

func TestCheckSessionAboveThresholdIsQuiet(t *testing.T) {
	t.Parallel()

	rig := newCapacityRig(CapacityConfig{MaxCapacity: 10, WarnThreshold: 3}, "a")
	rig.factory.conn("a").count = 5

	report, err := rig.manager.CheckSession(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Remaining)
	assert.False(t, report.Warned)
	assert.False(t, report.ReclaimQueued)
	assert.Zero(t, rig.throttler.QueueLen())
}

func TestCheckSessionReclaimsOldestWhenFull(t *testing.T) {
	t.Parallel()

	rig := newCapacityRig(CapacityConfig{MaxCapacity: 10, WarnThreshold: 3}, "a")
	rig.factory.conn("a").count = 10
	rig.seedLedger("a", "peer-old", "peer-mid", "peer-new")

	report, err := rig.manager.CheckSession(context.Background(), "a")
	require.NoError(t, err)
	assert.Zero(t, report.Remaining)
	assert.True(t, report.Warned)
	assert.True(t, report.ReclaimQueued)
	assert.Equal(t, domain.PeerID("peer-old"), report.ReclaimedPeer)
	assert.True(t, rig.throttler.PendingRemoval("a", "peer-old"))
	assert.Equal(t, 1, rig.throttler.QueueLen())
}

func TestRepeatedChecksDoNotDoubleQueueReclamation(t *testing.T) {
	t.Parallel()

	rig := newCapacityRig(CapacityConfig{MaxCapacity: 10, WarnThreshold: 3}, "a")
	rig.factory.conn("a").count = 10
	rig.seedLedger("a", "peer-old", "peer-new")

	_, err := rig.manager.CheckSession(context.Background(), "a")
	require.NoError(t, err)
	_, err = rig.manager.CheckSession(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, 1, rig.throttler.QueueLen())
}

func TestCheckSessionRequiresOnlineSession(t *testing.T) {
	t.Parallel()

	rig := newCapacityRig(CapacityConfig{MaxCapacity: 10, WarnThreshold: 3}, "a")
	require.NoError(t, rig.fleet.Transition("a", domain.StatusDisconnected))

	_, err := rig.manager.CheckSession(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity unknown")
}

func TestCheckAllSkipsFailingSessions(t *testing.T) {
	t.Parallel()

	rig := newCapacityRig(CapacityConfig{MaxCapacity: 10, WarnThreshold: 3}, "a", "b", "c")
	rig.factory.conn("a").count = 4
	rig.factory.conn("b").countErr = errors.New("capability gone")
	rig.factory.conn("c").count = 6

	reports := rig.manager.CheckAll(context.Background())
	require.Len(t, reports, 2)
	assert.Equal(t, "a", reports[0].Session)
	assert.Equal(t, "c", reports[1].Session)
}
