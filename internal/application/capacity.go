package application

import (
	"context"
	"fmt"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	"github.com/rs/zerolog"
)

type CapacityConfig struct {
	MaxCapacity   int
	WarnThreshold int
}

type CapacityReport struct {
	Session        string
	Remaining      int
	Warned         bool
	ReclaimedPeer  domain.PeerID
	ReclaimQueued  bool
}

// CapacityManager watches per-session relationship-list headroom and
// reclaims space by queueing removal of the stalest ledger entry. Removal
// goes through the throttler, never synchronously, so reclamation respects
// the same rate limits as everything else.
type CapacityManager struct {
	fleet     *Fleet
	throttler *ActionThrottler
	clock     ports.Clock
	cfg       CapacityConfig
	bus       *EventBus
	log       zerolog.Logger
}

func NewCapacityManager(fleet *Fleet, throttler *ActionThrottler, clock ports.Clock, cfg CapacityConfig, bus *EventBus, logger zerolog.Logger) *CapacityManager {
	return &CapacityManager{
		fleet:     fleet,
		throttler: throttler,
		clock:     clock,
		cfg:       cfg,
		bus:       bus,
		log:       logger,
	}
}

// CheckSession computes remaining capacity from the live capability (the
// ledger may lag the remote list), warning below the threshold and forcing
// one reclamation when full.
func (m *CapacityManager) CheckSession(ctx context.Context, name string) (CapacityReport, error) {
	report := CapacityReport{Session: name}

	status, err := m.fleet.Status(name)
	if err != nil {
		return report, err
	}
	if status != domain.StatusOnline {
		return report, fmt.Errorf("session %s is %s, capacity unknown", name, status)
	}

	conn, err := m.fleet.Conn(name)
	if err != nil {
		return report, err
	}

	count, err := conn.RelationshipCount(ctx)
	if err != nil {
		return report, fmt.Errorf("read relationship count: %w", err)
	}

	report.Remaining = m.cfg.MaxCapacity - count

	if report.Remaining < m.cfg.WarnThreshold {
		report.Warned = true
		m.bus.Publish(Event{
			Kind:    EventWarning,
			Session: name,
			Message: fmt.Sprintf("friend list capacity low: %d remaining", report.Remaining),
			At:      m.clock.Now(),
		})
	}

	if report.Remaining < 1 {
		var oldest domain.LedgerEntry
		var ok bool
		_ = m.fleet.WithSession(name, func(session *domain.Session) error {
			oldest, ok = session.Ledger.Oldest()
			return nil
		})
		if ok {
			if _, err := m.throttler.EnqueueRemovals(name, []domain.PeerID{oldest.Peer}); err != nil {
				return report, fmt.Errorf("queue capacity reclamation: %w", err)
			}
			report.ReclaimedPeer = oldest.Peer
			report.ReclaimQueued = true
			m.log.Info().Str("session", name).Str("peer", string(oldest.Peer)).Msg("capacity reclamation queued")
		}
	}

	return report, nil
}

// CheckAll runs CheckSession for every online session; per-session
// failures are reported in place and never abort the rest.
func (m *CapacityManager) CheckAll(ctx context.Context) []CapacityReport {
	var reports []CapacityReport
	for _, name := range m.fleet.OnlineNames() {
		report, err := m.CheckSession(ctx, name)
		if err != nil {
			m.log.Warn().Err(err).Str("session", name).Msg("capacity check failed")
			continue
		}
		reports = append(reports, report)
	}

	return reports
}
