package application

import (
	"context"
	"time"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	"github.com/rs/zerolog"
)

type SweepConfig struct {
	// Retention is how long a relationship may go without interaction
	// before it is removed.
	Retention time.Duration
	Interval  time.Duration
}

// ExpirySweeper periodically removes stale relationships. Sweeps are
// idempotent: a peer whose removal is still in flight is not queued again,
// so overlapping sweeps cannot double-remove.
type ExpirySweeper struct {
	fleet     *Fleet
	throttler *ActionThrottler
	clock     ports.Clock
	cfg       SweepConfig
	log       zerolog.Logger
}

func NewExpirySweeper(fleet *Fleet, throttler *ActionThrottler, clock ports.Clock, cfg SweepConfig, logger zerolog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		fleet:     fleet,
		throttler: throttler,
		clock:     clock,
		cfg:       cfg,
		log:       logger,
	}
}

// Sweep queues removal of every expired ledger entry across online
// sessions and returns how many removals were newly queued.
func (s *ExpirySweeper) Sweep(ctx context.Context) int {
	cutoff := s.clock.Now().Add(-s.cfg.Retention)

	queued := 0
	for _, name := range s.fleet.OnlineNames() {
		if ctx.Err() != nil {
			return queued
		}

		var expired []domain.PeerID
		_ = s.fleet.WithSession(name, func(session *domain.Session) error {
			expired = session.Ledger.OlderThan(cutoff)
			return nil
		})
		if len(expired) == 0 {
			continue
		}

		batch, err := s.throttler.EnqueueRemovals(name, expired)
		if err != nil {
			s.log.Warn().Err(err).Str("session", name).Msg("expiry removals not queued")
			continue
		}

		fresh := batch.Size()
		queued += fresh
		s.log.Info().Str("session", name).Int("expired", len(expired)).Int("queued", fresh).Msg("expiry sweep")
	}

	return queued
}

func (s *ExpirySweeper) Run(ctx context.Context) error {
	for {
		if err := s.clock.Sleep(ctx, s.cfg.Interval); err != nil {
			return err
		}
		s.Sweep(ctx)
	}
}
