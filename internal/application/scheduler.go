package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	"github.com/rs/zerolog"
)

type LoginConfig struct {
	// MinSpacing is the minimum gap between the starts of consecutive
	// login attempts, fleet-wide.
	MinSpacing time.Duration
	// MaxAttempts bounds transient-failure retries per session before the
	// session is errored and skipped.
	MaxAttempts int
	// RelogAfterDisconnect requeues a dropped session for another login.
	RelogAfterDisconnect bool
}

// LoginScheduler serializes login attempts: at most one session is logging
// in at any instant, and consecutive attempt starts are spaced by
// MinSpacing. The shared last-attempt timestamp lives here, not in a
// process-wide global.
type LoginScheduler struct {
	fleet   *Fleet
	proxies *ProxyPool
	secrets ports.SecretStore
	clock   ports.Clock
	cfg     LoginConfig
	bus     *EventBus
	log     zerolog.Logger

	mu          sync.Mutex
	queue       []string
	lastLoginAt time.Time
	skipped     map[string]struct{}

	kick chan struct{}
}

func NewLoginScheduler(fleet *Fleet, proxies *ProxyPool, secrets ports.SecretStore, clock ports.Clock, cfg LoginConfig, bus *EventBus, logger zerolog.Logger) *LoginScheduler {
	return &LoginScheduler{
		fleet:   fleet,
		proxies: proxies,
		secrets: secrets,
		clock:   clock,
		cfg:     cfg,
		bus:     bus,
		log:     logger,
		skipped: make(map[string]struct{}),
		kick:    make(chan struct{}, 1),
	}
}

// SeedSkipped marks accounts recorded as skipped by a previous run so they
// are not scheduled again.
func (s *LoginScheduler) SeedSkipped(accounts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range accounts {
		s.skipped[account] = struct{}{}
	}
}

// Skipped returns the accounts given up on, sorted for stable snapshots.
func (s *LoginScheduler) Skipped() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]string, 0, len(s.skipped))
	for account := range s.skipped {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	return accounts
}

// Requeue appends a disconnected session to the tail of the login queue.
// It is a no-op unless relogging is enabled and the session is still
// schedulable.
func (s *LoginScheduler) Requeue(name string) {
	if !s.cfg.RelogAfterDisconnect {
		return
	}

	s.mu.Lock()
	if _, gone := s.skipped[name]; gone {
		s.mu.Unlock()
		return
	}
	for _, queued := range s.queue {
		if queued == name {
			s.mu.Unlock()
			return
		}
	}
	s.queue = append(s.queue, name)
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run brings the fleet online one session at a time, then keeps serving
// requeued sessions until ctx is cancelled.
func (s *LoginScheduler) Run(ctx context.Context) error {
	s.seedQueue()

	for {
		name, ok := s.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.kick:
				continue
			}
		}

		if err := s.loginOnce(ctx, name); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Str("session", name).Msg("login attempt failed")
		}
	}
}

func (s *LoginScheduler) seedQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.fleet.Names() {
		if _, gone := s.skipped[name]; gone {
			continue
		}
		status, err := s.fleet.Status(name)
		if err != nil {
			continue
		}
		if status == domain.StatusOffline || status == domain.StatusDisconnected {
			s.queue = append(s.queue, name)
		}
	}
}

func (s *LoginScheduler) pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return "", false
	}

	name := s.queue[0]
	s.queue = s.queue[1:]
	return name, true
}

// loginOnce performs one spaced, serialized login attempt and classifies
// the outcome: transient failures requeue with bounded attempts, fatal
// failures error the session immediately.
func (s *LoginScheduler) loginOnce(ctx context.Context, name string) error {
	if wait := s.spacingWait(); wait > 0 {
		if err := s.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	if err := s.fleet.Transition(name, domain.StatusLoggingIn); err != nil {
		return err
	}

	creds, proxyURL, err := s.prepare(ctx, name)
	if err != nil {
		s.giveUp(name, err)
		return err
	}

	conn, err := s.fleet.Conn(name)
	if err != nil {
		return err
	}

	// Attempt start, recorded success or failure: the next login is spaced
	// from here.
	s.mu.Lock()
	s.lastLoginAt = s.clock.Now()
	s.mu.Unlock()

	err = conn.Login(ctx, creds, proxyURL)
	switch {
	case err == nil:
		_ = s.fleet.WithSession(name, func(session *domain.Session) error {
			session.LoginAttempts = 0
			return nil
		})
		return s.fleet.Transition(name, domain.StatusOnline)

	case domain.IsFatal(err):
		s.giveUp(name, err)
		return err

	default:
		// Transient network failure, or anything unclassified treated as
		// one: bounded retries, then give up.
		attempts := 0
		_ = s.fleet.WithSession(name, func(session *domain.Session) error {
			session.LoginAttempts++
			attempts = session.LoginAttempts
			return nil
		})

		if attempts >= s.cfg.MaxAttempts {
			s.giveUp(name, fmt.Errorf("retries exhausted after %d attempts: %w", attempts, err))
			return err
		}

		if transitionErr := s.fleet.Transition(name, domain.StatusOffline); transitionErr != nil {
			return transitionErr
		}

		s.mu.Lock()
		s.queue = append(s.queue, name)
		s.mu.Unlock()

		return err
	}
}

func (s *LoginScheduler) spacingWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastLoginAt.IsZero() {
		return 0
	}

	wait := s.cfg.MinSpacing - s.clock.Now().Sub(s.lastLoginAt)
	if wait < 0 {
		return 0
	}

	return wait
}

func (s *LoginScheduler) prepare(ctx context.Context, name string) (ports.Credentials, string, error) {
	snapshot, err := s.fleet.snapshot(name)
	if err != nil {
		return ports.Credentials{}, "", err
	}

	secret, err := s.secrets.Get(ctx, snapshot.SecretRef)
	if err != nil {
		return ports.Credentials{}, "", &domain.AuthError{Reason: fmt.Sprintf("credential secret %q unavailable: %v", snapshot.SecretRef, err)}
	}

	proxyURL := ""
	if snapshot.Proxy != "" {
		record, ok := s.proxies.Record(snapshot.Proxy)
		if ok && (!record.Checked() || record.Online) {
			proxyURL = record.URL
		} else {
			// A dead proxy must not starve the serialized queue: fall back
			// to direct egress and flag it.
			s.bus.Publish(Event{
				Kind:    EventWarning,
				Session: name,
				Proxy:   snapshot.Proxy,
				Message: fmt.Sprintf("proxy %s offline, logging in direct", snapshot.Proxy),
				At:      s.clock.Now(),
			})
		}
	}

	return ports.Credentials{Account: name, Secret: secret}, proxyURL, nil
}

func (s *LoginScheduler) giveUp(name string, cause error) {
	_ = s.fleet.Transition(name, domain.StatusError)

	s.mu.Lock()
	s.skipped[name] = struct{}{}
	s.mu.Unlock()

	s.log.Error().Err(cause).Str("session", name).Msg("session excluded from scheduling")
	s.bus.Publish(Event{
		Kind:    EventWarning,
		Session: name,
		Message: fmt.Sprintf("login given up: %v", cause),
		At:      s.clock.Now(),
	})
}
