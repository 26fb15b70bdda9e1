package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	"github.com/rs/zerolog"
)

type ThrottleConfig struct {
	// PerItemDelay spaces successive items of a bulk operation: item i
	// fires PerItemDelay*i after the batch is issued.
	PerItemDelay time.Duration
	// CountLimitedInStagger keeps limited sessions in the position count
	// even though their friend-list items are dropped, preserving the
	// original spacing of the remaining sessions.
	CountLimitedInStagger bool
}

// idlePoll bounds how long the dispatch loop sleeps with an empty queue
// before re-checking for work queued from another goroutine.
const idlePoll = 500 * time.Millisecond

// ActionThrottler spaces outgoing actions across the fleet so bulk
// operations produce evenly staggered remote calls instead of a burst.
type ActionThrottler struct {
	fleet   *Fleet
	proxies *ProxyPool
	clock   ports.Clock
	cfg     ThrottleConfig
	bus     *EventBus
	log     zerolog.Logger

	mu      sync.Mutex
	queue   delayQueue
	pending map[string]struct{}

	wake chan struct{}
}

func NewActionThrottler(fleet *Fleet, proxies *ProxyPool, clock ports.Clock, cfg ThrottleConfig, bus *EventBus, logger zerolog.Logger) *ActionThrottler {
	return &ActionThrottler{
		fleet:   fleet,
		proxies: proxies,
		clock:   clock,
		cfg:     cfg,
		bus:     bus,
		log:     logger,
		pending: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue schedules a single request. Requests rejected by policy (limited
// session on a friend-list action, dead proxy) are reported through the
// returned error and batch outcome without any remote call.
func (t *ActionThrottler) Enqueue(req domain.ActionRequest) (*Batch, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unsupported action kind %q", req.Kind)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	batch := newBatch(1)

	if err := t.eligible(req.Session, req.Kind); err != nil {
		batch.record(domain.ActionOutcome{Request: req, Err: err})
		return batch, err
	}

	at := t.clock.Now()
	if req.NotBefore.After(at) {
		at = req.NotBefore
	}
	t.schedule(at, req, batch)

	return batch, nil
}

// EnqueueBulk issues the same action from every eligible online session,
// staggered by PerItemDelay times the session's batch position. Ineligible
// sessions get a reported outcome and never a remote call.
func (t *ActionThrottler) EnqueueBulk(kind domain.ActionKind, peer domain.PeerID, body string) (*Batch, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unsupported action kind %q", kind)
	}

	type slot struct {
		req      domain.ActionRequest
		err      error
		position int
	}

	var slots []slot
	position := 0
	for _, name := range t.fleet.OnlineNames() {
		req := domain.ActionRequest{
			ID:      uuid.NewString(),
			Kind:    kind,
			Session: name,
			Peer:    peer,
			Body:    body,
		}

		err := t.eligible(name, kind)
		if err != nil {
			slots = append(slots, slot{req: req, err: err})
			if t.cfg.CountLimitedInStagger {
				position++
			}
			continue
		}

		slots = append(slots, slot{req: req, position: position})
		position++
	}

	batch := newBatch(len(slots))
	now := t.clock.Now()
	for _, s := range slots {
		if s.err != nil {
			batch.record(domain.ActionOutcome{Request: s.req, Err: s.err})
			continue
		}
		t.schedule(now.Add(time.Duration(s.position)*t.cfg.PerItemDelay), s.req, batch)
	}

	t.log.Info().Str("kind", string(kind)).Str("peer", string(peer)).Int("items", len(slots)).Msg("bulk action issued")

	return batch, nil
}

// EnqueueRemovals schedules ledger-driven relationship removals for one
// session, staggered per item. Peers with a removal already in flight are
// skipped, which is what makes capacity reclamation and expiry sweeps
// idempotent.
func (t *ActionThrottler) EnqueueRemovals(session string, peers []domain.PeerID) (*Batch, error) {
	if err := t.eligible(session, domain.ActionFriendRemove); err != nil {
		return nil, err
	}

	t.mu.Lock()
	var fresh []domain.PeerID
	for _, peer := range peers {
		key := removalKey(session, peer)
		if _, inFlight := t.pending[key]; inFlight {
			continue
		}
		t.pending[key] = struct{}{}
		fresh = append(fresh, peer)
	}
	t.mu.Unlock()

	batch := newBatch(len(fresh))
	now := t.clock.Now()
	for i, peer := range fresh {
		req := domain.ActionRequest{
			ID:      uuid.NewString(),
			Kind:    domain.ActionFriendRemove,
			Session: session,
			Peer:    peer,
		}
		t.schedule(now.Add(time.Duration(i)*t.cfg.PerItemDelay), req, batch)
	}

	return batch, nil
}

// PendingRemoval reports whether a removal for the peer is queued but not
// yet dispatched.
func (t *ActionThrottler) PendingRemoval(session string, peer domain.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.pending[removalKey(session, peer)]
	return ok
}

// QueueLen reports the number of scheduled, not yet dispatched items.
func (t *ActionThrottler) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.queue.len()
}

func (t *ActionThrottler) eligible(session string, kind domain.ActionKind) error {
	limitations, err := t.fleet.Limitations(session)
	if err != nil {
		return err
	}

	if kind.TouchesFriendList() && limitations.Limited {
		return &domain.LimitationError{Session: session, Kind: kind}
	}

	snapshot, err := t.fleet.snapshot(session)
	if err != nil {
		return err
	}
	if !t.proxies.EgressOnline(snapshot.Proxy) {
		return fmt.Errorf("%w: session %s via proxy %s", domain.ErrProxyOffline, session, snapshot.Proxy)
	}

	return nil
}

func (t *ActionThrottler) schedule(at time.Time, req domain.ActionRequest, batch *Batch) {
	t.mu.Lock()
	t.queue.push(at, req, batch)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Run drives the delay queue until ctx is cancelled.
func (t *ActionThrottler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := t.clock.Now()
		t.DispatchDue(ctx, now)

		t.mu.Lock()
		next, ok := t.queue.nextAt()
		t.mu.Unlock()

		wait := idlePoll
		if ok {
			wait = next.Sub(now)
		}
		if wait <= 0 {
			continue
		}

		if err := t.sleepOrWake(ctx, wait); err != nil {
			return err
		}
	}
}

// DispatchDue executes every item due at or before now, in schedule order.
// Failures are reported per item and never abort siblings.
func (t *ActionThrottler) DispatchDue(ctx context.Context, now time.Time) {
	t.mu.Lock()
	due := t.queue.popDue(now)
	t.mu.Unlock()

	for _, item := range due {
		t.dispatch(ctx, item)
	}
}

func (t *ActionThrottler) dispatch(ctx context.Context, item *queueItem) {
	req := item.req

	if req.Kind == domain.ActionFriendRemove {
		defer func() {
			t.mu.Lock()
			delete(t.pending, removalKey(req.Session, req.Peer))
			t.mu.Unlock()
		}()
	}

	if item.batch.Aborted() {
		item.batch.record(domain.ActionOutcome{Request: req, Err: domain.ErrBatchAborted})
		return
	}

	conn, err := t.fleet.Conn(req.Session)
	if err == nil {
		err = t.call(ctx, conn, req)
	}

	dispatchedAt := t.clock.Now()
	if err == nil {
		t.applyLedger(req, dispatchedAt)
	}

	item.batch.record(domain.ActionOutcome{Request: req, DispatchedAt: dispatchedAt, Err: err})

	logEvent := t.log.Debug()
	message := ""
	if err != nil {
		logEvent = t.log.Warn().Err(err)
		message = err.Error()
	}
	logEvent.Str("session", req.Session).Str("kind", string(req.Kind)).Str("peer", string(req.Peer)).Msg("action dispatched")

	t.bus.Publish(Event{
		Kind:    EventActionDone,
		Session: req.Session,
		Message: message,
		At:      dispatchedAt,
	})
}

func (t *ActionThrottler) call(ctx context.Context, conn ports.Connectivity, req domain.ActionRequest) error {
	switch req.Kind {
	case domain.ActionFriendAdd:
		return conn.AddRelationship(ctx, req.Peer)
	case domain.ActionFriendRemove:
		return conn.RemoveRelationship(ctx, req.Peer)
	case domain.ActionComment:
		return conn.PostComment(ctx, req.Peer, req.Body)
	case domain.ActionVote:
		return conn.Vote(ctx, req.Peer)
	default:
		return fmt.Errorf("unsupported action kind %q", req.Kind)
	}
}

func (t *ActionThrottler) applyLedger(req domain.ActionRequest, at time.Time) {
	switch req.Kind {
	case domain.ActionFriendAdd, domain.ActionComment:
		_ = t.fleet.WithSession(req.Session, func(session *domain.Session) error {
			session.Ledger.Touch(req.Peer, at)
			return nil
		})
	case domain.ActionFriendRemove:
		_ = t.fleet.WithSession(req.Session, func(session *domain.Session) error {
			session.Ledger.Remove(req.Peer)
			return nil
		})
	}
}

func (t *ActionThrottler) sleepOrWake(ctx context.Context, d time.Duration) error {
	sleepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-t.wake:
			cancel()
		case <-sleepCtx.Done():
		}
	}()

	_ = t.clock.Sleep(sleepCtx, d)
	return ctx.Err()
}

func removalKey(session string, peer domain.PeerID) string {
	return session + "/" + string(peer)
}
