package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	"github.com/rs/zerolog"
)

// backlogLimit bounds the warning backlog carried into restart snapshots.
const backlogLimit = 100

// Controller composes the fleet, proxy pool, login scheduler, throttler,
// capacity manager and expiry sweeper, and exposes the lifecycle and query
// surface consumed by the command layer and plugins.
type Controller struct {
	cfg       domain.FleetConfig
	bus       *EventBus
	fleet     *Fleet
	proxies   *ProxyPool
	scheduler *LoginScheduler
	throttler *ActionThrottler
	capacity  *CapacityManager
	sweeper   *ExpirySweeper
	clock     ports.Clock
	log       zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	backlog []string
	started bool
}

func NewController(cfg domain.FleetConfig, factory ports.ConnectivityFactory, secrets ports.SecretStore, prober ports.Prober, clock ports.Clock, logger zerolog.Logger) *Controller {
	cfg.Policy.ApplyDefaults()

	bus := NewEventBus()
	fleet := NewFleet(cfg.Accounts, factory, bus, clock, logger)
	proxies := NewProxyPool(cfg.Proxies, prober, cfg.Policy.ProbeURL, clock, bus, logger)

	scheduler := NewLoginScheduler(fleet, proxies, secrets, clock, LoginConfig{
		MinSpacing:           cfg.Policy.LoginSpacing,
		MaxAttempts:          cfg.Policy.MaxLoginAttempts,
		RelogAfterDisconnect: cfg.Policy.RelogAfterDisconnect,
	}, bus, logger)

	throttler := NewActionThrottler(fleet, proxies, clock, ThrottleConfig{
		PerItemDelay:          cfg.Policy.ActionDelay,
		CountLimitedInStagger: cfg.Policy.CountLimitedInStagger,
	}, bus, logger)

	capacity := NewCapacityManager(fleet, throttler, clock, CapacityConfig{
		MaxCapacity:   cfg.Policy.MaxCapacity,
		WarnThreshold: cfg.Policy.WarnThreshold,
	}, bus, logger)

	sweeper := NewExpirySweeper(fleet, throttler, clock, SweepConfig{
		Retention: cfg.Policy.Retention,
		Interval:  cfg.Policy.SweepInterval,
	}, logger)

	return &Controller{
		cfg:       cfg,
		bus:       bus,
		fleet:     fleet,
		proxies:   proxies,
		scheduler: scheduler,
		throttler: throttler,
		capacity:  capacity,
		sweeper:   sweeper,
		clock:     clock,
		log:       logger,
	}
}

// Ingest consumes the state carried over from the previous process. Called
// at most once, before Start.
func (c *Controller) Ingest(snapshot domain.RestartSnapshot) error {
	if err := snapshot.ValidateVersion(); err != nil {
		return err
	}

	c.scheduler.SeedSkipped(snapshot.SkippedAccounts)

	for _, line := range snapshot.LogBacklog {
		c.log.Info().Str("origin", "previous run").Msg(line)
	}
	if snapshot.UpdateFailed {
		c.bus.Publish(Event{
			Kind:    EventWarning,
			Message: "previous update failed",
			At:      c.clock.Now(),
		})
	}

	return nil
}

// Start checks reachability, probes all proxies, and launches the
// scheduler, throttler, sweeper and per-session event pumps. It returns
// once the fleet is running; Stop tears it down.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("controller already started")
	}
	c.started = true
	c.mu.Unlock()

	if !c.proxies.CheckDirect(ctx) {
		return fmt.Errorf("internet unreachable, refusing to start fleet")
	}
	c.proxies.CheckAll(ctx)

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.collectWarnings(runCtx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.throttler.Run(runCtx)
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.sweeper.Run(runCtx)
	}()

	for _, name := range c.fleet.Names() {
		conn, err := c.fleet.Conn(name)
		if err != nil {
			continue
		}
		c.wg.Add(1)
		go c.pumpEvents(runCtx, name, conn)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.scheduler.Run(runCtx)
	}()

	return nil
}

// pumpEvents routes asynchronous connectivity events into the state
// machine: drops transition the session and may requeue it, limitation
// changes refresh the overlay.
func (c *Controller) pumpEvents(ctx context.Context, name string, conn ports.Connectivity) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-conn.Events():
			if !ok {
				return
			}
			switch event.Kind {
			case ports.EventDisconnected:
				if err := c.fleet.Transition(name, domain.StatusDisconnected); err != nil {
					c.log.Debug().Err(err).Str("session", name).Msg("disconnect event ignored")
					continue
				}
				c.scheduler.Requeue(name)
			case ports.EventLimitationChanged:
				_ = c.fleet.SetLimitations(name, event.Limitations)
			}
		}
	}
}

// collectWarnings keeps the most recent warning events as the log backlog
// handed to the next process in the restart snapshot.
func (c *Controller) collectWarnings(ctx context.Context) {
	events := c.bus.Subscribe(64)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-events:
				if event.Kind != EventWarning {
					continue
				}
				c.mu.Lock()
				c.backlog = append(c.backlog, event.Message)
				if len(c.backlog) > backlogLimit {
					c.backlog = c.backlog[len(c.backlog)-backlogLimit:]
				}
				c.mu.Unlock()
			}
		}
	}()
}

// Stop shuts the fleet down, logs every online session off (best effort),
// and returns the snapshot the host should carry into the next run.
func (c *Controller) Stop(ctx context.Context) domain.RestartSnapshot {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.wg.Wait()
	}

	for _, name := range c.fleet.OnlineNames() {
		conn, err := c.fleet.Conn(name)
		if err != nil {
			continue
		}
		if err := conn.Logoff(ctx); err != nil {
			c.log.Warn().Err(err).Str("session", name).Msg("logoff failed")
		}
	}

	snapshot := domain.NewRestartSnapshot()
	snapshot.SkippedAccounts = c.scheduler.Skipped()

	c.mu.Lock()
	snapshot.LogBacklog = append(snapshot.LogBacklog, c.backlog...)
	c.mu.Unlock()

	return snapshot
}

// Events exposes the status/warning stream to subscribers such as the
// command layer or plugins.
func (c *Controller) Events(buffer int) <-chan Event {
	return c.bus.Subscribe(buffer)
}

// Statuses reports the current view of every session in fleet order.
func (c *Controller) Statuses() []SessionStatusView {
	var views []SessionStatusView
	for _, name := range c.fleet.Names() {
		var view SessionStatusView
		err := c.fleet.WithSession(name, func(session *domain.Session) error {
			view = SessionStatusView{
				Index:           session.Index,
				Name:            session.Name,
				Status:          session.Status,
				Limited:         session.Limitations.Limited,
				CommunityBanned: session.Limitations.CommunityBanned,
				Proxy:           session.Proxy,
				Relationships:   session.Ledger.Len(),
				LoginAttempts:   session.LoginAttempts,
			}
			return nil
		})
		if err != nil {
			continue
		}
		view.ProxyOnline = c.proxies.EgressOnline(view.Proxy)
		views = append(views, view)
	}

	return views
}

// Proxies reports every proxy record with the sessions assigned to it.
func (c *Controller) Proxies() []ProxyStatusView {
	assigned := make(map[domain.ProxyID][]string)
	for _, name := range c.fleet.Names() {
		snapshot, err := c.fleet.snapshot(name)
		if err != nil || snapshot.Proxy == "" {
			continue
		}
		assigned[snapshot.Proxy] = append(assigned[snapshot.Proxy], name)
	}

	var views []ProxyStatusView
	for _, record := range c.proxies.Records() {
		views = append(views, ProxyStatusView{
			ID:            record.ID,
			URL:           record.URL,
			Online:        record.Online,
			LastCheckedAt: record.LastCheckedAt,
			Sessions:      assigned[record.ID],
		})
	}

	return views
}

// RemainingCapacity is the read-only counterpart of a capacity check: no
// warning, no reclamation.
func (c *Controller) RemainingCapacity(ctx context.Context, name string) (int, error) {
	conn, err := c.fleet.Conn(name)
	if err != nil {
		return 0, err
	}

	count, err := conn.RelationshipCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("read relationship count: %w", err)
	}

	return c.cfg.Policy.MaxCapacity - count, nil
}

// EnqueueAction submits one throttled action request.
func (c *Controller) EnqueueAction(req domain.ActionRequest) (*Batch, error) {
	return c.throttler.Enqueue(req)
}

// EnqueueBulk issues a fleet-wide staggered action.
func (c *Controller) EnqueueBulk(kind domain.ActionKind, peer domain.PeerID, body string) (*Batch, error) {
	return c.throttler.EnqueueBulk(kind, peer, body)
}

// TriggerCapacityCheck runs an on-demand capacity check over the fleet.
func (c *Controller) TriggerCapacityCheck(ctx context.Context) []CapacityReport {
	return c.capacity.CheckAll(ctx)
}

// RecheckProxies forces a health probe of every proxy.
func (c *Controller) RecheckProxies(ctx context.Context) {
	c.proxies.CheckAll(ctx)
}

// Sweep runs one expiry sweep on demand.
func (c *Controller) Sweep(ctx context.Context) int {
	return c.sweeper.Sweep(ctx)
}
