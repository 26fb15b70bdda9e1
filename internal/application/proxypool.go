package application

import (
	"context"
	"sync"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	"github.com/rs/zerolog"
)

// ProxyPool tracks egress proxy records and their probed health.
type ProxyPool struct {
	prober   ports.Prober
	probeURL string
	clock    ports.Clock
	bus      *EventBus
	log      zerolog.Logger

	mu      sync.RWMutex
	order   []domain.ProxyID
	records map[domain.ProxyID]*domain.ProxyRecord
}

func NewProxyPool(records []domain.ProxyRecord, prober ports.Prober, probeURL string, clock ports.Clock, bus *EventBus, logger zerolog.Logger) *ProxyPool {
	pool := &ProxyPool{
		prober:   prober,
		probeURL: probeURL,
		clock:    clock,
		bus:      bus,
		log:      logger,
		records:  make(map[domain.ProxyID]*domain.ProxyRecord, len(records)),
	}

	for _, record := range records {
		record := record
		pool.order = append(pool.order, record.ID)
		pool.records[record.ID] = &record
	}

	return pool
}

// CheckProxy probes the well-known endpoint through the given proxy and
// records the result. Probe failures resolve to offline; they are never
// surfaced as errors.
func (p *ProxyPool) CheckProxy(ctx context.Context, id domain.ProxyID) bool {
	p.mu.RLock()
	record, ok := p.records[id]
	p.mu.RUnlock()
	if !ok {
		return false
	}

	result, err := p.prober.Probe(ctx, p.probeURL, record.URL)
	online := err == nil && result.Success()

	p.mu.Lock()
	record.Online = online
	record.LastCheckedAt = p.clock.Now()
	p.mu.Unlock()

	p.log.Debug().Str("proxy", string(id)).Bool("online", online).Msg("proxy checked")
	p.bus.Publish(Event{Kind: EventProxyChecked, Proxy: id, At: p.clock.Now()})

	return online
}

// CheckAll probes every distinct proxy concurrently and returns once every
// record has been updated, regardless of individual outcomes.
func (p *ProxyPool) CheckAll(ctx context.Context) {
	p.mu.RLock()
	ids := make([]domain.ProxyID, len(p.order))
	copy(ids, p.order)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.ProxyID) {
			defer wg.Done()
			p.CheckProxy(ctx, id)
		}(id)
	}
	wg.Wait()
}

// CheckDirect probes the well-known endpoint without a proxy, used as the
// boot-time internet reachability check.
func (p *ProxyPool) CheckDirect(ctx context.Context) bool {
	result, err := p.prober.Probe(ctx, p.probeURL, "")
	return err == nil && result.Success()
}

func (p *ProxyPool) Record(id domain.ProxyID) (domain.ProxyRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	record, ok := p.records[id]
	if !ok {
		return domain.ProxyRecord{}, false
	}

	return *record, true
}

func (p *ProxyPool) Records() []domain.ProxyRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records := make([]domain.ProxyRecord, 0, len(p.order))
	for _, id := range p.order {
		records = append(records, *p.records[id])
	}

	return records
}

// EgressOnline reports whether the egress path for the given proxy
// assignment is believed usable. Direct egress and never-checked proxies
// count as usable; only a probe that failed marks the path dead.
func (p *ProxyPool) EgressOnline(id domain.ProxyID) bool {
	if id == "" {
		return true
	}

	record, ok := p.Record(id)
	if !ok {
		return false
	}

	return !record.Checked() || record.Online
}
