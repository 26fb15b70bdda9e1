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

func newPoolRig(prober *fakeProber, records ...domain.ProxyRecord) (*ProxyPool, *fakeClock, *EventBus) {
	clock := newFakeClock(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC))
	bus := NewEventBus()
	pool := NewProxyPool(records, prober, "https://probe.invalid/", clock, bus, zerolog.Nop())
	return pool, clock, bus
}

func TestCheckAllUpdatesEveryRecordDespiteFailures(t *testing.T) {
	t.Parallel()

	prober := newFakeProber()
	prober.fail["socks5://10.0.0.2:1080"] = errors.New("connection refused")

	pool, clock, _ := newPoolRig(prober,
		domain.ProxyRecord{ID: "eu-1", URL: "socks5://10.0.0.1:1080"},
		domain.ProxyRecord{ID: "us-1", URL: "socks5://10.0.0.2:1080"},
		domain.ProxyRecord{ID: "ap-1", URL: "socks5://10.0.0.3:1080"},
	)

	pool.CheckAll(context.Background())

	records := pool.Records()
	require.Len(t, records, 3)
	for _, record := range records {
		assert.Equal(t, clock.Now(), record.LastCheckedAt, "record %s not checked", record.ID)
	}

	assert.True(t, pool.EgressOnline("eu-1"))
	assert.False(t, pool.EgressOnline("us-1"))
	assert.True(t, pool.EgressOnline("ap-1"))
}

func TestCheckProxyTreatsNonSuccessStatusAsOffline(t *testing.T) {
	t.Parallel()

	prober := newFakeProber()
	prober.status["socks5://10.0.0.1:1080"] = 502

	pool, _, _ := newPoolRig(prober, domain.ProxyRecord{ID: "eu-1", URL: "socks5://10.0.0.1:1080"})

	assert.False(t, pool.CheckProxy(context.Background(), "eu-1"))
	assert.False(t, pool.EgressOnline("eu-1"))
}

func TestCheckProxyPublishesProxyCheckedEvent(t *testing.T) {
	t.Parallel()

	pool, _, bus := newPoolRig(newFakeProber(), domain.ProxyRecord{ID: "eu-1", URL: "socks5://10.0.0.1:1080"})
	events := bus.Subscribe(4)

	require.True(t, pool.CheckProxy(context.Background(), "eu-1"))

	select {
	case event := <-events:
		assert.Equal(t, EventProxyChecked, event.Kind)
		assert.Equal(t, domain.ProxyID("eu-1"), event.Proxy)
	default:
		t.Fatal("no proxy checked event published")
	}
}

func TestEgressOnlineSemantics(t *testing.T) {
	t.Parallel()

	pool, _, _ := newPoolRig(newFakeProber(), domain.ProxyRecord{ID: "eu-1", URL: "socks5://10.0.0.1:1080"})

	// Direct egress is always usable.
	assert.True(t, pool.EgressOnline(""))
	// An unknown assignment is not.
	assert.False(t, pool.EgressOnline("nowhere"))
	// A proxy that has never been probed gets the benefit of the doubt.
	assert.True(t, pool.EgressOnline("eu-1"))
}

func TestCheckDirectReflectsProbeOutcome(t *testing.T) {
	t.Parallel()

	prober := newFakeProber()
	pool, _, _ := newPoolRig(prober)
	assert.True(t, pool.CheckDirect(context.Background()))

	prober.fail[""] = errors.New("no route to host")
	assert.False(t, pool.CheckDirect(context.Background()))
}

func TestCheckUnknownProxyReturnsFalse(t *testing.T) {
	t.Parallel()

	pool, _, _ := newPoolRig(newFakeProber())
	assert.False(t, pool.CheckProxy(context.Background(), "nowhere"))
}
