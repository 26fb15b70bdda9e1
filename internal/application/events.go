package application

import (
	"sync"
	"time"

	"github.com/roster-cli/roster/internal/domain"
)

type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventWarning       EventKind = "warning"
	EventProxyChecked  EventKind = "proxy_checked"
	EventActionDone    EventKind = "action_done"
)

type Event struct {
	Kind    EventKind
	Session string
	Status  domain.SessionStatus
	Proxy   domain.ProxyID
	Message string
	At      time.Time
}

// EventBus fans events out to subscribers. Publishing never blocks: a
// subscriber that falls behind loses events rather than stalling the
// state machine.
type EventBus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe(buffer int) <-chan Event {
	if buffer < 1 {
		buffer = 1
	}

	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)

	return ch
}

func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
