package application

import (
	"fmt"
	"sync"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
	"github.com/rs/zerolog"
)

// sessionHandle pairs one session with its connectivity capability. The
// mutex serializes every read and write of the session, including ledger
// mutations from the throttler, capacity manager and sweeper.
type sessionHandle struct {
	mu      sync.Mutex
	session *domain.Session
	conn    ports.Connectivity
}

type Fleet struct {
	order  []*sessionHandle
	byName map[string]*sessionHandle
	bus    *EventBus
	clock  ports.Clock
	log    zerolog.Logger
}

func NewFleet(accounts []domain.AccountConfig, factory ports.ConnectivityFactory, bus *EventBus, clock ports.Clock, logger zerolog.Logger) *Fleet {
	fleet := &Fleet{
		byName: make(map[string]*sessionHandle, len(accounts)),
		bus:    bus,
		clock:  clock,
		log:    logger,
	}

	for i, account := range accounts {
		handle := &sessionHandle{
			session: domain.NewSession(i, account.Name, account.SecretRef, account.Proxy),
			conn:    factory.Open(account.Name),
		}
		fleet.order = append(fleet.order, handle)
		fleet.byName[account.Name] = handle
	}

	return fleet
}

func (f *Fleet) handle(name string) (*sessionHandle, error) {
	handle, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrSessionNotFound, name)
	}

	return handle, nil
}

// Names returns account names in fleet order.
func (f *Fleet) Names() []string {
	names := make([]string, 0, len(f.order))
	for _, handle := range f.order {
		names = append(names, handle.session.Name)
	}

	return names
}

func (f *Fleet) Status(name string) (domain.SessionStatus, error) {
	handle, err := f.handle(name)
	if err != nil {
		return "", err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	return handle.session.Status, nil
}

func (f *Fleet) Limitations(name string) (domain.Limitations, error) {
	handle, err := f.handle(name)
	if err != nil {
		return domain.Limitations{}, err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	return handle.session.Limitations, nil
}

// Transition moves a session through its state machine and emits a status
// event. Emission never blocks (see EventBus).
func (f *Fleet) Transition(name string, next domain.SessionStatus) error {
	handle, err := f.handle(name)
	if err != nil {
		return err
	}

	handle.mu.Lock()
	err = handle.session.Transition(next)
	handle.mu.Unlock()
	if err != nil {
		return err
	}

	f.log.Info().Str("session", name).Str("status", string(next)).Msg("session status changed")
	f.bus.Publish(Event{
		Kind:    EventStatusChanged,
		Session: name,
		Status:  next,
		At:      f.clock.Now(),
	})

	return nil
}

func (f *Fleet) SetLimitations(name string, limitations domain.Limitations) error {
	handle, err := f.handle(name)
	if err != nil {
		return err
	}

	handle.mu.Lock()
	changed := handle.session.Limitations != limitations
	handle.session.Limitations = limitations
	status := handle.session.Status
	handle.mu.Unlock()

	if changed {
		f.log.Info().Str("session", name).Bool("limited", limitations.Limited).Msg("session limitations changed")
		f.bus.Publish(Event{
			Kind:    EventStatusChanged,
			Session: name,
			Status:  status,
			Message: limitationMessage(limitations),
			At:      f.clock.Now(),
		})
	}

	return nil
}

func limitationMessage(limitations domain.Limitations) string {
	switch {
	case limitations.CommunityBanned:
		return "community banned"
	case limitations.Limited:
		return "limited"
	default:
		return "unrestricted"
	}
}

// WithSession runs fn with exclusive access to the session. Every ledger
// mutation goes through here so the two timer-driven writers cannot
// interleave on the same session.
func (f *Fleet) WithSession(name string, fn func(session *domain.Session) error) error {
	handle, err := f.handle(name)
	if err != nil {
		return err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	return fn(handle.session)
}

func (f *Fleet) Conn(name string) (ports.Connectivity, error) {
	handle, err := f.handle(name)
	if err != nil {
		return nil, err
	}

	return handle.conn, nil
}

// OnlineNames returns, in fleet order, sessions currently online.
func (f *Fleet) OnlineNames() []string {
	var names []string
	for _, handle := range f.order {
		handle.mu.Lock()
		if handle.session.Status == domain.StatusOnline {
			names = append(names, handle.session.Name)
		}
		handle.mu.Unlock()
	}

	return names
}

func (f *Fleet) snapshot(name string) (domain.Session, error) {
	handle, err := f.handle(name)
	if err != nil {
		return domain.Session{}, err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	return *handle.session, nil
}
