package application

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
)

// fakeClock advances virtually on Sleep so spacing logic runs without
// wall-clock waits.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if d > 0 {
		c.mu.Lock()
		c.now = c.now.Add(d)
		c.mu.Unlock()
	}

	// Yield so goroutines blocked on this virtual instant get to run.
	runtime.Gosched()
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeConn struct {
	mu sync.Mutex

	clock      *fakeClock
	loginErrs  []error
	loginGate  chan struct{}
	loginTimes []time.Time
	proxyURLs  []string
	online     bool
	loggedOff  bool

	addErr     error
	removeErr  error
	commentErr error
	voteErr    error

	added    []domain.PeerID
	removed  []domain.PeerID
	comments []domain.PeerID
	votes    []domain.PeerID

	count    int
	countErr error

	events chan ports.ConnectivityEvent
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan ports.ConnectivityEvent, 8)}
}

func (c *fakeConn) Login(_ context.Context, _ ports.Credentials, proxyURL string) error {
	c.mu.Lock()
	gate := c.loginGate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.proxyURLs = append(c.proxyURLs, proxyURL)
	if c.clock != nil {
		c.loginTimes = append(c.loginTimes, c.clock.Now())
	}
	if len(c.loginErrs) > 0 {
		err := c.loginErrs[0]
		c.loginErrs = c.loginErrs[1:]
		if err != nil {
			return err
		}
	}
	c.online = true
	return nil
}

func (c *fakeConn) Logoff(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.online = false
	c.loggedOff = true
	return nil
}

func (c *fakeConn) AddRelationship(_ context.Context, peer domain.PeerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.addErr != nil {
		return c.addErr
	}
	c.added = append(c.added, peer)
	return nil
}

func (c *fakeConn) RemoveRelationship(_ context.Context, peer domain.PeerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removeErr != nil {
		return c.removeErr
	}
	c.removed = append(c.removed, peer)
	return nil
}

func (c *fakeConn) PostComment(_ context.Context, peer domain.PeerID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.commentErr != nil {
		return c.commentErr
	}
	c.comments = append(c.comments, peer)
	return nil
}

func (c *fakeConn) Vote(_ context.Context, peer domain.PeerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.voteErr != nil {
		return c.voteErr
	}
	c.votes = append(c.votes, peer)
	return nil
}

func (c *fakeConn) RelationshipCount(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.countErr != nil {
		return 0, c.countErr
	}
	return c.count, nil
}

func (c *fakeConn) Events() <-chan ports.ConnectivityEvent {
	return c.events
}

func (c *fakeConn) commentedPeers() []domain.PeerID {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.PeerID, len(c.comments))
	copy(out, c.comments)
	return out
}

func (c *fakeConn) removedPeers() []domain.PeerID {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.PeerID, len(c.removed))
	copy(out, c.removed)
	return out
}

func (c *fakeConn) addedPeers() []domain.PeerID {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.PeerID, len(c.added))
	copy(out, c.added)
	return out
}

func (c *fakeConn) loginAttempts() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Time, len(c.loginTimes))
	copy(out, c.loginTimes)
	return out
}

type fakeFactory struct {
	mu    sync.Mutex
	conns map[string]*fakeConn
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{conns: make(map[string]*fakeConn)}
}

func (f *fakeFactory) Open(account string) ports.Connectivity {
	return f.conn(account)
}

func (f *fakeFactory) conn(account string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()

	if conn, ok := f.conns[account]; ok {
		return conn
	}
	conn := newFakeConn()
	f.conns[account] = conn
	return conn
}

// fakeProber resolves by proxy URL; unlisted URLs succeed with HTTP 200.
type fakeProber struct {
	mu     sync.Mutex
	fail   map[string]error
	status map[string]int
	calls  []string
}

func newFakeProber() *fakeProber {
	return &fakeProber{fail: map[string]error{}, status: map[string]int{}}
}

func (p *fakeProber) Probe(_ context.Context, _ string, proxyURL string) (ports.ProbeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, proxyURL)
	if err, ok := p.fail[proxyURL]; ok {
		return ports.ProbeResult{}, err
	}
	status, ok := p.status[proxyURL]
	if !ok {
		status = 200
	}
	return ports.ProbeResult{StatusCode: status}, nil
}

type fakeSecrets struct {
	values map[string]string
}

func (s *fakeSecrets) Put(_ context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *fakeSecrets) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("secret %q not found", key)
	}
	return value, nil
}

func (s *fakeSecrets) Delete(_ context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func secretsFor(accounts ...domain.AccountConfig) *fakeSecrets {
	secrets := &fakeSecrets{values: map[string]string{}}
	for _, account := range accounts {
		secrets.values[account.SecretRef] = "hunter2"
	}
	return secrets
}

func accountConfigs(names ...string) []domain.AccountConfig {
	var accounts []domain.AccountConfig
	for _, name := range names {
		accounts = append(accounts, domain.AccountConfig{
			Name:      name,
			SecretRef: "roster/accounts/" + name + "/password",
		})
	}
	return accounts
}

// forceOnline walks a session through the legal path to online.
func forceOnline(f *Fleet, names ...string) {
	for _, name := range names {
		_ = f.Transition(name, domain.StatusLoggingIn)
		_ = f.Transition(name, domain.StatusOnline)
	}
}
