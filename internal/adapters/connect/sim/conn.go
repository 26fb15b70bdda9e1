// Package sim provides a simulated connectivity capability. The real wire
// protocol is an external collaborator; the simulator stands in for it in
// dry runs and tests, with scriptable failures and limitations.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/roster-cli/roster/internal/domain"
	"github.com/roster-cli/roster/internal/ports"
)

type Factory struct {
	// FailLogin scripts a login error per account name; entries are
	// consumed on first use so retries can succeed.
	FailLogin map[string]error
	// Limited marks accounts that report a limitation right after login.
	Limited map[string]bool
	// Relationships seeds the remote relationship count per account.
	Relationships map[string]int

	mu    sync.Mutex
	conns map[string]*Conn
}

var _ ports.ConnectivityFactory = (*Factory)(nil)

func (f *Factory) Open(account string) ports.Connectivity {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conns == nil {
		f.conns = make(map[string]*Conn)
	}
	if conn, ok := f.conns[account]; ok {
		return conn
	}

	conn := &Conn{
		factory:   f,
		account:   account,
		peers:     make(map[domain.PeerID]struct{}),
		seedCount: f.Relationships[account],
		events:    make(chan ports.ConnectivityEvent, 8),
	}
	f.conns[account] = conn

	return conn
}

// Conn retrieves the simulated handle for an account, for tests that
// script events mid-run.
func (f *Factory) Conn(account string) *Conn {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.conns[account]
}

type Conn struct {
	factory *Factory
	account string

	mu        sync.Mutex
	online    bool
	proxyURL  string
	seedCount int
	peers     map[domain.PeerID]struct{}
	comments  []string

	events chan ports.ConnectivityEvent
}

var _ ports.Connectivity = (*Conn)(nil)

func (c *Conn) Login(ctx context.Context, creds ports.Credentials, proxyURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.factory.mu.Lock()
	scripted := c.factory.FailLogin[c.account]
	if scripted != nil {
		delete(c.factory.FailLogin, c.account)
	}
	limited := c.factory.Limited[c.account]
	c.factory.mu.Unlock()

	if scripted != nil {
		return scripted
	}
	if creds.Secret == "" {
		return &domain.AuthError{Reason: "empty credential secret"}
	}

	c.mu.Lock()
	c.online = true
	c.proxyURL = proxyURL
	c.mu.Unlock()

	if limited {
		c.events <- ports.ConnectivityEvent{
			Kind:        ports.EventLimitationChanged,
			Limitations: domain.Limitations{Limited: true},
		}
	}

	return nil
}

func (c *Conn) Logoff(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.online = false
	c.mu.Unlock()

	return nil
}

func (c *Conn) AddRelationship(ctx context.Context, peer domain.PeerID) error {
	if err := c.requireOnline(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.peers[peer]; ok {
		return fmt.Errorf("already friends with %s", peer)
	}
	c.peers[peer] = struct{}{}

	return nil
}

func (c *Conn) RemoveRelationship(ctx context.Context, peer domain.PeerID) error {
	if err := c.requireOnline(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.peers[peer]; !ok {
		if c.seedCount > 0 {
			c.seedCount--
			return nil
		}
		return fmt.Errorf("not friends with %s", peer)
	}
	delete(c.peers, peer)

	return nil
}

func (c *Conn) PostComment(ctx context.Context, peer domain.PeerID, text string) error {
	if err := c.requireOnline(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.comments = append(c.comments, fmt.Sprintf("%s: %s", peer, text))

	return nil
}

func (c *Conn) Vote(ctx context.Context, peer domain.PeerID) error {
	return c.requireOnline(ctx)
}

func (c *Conn) RelationshipCount(ctx context.Context) (int, error) {
	if err := c.requireOnline(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.seedCount + len(c.peers), nil
}

func (c *Conn) Events() <-chan ports.ConnectivityEvent {
	return c.events
}

// Drop simulates the remote service dropping the session.
func (c *Conn) Drop() {
	c.mu.Lock()
	c.online = false
	c.mu.Unlock()

	c.events <- ports.ConnectivityEvent{Kind: ports.EventDisconnected}
}

// Online reports the simulated connection state.
func (c *Conn) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.online
}

// ProxyURL reports the proxy the last login used, empty for direct.
func (c *Conn) ProxyURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.proxyURL
}

func (c *Conn) requireOnline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.online {
		return &domain.NetworkError{Op: "call", Err: fmt.Errorf("session %s not logged in", c.account)}
	}

	return nil
}
