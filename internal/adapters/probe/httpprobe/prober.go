package httpprobe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/roster-cli/roster/internal/ports"
)

const defaultTimeout = 10 * time.Second

// Prober issues HTTP GET probes, optionally through an HTTP(S) proxy. Each
// probe is bounded by the configured timeout regardless of the caller's
// context.
type Prober struct {
	timeout time.Duration
}

var _ ports.Prober = (*Prober)(nil)

func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Prober{timeout: timeout}
}

func (p *Prober) Probe(ctx context.Context, rawURL, proxyURL string) (ports.ProbeResult, error) {
	client := &http.Client{Timeout: p.timeout}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return ports.ProbeResult{}, fmt.Errorf("parse proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ports.ProbeResult{}, fmt.Errorf("build probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return ports.ProbeResult{}, fmt.Errorf("probe %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return ports.ProbeResult{StatusCode: resp.StatusCode, StatusMessage: resp.Status}, nil
}
