package ports

import "context"

type ProbeResult struct {
	StatusCode    int
	StatusMessage string
}

// Prober issues one outbound connectivity probe, optionally through a
// proxy. An empty proxyURL means direct egress.
type Prober interface {
	Probe(ctx context.Context, url, proxyURL string) (ProbeResult, error)
}

func (r ProbeResult) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
