package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountConfig struct {
	Name      string
	SecretRef string
	Proxy     ProxyID
}

// Policy carries the fleet-wide scheduling knobs. Zero values are filled in
// by ApplyDefaults before validation.
type Policy struct {
	LoginSpacing          time.Duration
	MaxLoginAttempts      int
	RelogAfterDisconnect  bool
	ActionDelay           time.Duration
	CountLimitedInStagger bool
	MaxCapacity           int
	WarnThreshold         int
	Retention             time.Duration
	SweepInterval         time.Duration
	ProbeURL              string
	ProbeTimeout          time.Duration
}

const (
	DefaultLoginSpacing     = 20 * time.Second
	DefaultMaxLoginAttempts = 3
	DefaultActionDelay      = 5 * time.Second
	DefaultMaxCapacity      = 250
	DefaultWarnThreshold    = 10
	DefaultRetention        = 60 * 24 * time.Hour
	DefaultSweepInterval    = time.Hour
	DefaultProbeURL         = "https://www.google.com/"
	DefaultProbeTimeout     = 10 * time.Second
)

func (p *Policy) ApplyDefaults() {
	if p.LoginSpacing <= 0 {
		p.LoginSpacing = DefaultLoginSpacing
	}
	if p.MaxLoginAttempts <= 0 {
		p.MaxLoginAttempts = DefaultMaxLoginAttempts
	}
	if p.ActionDelay <= 0 {
		p.ActionDelay = DefaultActionDelay
	}
	if p.MaxCapacity <= 0 {
		p.MaxCapacity = DefaultMaxCapacity
	}
	if p.WarnThreshold <= 0 {
		p.WarnThreshold = DefaultWarnThreshold
	}
	if p.Retention <= 0 {
		p.Retention = DefaultRetention
	}
	if p.SweepInterval <= 0 {
		p.SweepInterval = DefaultSweepInterval
	}
	if strings.TrimSpace(p.ProbeURL) == "" {
		p.ProbeURL = DefaultProbeURL
	}
	if p.ProbeTimeout <= 0 {
		p.ProbeTimeout = DefaultProbeTimeout
	}
}

type FleetConfig struct {
	Accounts []AccountConfig
	Proxies  []ProxyRecord
	Policy   Policy
}

func (c FleetConfig) Validate() error {
	proxies := make(map[ProxyID]struct{}, len(c.Proxies))
	for _, proxy := range c.Proxies {
		if strings.TrimSpace(string(proxy.ID)) == "" {
			return fmt.Errorf("proxy id is required")
		}
		if strings.TrimSpace(proxy.URL) == "" {
			return fmt.Errorf("proxy %s: url is required", proxy.ID)
		}
		if _, ok := proxies[proxy.ID]; ok {
			return fmt.Errorf("duplicate proxy id %q", proxy.ID)
		}
		proxies[proxy.ID] = struct{}{}
	}

	names := make(map[string]struct{}, len(c.Accounts))
	for _, account := range c.Accounts {
		if strings.TrimSpace(account.Name) == "" {
			return fmt.Errorf("account name is required")
		}
		if _, ok := names[account.Name]; ok {
			return fmt.Errorf("duplicate account name %q", account.Name)
		}
		names[account.Name] = struct{}{}

		if account.Proxy != "" {
			if _, ok := proxies[account.Proxy]; !ok {
				return fmt.Errorf("account %s: unknown proxy %q", account.Name, account.Proxy)
			}
		}
	}

	return nil
}
