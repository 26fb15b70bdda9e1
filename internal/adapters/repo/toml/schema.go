package toml

import (
	"fmt"
	"time"

	"github.com/roster-cli/roster/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
	Proxies  []proxySchema   `toml:"proxies,omitempty"`
	Policy   policySchema    `toml:"policy,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported fleet schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	Name      string `toml:"name"`
	SecretRef string `toml:"secret_ref"`
	Proxy     string `toml:"proxy,omitempty"`
}

type proxySchema struct {
	ID  string `toml:"id"`
	URL string `toml:"url"`
}

type policySchema struct {
	LoginSpacingMS        int64  `toml:"login_spacing_ms,omitempty"`
	MaxLoginAttempts      int    `toml:"max_login_attempts,omitempty"`
	RelogAfterDisconnect  bool   `toml:"relog_after_disconnect,omitempty"`
	ActionDelayMS         int64  `toml:"action_delay_ms,omitempty"`
	CountLimitedInStagger bool   `toml:"count_limited_in_stagger,omitempty"`
	MaxCapacity           int    `toml:"max_capacity,omitempty"`
	WarnThreshold         int    `toml:"warn_threshold,omitempty"`
	RetentionDays         int    `toml:"retention_days,omitempty"`
	SweepIntervalMinutes  int    `toml:"sweep_interval_minutes,omitempty"`
	ProbeURL              string `toml:"probe_url,omitempty"`
	ProbeTimeoutMS        int64  `toml:"probe_timeout_ms,omitempty"`
}

func fromSchema(file fileSchema) domain.FleetConfig {
	cfg := domain.FleetConfig{}

	for _, account := range file.Accounts {
		cfg.Accounts = append(cfg.Accounts, domain.AccountConfig{
			Name:      account.Name,
			SecretRef: account.SecretRef,
			Proxy:     domain.ProxyID(account.Proxy),
		})
	}

	for _, proxy := range file.Proxies {
		cfg.Proxies = append(cfg.Proxies, domain.ProxyRecord{
			ID:  domain.ProxyID(proxy.ID),
			URL: proxy.URL,
		})
	}

	cfg.Policy = domain.Policy{
		LoginSpacing:          time.Duration(file.Policy.LoginSpacingMS) * time.Millisecond,
		MaxLoginAttempts:      file.Policy.MaxLoginAttempts,
		RelogAfterDisconnect:  file.Policy.RelogAfterDisconnect,
		ActionDelay:           time.Duration(file.Policy.ActionDelayMS) * time.Millisecond,
		CountLimitedInStagger: file.Policy.CountLimitedInStagger,
		MaxCapacity:           file.Policy.MaxCapacity,
		WarnThreshold:         file.Policy.WarnThreshold,
		Retention:             time.Duration(file.Policy.RetentionDays) * 24 * time.Hour,
		SweepInterval:         time.Duration(file.Policy.SweepIntervalMinutes) * time.Minute,
		ProbeURL:              file.Policy.ProbeURL,
		ProbeTimeout:          time.Duration(file.Policy.ProbeTimeoutMS) * time.Millisecond,
	}
	cfg.Policy.ApplyDefaults()

	return cfg
}

func toSchema(cfg domain.FleetConfig) fileSchema {
	file := fileSchema{Version: currentSchemaVersion}

	for _, account := range cfg.Accounts {
		file.Accounts = append(file.Accounts, accountSchema{
			Name:      account.Name,
			SecretRef: account.SecretRef,
			Proxy:     string(account.Proxy),
		})
	}

	for _, proxy := range cfg.Proxies {
		file.Proxies = append(file.Proxies, proxySchema{
			ID:  string(proxy.ID),
			URL: proxy.URL,
		})
	}

	file.Policy = policySchema{
		LoginSpacingMS:        cfg.Policy.LoginSpacing.Milliseconds(),
		MaxLoginAttempts:      cfg.Policy.MaxLoginAttempts,
		RelogAfterDisconnect:  cfg.Policy.RelogAfterDisconnect,
		ActionDelayMS:         cfg.Policy.ActionDelay.Milliseconds(),
		CountLimitedInStagger: cfg.Policy.CountLimitedInStagger,
		MaxCapacity:           cfg.Policy.MaxCapacity,
		WarnThreshold:         cfg.Policy.WarnThreshold,
		RetentionDays:         int(cfg.Policy.Retention.Hours() / 24),
		SweepIntervalMinutes:  int(cfg.Policy.SweepInterval.Minutes()),
		ProbeURL:              cfg.Policy.ProbeURL,
		ProbeTimeoutMS:        cfg.Policy.ProbeTimeout.Milliseconds(),
	}

	return file
}
