package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	t.Parallel()

	var policy Policy
	policy.ApplyDefaults()

	assert.Equal(t, DefaultLoginSpacing, policy.LoginSpacing)
	assert.Equal(t, DefaultMaxLoginAttempts, policy.MaxLoginAttempts)
	assert.Equal(t, DefaultActionDelay, policy.ActionDelay)
	assert.Equal(t, DefaultMaxCapacity, policy.MaxCapacity)
	assert.Equal(t, DefaultWarnThreshold, policy.WarnThreshold)
	assert.Equal(t, DefaultRetention, policy.Retention)
	assert.Equal(t, DefaultSweepInterval, policy.SweepInterval)
	assert.Equal(t, DefaultProbeURL, policy.ProbeURL)
	assert.Equal(t, DefaultProbeTimeout, policy.ProbeTimeout)
	assert.False(t, policy.RelogAfterDisconnect)
	assert.False(t, policy.CountLimitedInStagger)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	policy := Policy{LoginSpacing: 5 * time.Second, MaxCapacity: 100}
	policy.ApplyDefaults()

	assert.Equal(t, 5*time.Second, policy.LoginSpacing)
	assert.Equal(t, 100, policy.MaxCapacity)
	assert.Equal(t, DefaultActionDelay, policy.ActionDelay)
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	t.Parallel()

	cfg := FleetConfig{
		Accounts: []AccountConfig{
			{Name: "alice", SecretRef: "ref-a", Proxy: "eu-1"},
			{Name: "bob", SecretRef: "ref-b"},
		},
		Proxies: []ProxyRecord{{ID: "eu-1", URL: "socks5://10.0.0.1:1080"}},
	}

	require.NoError(t, cfg.Validate())
}

func TestValidateAcceptsEmptyFleet(t *testing.T) {
	t.Parallel()

	require.NoError(t, FleetConfig{}.Validate())
}

func TestValidateRejectsDuplicateAccountNames(t *testing.T) {
	t.Parallel()

	cfg := FleetConfig{
		Accounts: []AccountConfig{
			{Name: "alice", SecretRef: "ref-a"},
			{Name: "alice", SecretRef: "ref-b"},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate account name")
}

func TestValidateRejectsDuplicateProxyIDs(t *testing.T) {
	t.Parallel()

	cfg := FleetConfig{
		Proxies: []ProxyRecord{
			{ID: "eu-1", URL: "socks5://10.0.0.1:1080"},
			{ID: "eu-1", URL: "socks5://10.0.0.2:1080"},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate proxy id")
}

func TestValidateRejectsUnknownProxyReference(t *testing.T) {
	t.Parallel()

	cfg := FleetConfig{
		Accounts: []AccountConfig{{Name: "alice", SecretRef: "ref-a", Proxy: "nowhere"}},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown proxy")
}

func TestValidateRejectsBlankNames(t *testing.T) {
	t.Parallel()

	err := FleetConfig{Accounts: []AccountConfig{{Name: "   "}}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account name is required")

	err = FleetConfig{Proxies: []ProxyRecord{{ID: "eu-1"}}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}
