package domain

import "fmt"

const RestartSnapshotVersion = 1

// RestartSnapshot is the state carried across a process restart. The
// orchestrator reads it once at boot and writes it once before asking the
// host to restart or stop; the host transports it verbatim.
type RestartSnapshot struct {
	Version         int      `json:"version"`
	SkippedAccounts []string `json:"skipped_accounts,omitempty"`
	LogBacklog      []string `json:"log_backlog,omitempty"`
	UpdateFailed    bool     `json:"update_failed,omitempty"`
}

func NewRestartSnapshot() RestartSnapshot {
	return RestartSnapshot{Version: RestartSnapshotVersion}
}

func (s RestartSnapshot) ValidateVersion() error {
	if s.Version > RestartSnapshotVersion {
		return fmt.Errorf("unsupported restart snapshot version %d (current %d)", s.Version, RestartSnapshotVersion)
	}

	return nil
}
