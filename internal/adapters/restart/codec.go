package restart

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/roster-cli/roster/internal/domain"
)

// Encode serializes a restart snapshot into a single argv-safe token. The
// encoding round-trips byte-for-byte; the host treats it as opaque.
func Encode(snapshot domain.RestartSnapshot) (string, error) {
	if snapshot.Version == 0 {
		snapshot.Version = domain.RestartSnapshotVersion
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode restart snapshot: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(data), nil
}

func Decode(blob string) (domain.RestartSnapshot, error) {
	data, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return domain.RestartSnapshot{}, fmt.Errorf("decode restart snapshot: %w", err)
	}

	var snapshot domain.RestartSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.RestartSnapshot{}, fmt.Errorf("decode restart snapshot: %w", err)
	}
	if err := snapshot.ValidateVersion(); err != nil {
		return domain.RestartSnapshot{}, err
	}

	return snapshot, nil
}
