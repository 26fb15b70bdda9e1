package restart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster-cli/roster/internal/domain"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	snapshot := domain.NewRestartSnapshot()
	snapshot.SkippedAccounts = []string{"alice", "bob"}
	snapshot.LogBacklog = []string{"proxy eu-1 offline", "login given up: bad password"}
	snapshot.UpdateFailed = true

	blob, err := Encode(snapshot)
	require.NoError(t, err)
	assert.NotContains(t, blob, " ")
	assert.NotContains(t, blob, "=")

	decoded, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, snapshot, decoded)
}

func TestEncodeFillsMissingVersion(t *testing.T) {
	t.Parallel()

	blob, err := Encode(domain.RestartSnapshot{})
	require.NoError(t, err)

	decoded, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, domain.RestartSnapshotVersion, decoded.Version)
}

func TestDecodeRejectsFutureVersion(t *testing.T) {
	t.Parallel()

	blob, err := Encode(domain.RestartSnapshot{Version: domain.RestartSnapshotVersion + 1})
	require.NoError(t, err)

	_, err = Decode(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported restart snapshot version")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decode("not base64 at all!!!")
	require.Error(t, err)

	_, err = Decode("aGVsbG8")
	require.Error(t, err)
}
