package profiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllProfilesAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range All() {
		assert.NoError(t, p.Settings.Validate(), p.Name)
		assert.False(t, seen[p.Name], "duplicate profile %s", p.Name)
		seen[p.Name] = true
	}
}

func TestGet(t *testing.T) {
	p, err := Get("broadcast-ch80-2M")
	require.NoError(t, err)
	assert.Equal(t, crazyradio.AckModeAutoAckOff, p.Settings.AckMode)
	assert.Equal(t, crazyradio.AckPayloadLengthUseRetryDelay, p.Settings.AckPayloadLength)

	p, err = Get("default")
	require.NoError(t, err)
	assert.Equal(t, crazyradio.DefaultSettings(), p.Settings)

	_, err = Get("nope")
	assert.Error(t, err)
}

func TestGenerateAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	require.NoError(t, Generate(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(All()))

	loaded, err := LoadProfileFromFile(filepath.Join(dir, "long-range-ch80.json"))
	require.NoError(t, err)
	assert.Equal(t, *NewLongRange(80), loaded.Profile)
	assert.False(t, loaded.Timestamp.IsZero())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"profile":{"name":"bad","settings":{"channel":130}}}`), 0644))

	_, err := LoadProfileFromFile(path)
	assert.ErrorIs(t, err, crazyradio.ErrInvalidConfiguration)
}
