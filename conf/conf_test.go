package conf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-igs/conf"
)

func TestDefaultIsSelfConsistent(t *testing.T) {
	c := conf.Default()
	assert.Greater(t, c.TCPPort, uint(0))
	assert.Less(t, c.KMin, c.KMax)
	assert.Greater(t, c.ClockMillis, int64(0))
}

func TestDumpThenLoadRoundTrips(t *testing.T) {
	c := conf.Default()
	c.ServerName = "test-igs"
	c.TCPPort = 7777
	c.Board.Size = 13

	path := filepath.Join(t.TempDir(), "go-igs.toml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, c.Dump(f))
	require.NoError(t, f.Close())

	loaded, err := conf.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-igs", loaded.ServerName)
	assert.Equal(t, uint(7777), loaded.TCPPort)
	assert.Equal(t, 13, loaded.Board.Size)
}

func TestLoadPresetsWithoutPathIsNotAnError(t *testing.T) {
	presets, err := conf.LoadPresets("")
	require.NoError(t, err)
	assert.Nil(t, presets)
}

func TestLoadPresetsMissingFileIsNotAnError(t *testing.T) {
	presets, err := conf.LoadPresets("/nonexistent/path/presets.yaml")
	require.NoError(t, err)
	assert.Nil(t, presets)
}
