package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
daemon:
  logLevel: debug
  tick: 10s
update:
  customFloor: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Daemon.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Daemon.Tick.Std())
	assert.Equal(t, 5, cfg.Daemon.MaxFailures)
	assert.Equal(t, 1000, cfg.Update.Floor)
	assert.Equal(t, 50, cfg.Update.CustomFloor)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"BadYAML":   "daemon: [",
		"BadFloor":  "update:\n  floor: 0\n",
		"BadTick":   "daemon:\n  tick: 1ms\n",
		"BadBudget": "daemon:\n  maxFailures: 0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestFloorFor(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1000, cfg.FloorFor(false))
	assert.Equal(t, 1000, cfg.FloorFor(true))

	cfg.Update.CustomFloor = 10
	assert.Equal(t, 1000, cfg.FloorFor(false))
	assert.Equal(t, 10, cfg.FloorFor(true))
}
