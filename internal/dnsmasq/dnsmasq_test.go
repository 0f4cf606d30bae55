package dnsmasq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderConf(t *testing.T) {
	conf := RenderConf(10000)

	assert.Contains(t, conf, "listen-address=127.0.0.1\n")
	assert.Contains(t, conf, "port=53\n")
	assert.Contains(t, conf, "user=_macblockd\n")
	assert.Contains(t, conf, "no-resolv\n")
	assert.Contains(t, conf, "cache-size=10000\n")
	assert.Contains(t, conf, "servers-file=/var/db/macblock/upstream.conf\n")
	assert.Contains(t, conf, "conf-file=/var/db/macblock/blocklist.conf")
	assert.True(t, conf[len(conf)-1] == '\n')
}

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Valid", func(t *testing.T) {
		path := filepath.Join(dir, "a.pid")
		require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0o644))
		assert.Equal(t, 4242, ReadPIDFile(path))
	})

	t.Run("Missing", func(t *testing.T) {
		assert.Equal(t, 0, ReadPIDFile(filepath.Join(dir, "nope.pid")))
	})

	t.Run("Garbage", func(t *testing.T) {
		path := filepath.Join(dir, "b.pid")
		require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0o644))
		assert.Equal(t, 0, ReadPIDFile(path))
	})

	t.Run("InitPIDRejected", func(t *testing.T) {
		path := filepath.Join(dir, "c.pid")
		require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o644))
		assert.Equal(t, 0, ReadPIDFile(path))
	})
}

func TestProcessRunning(t *testing.T) {
	assert.True(t, ProcessRunning(os.Getpid()))
	assert.False(t, ProcessRunning(0))
	// PID far above any default pid_max.
	assert.False(t, ProcessRunning(1<<22+12345))
}
