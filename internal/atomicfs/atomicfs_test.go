package atomicfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state.json")

	t.Run("CreatesWithPinnedMode", func(t *testing.T) {
		require.NoError(t, WriteFile(target, []byte("{}\n"), 0o644))

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		require.Equal(t, "{}\n", string(data))

		info, err := os.Stat(target)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	})

	t.Run("ReplacesExisting", func(t *testing.T) {
		require.NoError(t, WriteFile(target, []byte("v2\n"), 0o644))
		data, err := os.ReadFile(target)
		require.NoError(t, err)
		require.Equal(t, "v2\n", string(data))
	})

	t.Run("LeavesNoTempFiles", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})

	t.Run("MissingDirFails", func(t *testing.T) {
		err := WriteFile(filepath.Join(dir, "no-such-dir", "f"), []byte("x"), 0o644)
		require.Error(t, err)
	})
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")

	require.NoError(t, EnsureDir(nested, 0o755))
	info, err := os.Stat(nested)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// Idempotent.
	require.NoError(t, EnsureDir(nested, 0o755))
}

func TestCleanTemp(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.conf")
	stale := filepath.Join(dir, "keep.conf.new.tmp123456")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o600))

	CleanTemp(dir)

	_, err := os.Stat(keep)
	require.NoError(t, err)
	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err))
}
