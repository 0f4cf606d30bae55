package lists

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTolerant(t *testing.T) {
	path := tempList(t, `# allowlist
good.example
not a domain!!
ALSO-Good.example.

bad_label.example
good.example
`)
	domains, warnings, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"good.example", "also-good.example"}, domains)
	require.Len(t, warnings, 2)
	assert.Equal(t, 3, warnings[0].Line)
	assert.Contains(t, warnings[0].String(), path)
	assert.Equal(t, 6, warnings[1].Line)
}

func TestReadMissing(t *testing.T) {
	domains, warnings, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Empty(t, domains)
	assert.Empty(t, warnings)
}

func TestAddRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.txt")

	changed, _, err := Add(path, "Tracker.Example")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, _, err = Add(path, "tracker.example")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, _, err = Add(path, "ads.example")
	require.NoError(t, err)
	assert.True(t, changed)

	domains, _, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example", "tracker.example"}, domains)

	changed, _, err = Remove(path, "tracker.example")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, _, err = Remove(path, "tracker.example")
	require.NoError(t, err)
	assert.False(t, changed)

	domains, _, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ads.example"}, domains)
}

func TestAddInvalidDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.txt")
	_, _, err := Add(path, "not a domain")
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteBackKeepsValidLines(t *testing.T) {
	path := tempList(t, "keep.example\n!!!\nother.example\n")

	changed, warnings, err := Add(path, "new.example")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, warnings, 1)

	domains, warnings, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"keep.example", "new.example", "other.example"}, domains)
}
