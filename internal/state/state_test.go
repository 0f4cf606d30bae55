package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macblock/internal/cmderr"
)

func writeState(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, st.SchemaVersion)
	assert.False(t, st.Enabled)
	assert.Nil(t, st.PausedUntil)
	assert.NotNil(t, st.DNSBackup)
}

func TestLoadCorrupt(t *testing.T) {
	cases := map[string]string{
		"NotJSON":             `{{{`,
		"NotAnObject":         `[1,2]`,
		"SchemaVersionString": `{"enabled": true, "schema_version": "two"}`,
		"SchemaVersionAbsent": `{"enabled": true}`,
		"MalformedBackup":     `{"schema_version": 2, "dns_backup": {"Wi-Fi": 7}}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeState(t, content))
			require.Error(t, err)
			e, ok := cmderr.As(err)
			require.True(t, ok)
			assert.Equal(t, cmderr.StateCorrupt, e.Kind)
			assert.Contains(t, e.Error(), "repair or delete")
		})
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	paused := int64(1900000000)
	updated := int64(1800000000)
	st := Default()
	st.Enabled = true
	st.PausedUntil = &paused
	st.Source = "stevenblack"
	st.LastUpdateAt = &updated
	st.DNSBackup = map[string]Backup{
		"Wi-Fi":    {Servers: []string{"192.168.1.1", "1.1.1.1"}},
		"Ethernet": {Empty: true},
	}
	st.ManagedServices = []string{"Wi-Fi", "Ethernet"}
	st.Allowlist = []string{"good.example", "also-good.example"}
	st.Denylist = []string{"bad.example"}

	require.NoError(t, Save(path, st))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, st.Enabled, got.Enabled)
	assert.Equal(t, st.PausedUntil, got.PausedUntil)
	assert.Equal(t, st.Source, got.Source)
	assert.Equal(t, st.LastUpdateAt, got.LastUpdateAt)
	assert.Equal(t, st.DNSBackup, got.DNSBackup)
	assert.ElementsMatch(t, st.ManagedServices, got.ManagedServices)
	assert.ElementsMatch(t, st.Allowlist, got.Allowlist)
	assert.ElementsMatch(t, st.Denylist, got.Denylist)
}

func TestBackupSentinel(t *testing.T) {
	path := writeState(t, `{
  "schema_version": 2,
  "dns_backup": {"Wi-Fi": "Empty", "Ethernet": ["10.0.0.1"]}
}`)
	st, err := Load(path)
	require.NoError(t, err)
	assert.True(t, st.DNSBackup["Wi-Fi"].Empty)
	assert.Equal(t, []string{"10.0.0.1"}, st.DNSBackup["Ethernet"].Servers)
}

func TestUnknownKeysPreserved(t *testing.T) {
	path := writeState(t, `{
  "schema_version": 2,
  "enabled": true,
  "future_field": {"nested": [1, 2, 3]}
}`)
	st, err := Load(path)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, Save(out, st))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"future_field"`)
	assert.Contains(t, string(data), `"nested"`)
}

func TestNewerSchemaBestEffort(t *testing.T) {
	path := writeState(t, `{"schema_version": 99, "enabled": true, "source": "oisd-big"}`)
	st, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99, st.SchemaVersion)
	assert.True(t, st.Enabled)
	assert.Equal(t, "oisd-big", st.Source)
}

func TestEffectiveOn(t *testing.T) {
	now := time.Unix(1000, 0)

	st := Default()
	assert.False(t, st.EffectiveOn(now))

	st.Enabled = true
	assert.True(t, st.EffectiveOn(now))

	future := int64(2000)
	st.PausedUntil = &future
	assert.False(t, st.EffectiveOn(now))
	assert.False(t, st.PauseExpired(now))

	past := int64(500)
	st.PausedUntil = &past
	assert.True(t, st.EffectiveOn(now))
	assert.True(t, st.PauseExpired(now))
}

func TestDeterministicSave(t *testing.T) {
	path1 := filepath.Join(t.TempDir(), "a.json")
	path2 := filepath.Join(t.TempDir(), "b.json")

	st := Default()
	st.ManagedServices = []string{"Wi-Fi", "Ethernet", "Wi-Fi"}
	st.Allowlist = []string{"b.example", "a.example"}

	require.NoError(t, Save(path1, st))
	require.NoError(t, Save(path2, st))

	d1, err := os.ReadFile(path1)
	require.NoError(t, err)
	d2, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, string(d1), string(d2))
}

func TestLockSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	l1, err := Acquire(path, time.Second)
	require.NoError(t, err)

	_, err = Acquire(path, 200*time.Millisecond)
	require.Error(t, err)

	l1.Release()

	l2, err := Acquire(path, time.Second)
	require.NoError(t, err)
	l2.Release()
}
