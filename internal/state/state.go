// Package state persists the desired-state record that drives the daemon.
// The file is the single source of truth for what should be true on the
// host. The control plane writes the user's settings; the daemon writes
// back DNS backups, the managed-service set and expired pauses.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"macblock/internal/atomicfs"
	"macblock/internal/cmderr"
)

// SchemaVersion is the current record version. Loads of newer versions warn
// and read recognized fields best-effort.
const SchemaVersion = 2

// Backup is a per-service DNS snapshot taken before the first override.
// Empty is the DHCP-default sentinel and is distinct from an empty list.
type Backup struct {
	Servers []string
	Empty   bool
}

func (b Backup) MarshalJSON() ([]byte, error) {
	if b.Empty {
		return json.Marshal("Empty")
	}
	if b.Servers == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(b.Servers)
}

func (b *Backup) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "Empty" {
			return fmt.Errorf("unexpected dns_backup value %q", s)
		}
		*b = Backup{Empty: true}
		return nil
	}
	var servers []string
	if err := json.Unmarshal(data, &servers); err != nil {
		return err
	}
	*b = Backup{Servers: servers}
	return nil
}

// State is the persisted desired-state record.
type State struct {
	SchemaVersion   int
	Enabled         bool
	PausedUntil     *int64 // epoch seconds; nil when not paused
	Source          string
	LastUpdateAt    *int64 // epoch seconds; nil before the first compile
	DNSBackup       map[string]Backup
	ManagedServices []string
	Allowlist       []string
	Denylist        []string

	// extra preserves unknown keys across schema versions.
	extra map[string]json.RawMessage
}

// Default returns the first-run record.
func Default() *State {
	return &State{
		SchemaVersion: SchemaVersion,
		DNSBackup:     map[string]Backup{},
	}
}

// EffectiveOn reports whether blocking should be active at now: enabled and
// not inside a pause window.
func (s *State) EffectiveOn(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.PausedUntil != nil && now.Unix() < *s.PausedUntil {
		return false
	}
	return true
}

// PauseExpired reports a pause window that has elapsed and should be cleared.
func (s *State) PauseExpired(now time.Time) bool {
	return s.PausedUntil != nil && now.Unix() >= *s.PausedUntil
}

var knownKeys = map[string]bool{
	"schema_version":   true,
	"enabled":          true,
	"paused_until":     true,
	"source":           true,
	"last_update_at":   true,
	"dns_backup":       true,
	"managed_services": true,
	"allowlist":        true,
	"denylist":         true,
}

func corrupt(path string, cause string) error {
	return cmderr.New(cmderr.StateCorrupt,
		"state file %s is corrupt (%s); repair or delete it and re-run", path, cause)
}

// Load reads the record at path. A missing file yields the default record;
// a malformed one yields a StateCorrupt error naming the repair.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, corrupt(path, err.Error())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, corrupt(path, "not a JSON object")
	}

	var version int
	if v, ok := raw["schema_version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return nil, corrupt(path, "schema_version is not an integer")
		}
	} else {
		return nil, corrupt(path, "schema_version missing")
	}
	if version > SchemaVersion {
		logrus.WithFields(logrus.Fields{
			"file":    path,
			"version": version,
			"known":   SchemaVersion,
		}).Warn("state schema is newer than this build; reading recognized fields only")
	}

	st := Default()
	st.SchemaVersion = version

	decode := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return corrupt(path, fmt.Sprintf("field %s is malformed", key))
		}
		return nil
	}

	if err := decode("enabled", &st.Enabled); err != nil {
		return nil, err
	}
	if err := decode("paused_until", &st.PausedUntil); err != nil {
		return nil, err
	}
	if err := decode("source", &st.Source); err != nil {
		return nil, err
	}
	if err := decode("last_update_at", &st.LastUpdateAt); err != nil {
		return nil, err
	}
	if err := decode("dns_backup", &st.DNSBackup); err != nil {
		return nil, err
	}
	if st.DNSBackup == nil {
		st.DNSBackup = map[string]Backup{}
	}
	if err := decode("managed_services", &st.ManagedServices); err != nil {
		return nil, err
	}
	if err := decode("allowlist", &st.Allowlist); err != nil {
		return nil, err
	}
	if err := decode("denylist", &st.Denylist); err != nil {
		return nil, err
	}

	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if st.extra == nil {
			st.extra = map[string]json.RawMessage{}
		}
		st.extra[k] = v
	}
	return st, nil
}

// Save serializes deterministically (sorted keys, sorted sets) and writes
// atomically with mode 0644. Unknown keys carried from Load are preserved.
func Save(path string, st *State) error {
	out := map[string]any{
		"schema_version":   st.SchemaVersion,
		"enabled":          st.Enabled,
		"paused_until":     st.PausedUntil,
		"source":           st.Source,
		"last_update_at":   st.LastUpdateAt,
		"dns_backup":       st.DNSBackup,
		"managed_services": sortedSet(st.ManagedServices),
		"allowlist":        sortedSet(st.Allowlist),
		"denylist":         sortedSet(st.Denylist),
	}
	for k, v := range st.extra {
		out[k] = v
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return atomicfs.WriteFile(path, append(data, '\n'), 0o644)
}

func sortedSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
