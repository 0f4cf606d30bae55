package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"macblock/internal/atomicfs"
	"macblock/internal/blocklist"
	"macblock/internal/cmderr"
	"macblock/internal/config"
	"macblock/internal/dnsmasq"
	"macblock/internal/lists"
	"macblock/internal/paths"
	"macblock/internal/state"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	var source string
	var sha256Pin string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the blocklist source and apply a fresh compile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}
			cfg, err := config.Load(paths.ConfigFile)
			if err != nil {
				return cmderr.Wrap(cmderr.User, err, "load config")
			}
			return runUpdate(cfg, source, sha256Pin)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source name, https:// URL or s3:// URI (defaults to the configured source)")
	cmd.Flags().StringVar(&sha256Pin, "sha256", "", "expected SHA-256 of the downloaded source")
	return cmd
}

// runUpdate executes the compile pipeline: download, verify, parse, floor
// check, allow/deny adjustment, atomic emit, state persist, reload. The
// success message is printed only when the resolver accepted the new set.
func runUpdate(cfg *config.Config, selector, sha256Pin string) error {
	lock, err := state.Acquire(paths.LockFile, lockTimeout)
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "lock state")
	}
	defer lock.Release()

	st, err := state.Load(paths.StateFile)
	if err != nil {
		return err
	}

	if selector == "" {
		selector = st.Source
	}
	if selector == "" {
		selector = blocklist.DefaultSource
	}
	src, err := blocklist.Resolve(selector)
	if err != nil {
		return err
	}

	fmt.Printf("downloading %s...\n", src.Name)
	text, err := blocklist.Fetch(src, sha256Pin, cfg.Update.Timeout.Std())
	if err != nil {
		return err
	}

	parsed := blocklist.ParseHosts(text)

	allow, warnings, err := lists.Read(paths.WhitelistFile)
	printListWarnings(warnings)
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "read allowlist")
	}
	deny, warnings, err := lists.Read(paths.BlacklistFile)
	printListWarnings(warnings)
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "read denylist")
	}

	res, err := blocklist.Compile(parsed, allow, deny,
		cfg.FloorFor(src.Custom), paths.RawBlocklist, paths.Blocklist)
	if err != nil {
		return err
	}

	// Cache the accepted source for offline recompiles; best-effort.
	if err := atomicfs.WriteString(paths.SourceCache, text, 0o644); err != nil {
		logrus.WithError(err).Warn("could not cache source for recompiles")
	}

	// Compiled files and state move together: last_update_at is persisted
	// before the resolver is told about the new set.
	now := time.Now().Unix()
	st.Source = selector
	st.LastUpdateAt = &now
	if err := state.Save(paths.StateFile, st); err != nil {
		return err
	}

	if err := dnsmasq.Reload(); err != nil {
		return cmderr.Wrap(cmderr.Transient, err,
			"blocklist compiled (%d domains) but the resolver reload failed; the daemon will retry", res.FinalCount)
	}

	fmt.Printf("blocklist updated: %d domains active\n", res.FinalCount)
	return nil
}

// recompile rebuilds the blocklist files from the cached source after an
// allow/deny change. No floor applies: the source was already accepted.
func recompile() error {
	data, err := os.ReadFile(paths.SourceCache)
	if os.IsNotExist(err) {
		// Nothing compiled yet; the next update picks the lists up.
		logrus.Debug("no cached source, skipping recompile")
		return nil
	}
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "read cached source")
	}

	parsed := blocklist.ParseHosts(string(data))

	allow, warnings, err := lists.Read(paths.WhitelistFile)
	printListWarnings(warnings)
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "read allowlist")
	}
	deny, warnings, err := lists.Read(paths.BlacklistFile)
	printListWarnings(warnings)
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "read denylist")
	}

	res, err := blocklist.Compile(parsed, allow, deny, 0, paths.RawBlocklist, paths.Blocklist)
	if err != nil {
		return err
	}

	if err := dnsmasq.Reload(); err != nil {
		return cmderr.Wrap(cmderr.Transient, err,
			"recompiled %d domains but the resolver reload failed; the daemon will retry", res.FinalCount)
	}
	fmt.Printf("blocklist recompiled: %d domains active\n", res.FinalCount)
	return nil
}
