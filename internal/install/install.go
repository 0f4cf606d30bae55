// Package install lays down and tears back out the privileged footprint:
// the dedicated user, directories, resolver config, launchd services and
// seed files.
package install

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"macblock/internal/atomicfs"
	"macblock/internal/blocklist"
	"macblock/internal/cmderr"
	"macblock/internal/config"
	"macblock/internal/daemon"
	"macblock/internal/dnsmasq"
	"macblock/internal/launchd"
	"macblock/internal/paths"
	"macblock/internal/state"
	"macblock/internal/upstreams"
)

// Options controls Install.
type Options struct {
	Force      bool
	SkipUpdate bool
}

// Install performs the full sequence from SPEC preflight through the first
// reconcile kick. Must run as root.
func Install(cfg *config.Config, opts Options) error {
	if existing := DetectExisting(); len(existing) > 0 && !opts.Force {
		return cmderr.New(cmderr.Conflict,
			"existing installation detected (%s); run 'sudo macblock uninstall' first or pass --force",
			existing[0])
	} else if len(existing) > 0 {
		logrus.Warn("existing installation detected, reinstalling over it")
		teardownServices(true)
	}

	if err := CheckPort(); err != nil {
		return err
	}
	dnsmasqBin, err := FindDnsmasq()
	if err != nil {
		return err
	}
	binPath, err := FindSelf()
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"dnsmasq": dnsmasqBin, "macblock": binPath}).Info("preflight passed")

	if err := EnsureUser(paths.DnsmasqUser); err != nil {
		return err
	}

	for _, dir := range []string{paths.SupportDir, paths.ConfigDir, paths.LogDir, paths.RunDir} {
		if err := atomicfs.EnsureDir(dir, 0o755); err != nil {
			return cmderr.Wrap(cmderr.Transient, err, "create %s", dir)
		}
	}

	if err := seedFiles(cfg); err != nil {
		return err
	}

	if err := atomicfs.WriteString(paths.LaunchdDnsmasqPlist, RenderDnsmasqPlist(dnsmasqBin), 0o644); err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "write %s", paths.LaunchdDnsmasqPlist)
	}
	if err := atomicfs.WriteString(paths.LaunchdDaemonPlist, RenderDaemonPlist(binPath), 0o644); err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "write %s", paths.LaunchdDaemonPlist)
	}

	for _, svc := range []struct{ plist, label string }{
		{paths.LaunchdDnsmasqPlist, paths.DnsmasqLabel},
		{paths.LaunchdDaemonPlist, paths.DaemonLabel},
	} {
		if err := launchd.Bootstrap(svc.plist); err != nil {
			return cmderr.Wrap(cmderr.Transient, err, "bootstrap %s", svc.label)
		}
		if err := launchd.Enable(svc.label); err != nil {
			return cmderr.Wrap(cmderr.Transient, err, "enable %s", svc.label)
		}
		if err := launchd.Kickstart(svc.label); err != nil {
			return cmderr.Wrap(cmderr.Transient, err, "start %s", svc.label)
		}
	}

	if err := waitRunning(); err != nil {
		return err
	}

	if err := daemon.Kick(); err != nil {
		logrus.WithError(err).Warn("could not kick initial reconcile")
	}
	return nil
}

// seedFiles writes first-run content for files that do not exist yet.
func seedFiles(cfg *config.Config) error {
	seeds := []struct {
		path, content string
	}{
		{paths.WhitelistFile, ""},
		{paths.BlacklistFile, ""},
		{paths.RawBlocklist, ""},
		{paths.Blocklist, ""},
		{paths.ExcludeServicesFile, "# One network service name per line (exact match)\n"},
		{paths.FallbackUpstreams, fmt.Sprintf("%s\n%s\n", upstreams.DefaultFallbacks[0], upstreams.DefaultFallbacks[1])},
		{paths.UpstreamConf, fmt.Sprintf("server=%s\nserver=%s\n", upstreams.DefaultFallbacks[0], upstreams.DefaultFallbacks[1])},
	}
	for _, s := range seeds {
		if _, err := os.Stat(s.path); err == nil {
			continue
		}
		if err := atomicfs.WriteString(s.path, s.content, 0o644); err != nil {
			return cmderr.Wrap(cmderr.Transient, err, "seed %s", s.path)
		}
	}

	// The static resolver config is always rewritten: the cache size may
	// have changed.
	if err := atomicfs.WriteString(paths.DnsmasqConf, dnsmasq.RenderConf(cfg.Dnsmasq.CacheSize), 0o644); err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "write %s", paths.DnsmasqConf)
	}

	if _, err := os.Stat(paths.StateFile); os.IsNotExist(err) {
		st := state.Default()
		st.Source = blocklist.DefaultSource
		if err := state.Save(paths.StateFile, st); err != nil {
			return err
		}
	}
	return nil
}

// waitRunning blocks until dnsmasq answers on its socket and the daemon pid
// marker appears, or fails with diagnostics.
func waitRunning() error {
	addr := fmt.Sprintf("%s:%d", paths.DnsmasqListenAddr, paths.DnsmasqListenPort)

	err := retry.Do(
		func() error {
			conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
			if err != nil {
				return err
			}
			conn.Close()
			return nil
		},
		retry.Attempts(25),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return cmderr.New(cmderr.Transient,
			"dnsmasq did not start listening on %s; check %s/dnsmasq.err.log", addr, paths.LogDir)
	}

	err = retry.Do(
		func() error {
			pid := dnsmasq.ReadPIDFile(paths.DaemonPIDFile)
			if pid == 0 || !dnsmasq.ProcessRunning(pid) {
				return fmt.Errorf("daemon pid marker missing")
			}
			return nil
		},
		retry.Attempts(25),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return cmderr.New(cmderr.Transient,
			"daemon did not come up; check %s/daemon.err.log", paths.LogDir)
	}
	return nil
}
