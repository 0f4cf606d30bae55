package install

import (
	"os"

	"github.com/sirupsen/logrus"

	"macblock/internal/cmderr"
	"macblock/internal/launchd"
	"macblock/internal/paths"
	"macblock/internal/state"
	"macblock/internal/sysdns"
)

// UninstallResult summarizes what could not be removed.
type UninstallResult struct {
	FailedServices []string
	Leftovers      []string
}

// Uninstall restores DNS and removes the installed footprint. Without force
// the first removal error aborts; with force every error is collected and
// reported as a leftover. Must run as root.
func Uninstall(force bool) (UninstallResult, error) {
	var res UninstallResult

	st, err := state.Load(paths.StateFile)
	if err != nil {
		// A corrupt state file must not strand DNS overrides, but there
		// is nothing to restore from; warn and continue.
		logrus.WithError(err).Warn("state unreadable, skipping DNS restore")
		st = state.Default()
	}

	services, _ := sysdns.ListServices()
	present := map[string]bool{}
	for _, svc := range services {
		present[svc.Name] = true
	}
	for name, b := range st.DNSBackup {
		if !present[name] {
			logrus.WithField("service", name).Warn("service absent, cannot restore its DNS")
			continue
		}
		if !sysdns.Restore(name, b) {
			res.FailedServices = append(res.FailedServices, name)
		}
	}

	if err := teardownServices(force); err != nil && !force {
		return res, err
	}

	files := []string{
		paths.LaunchdDnsmasqPlist,
		paths.LaunchdDaemonPlist,
		paths.DnsmasqPIDFile,
		paths.DnsmasqLogFile,
		paths.UpstreamConf,
		paths.RawBlocklist,
		paths.Blocklist,
		paths.SourceCache,
		paths.DaemonPIDFile,
		paths.DaemonReadyFile,
		paths.LastApplyFile,
		paths.DnsmasqConf,
		paths.ConfigFile,
		paths.WhitelistFile,
		paths.BlacklistFile,
		paths.ExcludeServicesFile,
		paths.FallbackUpstreams,
		paths.StateFile,
		paths.LockFile,
	}
	for _, p := range files {
		err := os.Remove(p)
		if err == nil || os.IsNotExist(err) {
			continue
		}
		if !force {
			return res, cmderr.Wrap(cmderr.Transient, err, "remove %s", p)
		}
		logrus.WithError(err).WithField("path", p).Warn("could not remove")
		res.Leftovers = append(res.Leftovers, p)
	}

	for _, dir := range []string{paths.RunDir, paths.ConfigDir, paths.LogDir, paths.SupportDir} {
		if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
			// Non-empty log dirs are expected; directories that stay
			// are logged only and not reported as leftovers.
			logrus.WithField("dir", dir).Debug("directory not removed")
		}
	}

	if force {
		DeleteUser(paths.DnsmasqUser)
	}

	for _, label := range []string{paths.DnsmasqLabel, paths.DaemonLabel} {
		if launchd.Exists(label) {
			res.Leftovers = append(res.Leftovers, "launchd service "+label)
		}
	}
	return res, nil
}

// teardownServices boots both services out of launchd.
func teardownServices(force bool) error {
	var firstErr error
	for _, plist := range []string{paths.LaunchdDaemonPlist, paths.LaunchdDnsmasqPlist} {
		if _, err := os.Stat(plist); os.IsNotExist(err) {
			continue
		}
		if err := launchd.Bootout(plist); err != nil {
			logrus.WithError(err).WithField("plist", plist).Warn("bootout failed")
			if firstErr == nil {
				firstErr = cmderr.Wrap(cmderr.Transient, err, "unload %s", plist)
			}
			if !force {
				return firstErr
			}
		}
	}
	return firstErr
}
