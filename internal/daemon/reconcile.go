package daemon

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"macblock/internal/cmderr"
	"macblock/internal/dnsmasq"
	"macblock/internal/paths"
	"macblock/internal/resolvers"
	"macblock/internal/state"
	"macblock/internal/sysdns"
	"macblock/internal/upstreams"
)

// Controller abstracts the per-service DNS operations so the apply step can
// be exercised without networksetup.
type Controller interface {
	Get(service string) (state.Backup, error)
	SetLoopback(service string) bool
	Restore(service string, b state.Backup) bool
}

type systemController struct{}

func (systemController) Get(service string) (state.Backup, error) {
	return sysdns.GetDNS(service)
}

func (systemController) SetLoopback(service string) bool {
	return sysdns.SetDNS(service, sysdns.LoopbackDNS)
}

func (systemController) Restore(service string, b state.Backup) bool {
	return sysdns.Restore(service, b)
}

// applyDNS drives per-service DNS toward the effective mode. It mutates
// st.DNSBackup and st.ManagedServices and returns the services that failed.
//
// Ordering rules: a backup is captured before the first override of a
// service, and cleared only after its restore succeeded. Backups for
// services absent from the host are kept until the service reappears.
func applyDNS(st *state.State, on bool, managed []sysdns.Service, present map[string]bool, ctl Controller) []string {
	var failures []string

	if on {
		var managedNames []string
		for _, svc := range managed {
			managedNames = append(managedNames, svc.Name)

			if _, has := st.DNSBackup[svc.Name]; !has {
				cur, err := ctl.Get(svc.Name)
				if err != nil {
					logrus.WithError(err).WithField("service", svc.Name).Error("cannot read DNS, skipping override")
					failures = append(failures, svc.Name)
					continue
				}
				if sysdns.Intercepted(cur) {
					// Already pointing at us with no backup (crash
					// recovery); restore must land on DHCP defaults.
					st.DNSBackup[svc.Name] = state.Backup{Empty: true}
				} else {
					st.DNSBackup[svc.Name] = cur
				}
			}

			if !ctl.SetLoopback(svc.Name) {
				failures = append(failures, svc.Name)
			}
		}

		// Services that left the managed set while still on the host get
		// their DNS back.
		for _, name := range st.ManagedServices {
			if containsName(managedNames, name) {
				continue
			}
			failures = append(failures, restoreService(st, name, present, ctl)...)
		}
		st.ManagedServices = managedNames
		return failures
	}

	names := make([]string, 0, len(st.DNSBackup))
	for name := range st.DNSBackup {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		failures = append(failures, restoreService(st, name, present, ctl)...)
	}
	st.ManagedServices = nil
	return failures
}

// restoreService restores one service from its backup and forgets the
// backup on success. Vanished services keep their backup for later.
func restoreService(st *state.State, name string, present map[string]bool, ctl Controller) []string {
	b, has := st.DNSBackup[name]
	if !has {
		return nil
	}
	if !present[name] {
		logrus.WithField("service", name).Debug("service absent, keeping backup")
		return nil
	}
	if !ctl.Restore(name, b) {
		return []string{name}
	}
	delete(st.DNSBackup, name)
	return nil
}

func containsName(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// reconcile performs one pass: load state, converge per-service DNS, render
// upstreams, signal the resolver and stamp the last-apply marker. A corrupt
// state file is returned as-is so the caller exits for the supervisor.
func (d *Daemon) reconcile() error {
	st, err := state.Load(paths.StateFile)
	if err != nil {
		return err
	}

	now := time.Now()
	if st.PauseExpired(now) {
		st.PausedUntil = nil
		logrus.Info("pause expired, resuming blocking")
	}
	on := st.EffectiveOn(now)

	if on && defaultRouteInterface() == "" {
		if !waitForNetwork(d.ctx, d.cfg.Daemon.NetworkWait.Std()) {
			logrus.Warn("no default route yet; applying anyway")
		}
	}

	services, err := sysdns.ListServices()
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "list network services")
	}
	present := make(map[string]bool, len(services))
	for _, svc := range services {
		present[svc.Name] = true
	}
	exclude := sysdns.LoadExcludeFile(paths.ExcludeServicesFile)
	managed := sysdns.Managed(services, exclude)

	failures := applyDNS(st, on, managed, present, d.ctl)

	if err := state.Save(paths.StateFile, st); err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "persist state")
	}
	d.lastState = st

	table, err := resolvers.Read()
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "read resolver table")
	}
	fallbacks := upstreams.LoadFallbacks(paths.FallbackUpstreams)
	if err := upstreams.WriteConf(paths.UpstreamConf, table, fallbacks); err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "write upstream config")
	}

	if err := dnsmasq.Reload(); err != nil {
		logrus.WithError(err).Warn("resolver reload failed")
		failures = append(failures, "dnsmasq reload")
	} else if on {
		if domain := firstBlockedDomain(); domain != "" {
			if err := dnsmasq.Canary(domain); err != nil {
				logrus.WithError(err).Debug("canary probe failed")
			}
		}
	}

	if err := writeLastApplyMarker(time.Now()); err != nil {
		logrus.WithError(err).Warn("failed to write last-apply marker")
	}

	if len(failures) > 0 {
		return cmderr.PartialFailure("reconcile incomplete", failures)
	}
	return nil
}
