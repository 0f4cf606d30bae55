// Package daemon implements the reconcile loop: a single-threaded event
// loop that converges the host's DNS configuration on the desired state and
// keeps the resolver's upstream rules in sync with the OS resolver table.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"macblock/internal/atomicfs"
	"macblock/internal/cmderr"
	"macblock/internal/config"
	"macblock/internal/dnsmasq"
	"macblock/internal/paths"
	"macblock/internal/state"
)

// Daemon is the reconcile loop. One instance runs per host, under launchd.
type Daemon struct {
	cfg *config.Config
	ctx context.Context
	ctl Controller

	lastState *state.State
	failures  int
}

// New builds a daemon against the real system controller.
func New(cfg *config.Config) *Daemon {
	return &Daemon{cfg: cfg, ctl: systemController{}}
}

// Run executes the event loop until a termination signal or a fatal error.
// Reconciles never overlap; triggers arriving mid-pass coalesce into one
// follow-up pass.
func Run(cfg *config.Config) error {
	d := New(cfg)

	if pid := dnsmasq.ReadPIDFile(paths.DaemonPIDFile); pid != 0 && pid != os.Getpid() && dnsmasq.ProcessRunning(pid) {
		return cmderr.New(cmderr.Conflict, "another daemon is already running (pid %d)", pid)
	}

	if err := atomicfs.EnsureDir(paths.RunDir, 0o755); err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "create %s", paths.RunDir)
	}
	atomicfs.CleanTemp(paths.RunDir)

	if err := writePIDMarker(); err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "write pid marker")
	}
	defer removeMarkers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.ctx = ctx

	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGTERM, syscall.SIGINT)
	kick := make(chan os.Signal, 1)
	signal.Notify(kick, syscall.SIGUSR1)
	defer signal.Stop(term)
	defer signal.Stop(kick)

	netEvents := make(chan struct{}, 1)
	go watchNetworkChanges(ctx, netEvents)

	ticker := time.NewTicker(cfg.Daemon.Tick.Std())
	defer ticker.Stop()

	logrus.WithField("pid", os.Getpid()).Info("daemon started")

	ready := false
	for {
		err := d.reconcile()
		switch {
		case err == nil:
			d.failures = 0
			if !ready {
				ready = true
				if err := writeReadyMarker(time.Now()); err != nil {
					logrus.WithError(err).Warn("failed to write ready marker")
				}
				logrus.Info("daemon ready")
			}
		default:
			if e, ok := cmderr.As(err); ok && e.Kind == cmderr.StateCorrupt {
				logrus.WithError(err).Error("state file corrupt, exiting")
				return err
			}
			d.failures++
			logrus.WithError(err).WithField("consecutive", d.failures).Error("reconcile failed")
			if d.failures >= cfg.Daemon.MaxFailures {
				return cmderr.New(cmderr.Transient,
					"%d consecutive reconcile failures, exiting for supervisor restart", d.failures)
			}
		}

		pauseTimer := time.NewTimer(d.nextWake())
		select {
		case <-term:
			pauseTimer.Stop()
			logrus.Info("daemon shutting down")
			return nil
		case <-kick:
			logrus.Debug("reconcile requested via SIGUSR1")
		case <-netEvents:
			logrus.Debug("network change detected")
		case <-ticker.C:
		case <-pauseTimer.C:
		}
		pauseTimer.Stop()
		drain(kick, netEvents)
	}
}

// nextWake bounds the wait: the periodic tick, shortened when a pause is
// due to expire sooner.
func (d *Daemon) nextWake() time.Duration {
	wake := d.cfg.Daemon.Tick.Std()
	if d.lastState != nil && d.lastState.Enabled && d.lastState.PausedUntil != nil {
		until := time.Until(time.Unix(*d.lastState.PausedUntil, 0))
		if until < 0 {
			until = 0
		}
		if until < wake {
			wake = until
		}
	}
	return wake
}

// drain coalesces any triggers that arrived during the pass just finished.
func drain(kick chan os.Signal, netEvents chan struct{}) {
	for {
		select {
		case <-kick:
		case <-netEvents:
		default:
			return
		}
	}
}

// firstBlockedDomain picks a canary from the compiled set.
func firstBlockedDomain() string {
	f, err := os.Open(paths.RawBlocklist)
	if err != nil {
		return ""
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// Kick signals a running daemon to reconcile immediately. Used by the
// control plane after every state mutation.
func Kick() error {
	pid := dnsmasq.ReadPIDFile(paths.DaemonPIDFile)
	if pid == 0 {
		return fmt.Errorf("daemon not running (no pid file at %s)", paths.DaemonPIDFile)
	}
	if err := syscall.Kill(pid, syscall.SIGUSR1); err != nil {
		return fmt.Errorf("signal daemon pid %d: %w", pid, err)
	}
	return nil
}
