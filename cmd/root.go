// Package cmd implements the command-line interface: the control plane that
// mutates desired state and kicks the daemon, the privileged install and
// uninstall flows, and the read-only diagnostics.
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"macblock/internal/cmderr"
	"macblock/internal/daemon"
	"macblock/internal/dnsmasq"
	"macblock/internal/launchd"
	"macblock/internal/lists"
	"macblock/internal/paths"
	"macblock/internal/state"
	"macblock/internal/sysdns"
)

const lockTimeout = 10 * time.Second

// RequireMacOS fails early on any other platform.
func RequireMacOS() error {
	if runtime.GOOS != "darwin" {
		return cmderr.New(cmderr.Platform, "macblock only supports macOS")
	}
	return nil
}

// escalate re-execs the current command under sudo with a scrubbed
// environment: only TERM, LANG and LC_* survive, plus the marker that
// prevents recursion and disables the *_BIN overrides.
func escalate() error {
	if os.Getenv(paths.EscalatedEnv) != "" {
		return cmderr.New(cmderr.Privilege, "root required but sudo did not grant it")
	}

	exe, err := os.Executable()
	if err != nil {
		return cmderr.Wrap(cmderr.Privilege, err, "locate own binary for sudo re-exec")
	}

	argv := append([]string{"sudo", paths.EscalatedEnv + "=1", exe}, os.Args[1:]...)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	env := []string{"PATH=/usr/bin:/bin:/usr/sbin:/sbin"}
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if key == "TERM" || key == "LANG" || strings.HasPrefix(key, "LC_") {
			env = append(env, kv)
		}
	}
	cmd.Env = env

	err = cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		return cmderr.Wrap(cmderr.Privilege, err, "re-exec under sudo")
	}
	os.Exit(0)
	return nil
}

// requireRoot escalates when necessary and returns only with euid 0.
func requireRoot() error {
	if os.Geteuid() == 0 {
		return nil
	}
	return escalate()
}

// requireInstalled refuses control-plane commands on hosts without the
// launchd footprint.
func requireInstalled() error {
	if _, err := os.Stat(paths.LaunchdDaemonPlist); err != nil {
		return cmderr.New(cmderr.User, "macblock is not installed; run: sudo macblock install")
	}
	if _, err := os.Stat(paths.LaunchdDnsmasqPlist); err != nil {
		return cmderr.New(cmderr.User, "macblock is not installed; run: sudo macblock install")
	}
	return nil
}

// mutateState applies fn to the state record under the control-plane lock
// and persists it. State is written before the daemon is signalled.
func mutateState(fn func(st *state.State) error) error {
	lock, err := state.Acquire(paths.LockFile, lockTimeout)
	if err != nil {
		return cmderr.Wrap(cmderr.Transient, err, "lock state")
	}
	defer lock.Release()

	st, err := state.Load(paths.StateFile)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return state.Save(paths.StateFile, st)
}

// triggerDaemon kicks a reconcile, restarting the daemon if needed.
func triggerDaemon() {
	if err := daemon.Kick(); err == nil {
		return
	}
	logrus.Debug("daemon not signalable, kickstarting")
	if err := launchd.Kickstart(paths.DaemonLabel); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not signal daemon; changes apply on its next tick")
		return
	}
	time.Sleep(500 * time.Millisecond)
	daemon.Kick()
}

// waitForDNS polls the managed services until predicate holds everywhere or
// the timeout passes, returning the failing services.
func waitForDNS(predicate func(state.Backup) bool) []string {
	services, err := sysdns.ListServices()
	if err != nil {
		return nil
	}
	managed := sysdns.Managed(services, sysdns.LoadExcludeFile(paths.ExcludeServicesFile))
	if len(managed) == 0 {
		return nil
	}

	var failing []string
	retry.Do(
		func() error {
			failing = failing[:0]
			for _, svc := range managed {
				cur, err := sysdns.GetDNS(svc.Name)
				if err != nil || !predicate(cur) {
					failing = append(failing, svc.Name)
				}
			}
			if len(failing) > 0 {
				return fmt.Errorf("%d services pending", len(failing))
			}
			return nil
		},
		retry.Attempts(20),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return failing
}

func waitForIntercepted() []string {
	return waitForDNS(sysdns.Intercepted)
}

func waitForRestored() []string {
	return waitForDNS(func(b state.Backup) bool { return !sysdns.Intercepted(b) })
}

// waitDaemonReady waits for the ready marker plus a live pid.
func waitDaemonReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(paths.DaemonReadyFile); err == nil {
			if pid := dnsmasq.ReadPIDFile(paths.DaemonPIDFile); pid != 0 && dnsmasq.ProcessRunning(pid) {
				return true
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}

// printListWarnings surfaces skipped allow/deny lines on stderr.
func printListWarnings(warnings []lists.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
