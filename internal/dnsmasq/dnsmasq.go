// Package dnsmasq owns the config-file contract with the resolver process
// and the SIGHUP reload path. dnsmasq itself is supervised by launchd; this
// code only renders its files and signals it.
package dnsmasq

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"macblock/internal/cmderr"
	"macblock/internal/paths"
)

// RenderConf produces the static dnsmasq.conf. The dynamic inputs reach
// dnsmasq through servers-file (upstreams) and conf-file (blocklist), both
// re-read on SIGHUP.
func RenderConf(cacheSize int) string {
	lines := []string{
		"keep-in-foreground",
		"listen-address=" + paths.DnsmasqListenAddr,
		fmt.Sprintf("port=%d", paths.DnsmasqListenPort),
		"user=" + paths.DnsmasqUser,
		"bind-interfaces",
		"no-resolv",
		"no-hosts",
		"domain-needed",
		"bogus-priv",
		fmt.Sprintf("cache-size=%d", cacheSize),
		"log-facility=" + paths.DnsmasqLogFile,
		"pid-file=" + paths.DnsmasqPIDFile,
		"servers-file=" + paths.UpstreamConf,
		"conf-file=" + paths.Blocklist,
	}
	return strings.Join(lines, "\n") + "\n"
}

// ReadPIDFile parses a single-integer pid file. Returns 0 when absent or
// unparseable.
func ReadPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 1 {
		return 0
	}
	return pid
}

// ProcessRunning probes pid with signal 0.
func ProcessRunning(pid int) bool {
	if pid <= 1 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but is not ours.
	return err == syscall.EPERM
}

// Reload sends SIGHUP to the resolver identified by its pid file. Failures
// are retryable: the daemon's periodic tick re-signals.
func Reload() error {
	pid := ReadPIDFile(paths.DnsmasqPIDFile)
	if pid == 0 {
		return cmderr.New(cmderr.Transient, "dnsmasq not running (no pid file at %s)", paths.DnsmasqPIDFile)
	}
	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		if err == syscall.ESRCH {
			logrus.WithField("pid", pid).Warn("stale dnsmasq pid file")
			return cmderr.New(cmderr.Transient, "dnsmasq pid %d is stale", pid)
		}
		return cmderr.Wrap(cmderr.Transient, err, "failed to signal dnsmasq pid %d", pid)
	}
	return nil
}

// Running reports whether the resolver process from the pid file is alive.
func Running() bool {
	return ProcessRunning(ReadPIDFile(paths.DnsmasqPIDFile))
}
