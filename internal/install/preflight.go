package install

import (
	"fmt"
	"net"
	"os"
	"strings"

	"macblock/internal/cmderr"
	"macblock/internal/execx"
	"macblock/internal/paths"
)

// CheckPort verifies nothing else is listening on the resolver address. On
// conflict the blocking process is named in the error.
func CheckPort() error {
	addr := fmt.Sprintf("%s:%d", paths.DnsmasqListenAddr, paths.DnsmasqListenPort)
	l, err := net.Listen("tcp", addr)
	if err == nil {
		l.Close()
		return nil
	}

	blocker := portBlocker(paths.DnsmasqListenPort)
	if blocker == "" {
		blocker = "unknown process"
	}
	return cmderr.New(cmderr.Conflict,
		"port %d on %s is already in use by %s; stop it and retry",
		paths.DnsmasqListenPort, paths.DnsmasqListenAddr, blocker)
}

// portBlocker asks lsof who owns the port.
func portBlocker(port int) string {
	res, err := execx.Run(cmdTimeout, "/usr/sbin/lsof", "-i", fmt.Sprintf(":%d", port), "-P", "-n")
	if err != nil || !res.Ok() {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	if len(lines) < 2 {
		return ""
	}
	fields := strings.Fields(lines[1])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// FindDnsmasq locates the dnsmasq binary. The environment override is
// honored only when the process was not escalated (see EscalatedEnv).
func FindDnsmasq() (string, error) {
	candidates := []string{
		"/opt/homebrew/opt/dnsmasq/sbin/dnsmasq",
		"/usr/local/opt/dnsmasq/sbin/dnsmasq",
		"/opt/homebrew/sbin/dnsmasq",
		"/usr/local/sbin/dnsmasq",
	}
	if os.Getenv(paths.EscalatedEnv) == "" {
		if env := os.Getenv(paths.DnsmasqBinEnv); env != "" {
			candidates = append([]string{env}, candidates...)
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", cmderr.New(cmderr.Platform,
		"dnsmasq not found; install it with 'brew install dnsmasq' and re-run")
}

// FindSelf locates the macblock binary for the launchd manifest.
func FindSelf() (string, error) {
	if os.Getenv(paths.EscalatedEnv) == "" {
		if env := os.Getenv(paths.BinEnv); env != "" {
			if _, err := os.Stat(env); err == nil {
				return env, nil
			}
		}
	}
	exe, err := os.Executable()
	if err != nil {
		return "", cmderr.Wrap(cmderr.Platform, err, "locate macblock binary")
	}
	return exe, nil
}

// DetectExisting lists installed artifacts already on disk.
func DetectExisting() []string {
	var found []string
	for _, p := range []string{
		paths.SupportDir,
		paths.DnsmasqConf,
		paths.StateFile,
		paths.LaunchdDnsmasqPlist,
		paths.LaunchdDaemonPlist,
	} {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}
