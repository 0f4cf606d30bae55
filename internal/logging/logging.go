// Package logging configures logrus for the two process roles: the daemon
// logs structured lines to stderr (launchd redirects them), one-shot CLI
// commands keep logs quiet so their stdout stays scriptable.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"

	"macblock/internal/paths"
)

// SetupDaemon configures full structured logging for the reconcile loop.
func SetupDaemon(level string) {
	if env := os.Getenv("MACBLOCK_LOG_LEVEL"); env != "" {
		level = env
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetupCLI keeps one-shot commands at warn and above.
func SetupCLI() {
	level := logrus.WarnLevel
	if env := os.Getenv("MACBLOCK_LOG_LEVEL"); env != "" {
		if parsed, err := logrus.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}

// LogPath resolves the on-disk log file for a component and stream.
func LogPath(component string, stderr bool) string {
	stream := ".out.log"
	if stderr {
		stream = ".err.log"
	}
	switch component {
	case "dnsmasq":
		if !stderr {
			// dnsmasq writes its own log-facility file; the launchd
			// stdout file is usually empty.
			if info, err := os.Stat(paths.LogDir + "/dnsmasq.out.log"); err == nil && info.Size() > 0 {
				return paths.LogDir + "/dnsmasq.out.log"
			}
			return paths.DnsmasqLogFile
		}
		return paths.LogDir + "/dnsmasq" + stream
	default:
		return paths.LogDir + "/daemon" + stream
	}
}
