// Package launchd wraps the launchctl subcommands used to manage the two
// system services.
package launchd

import (
	"fmt"
	"strings"
	"time"

	"macblock/internal/execx"
)

const launchctl = "/bin/launchctl"

const cmdTimeout = 20 * time.Second

func run(args ...string) error {
	argv := append([]string{launchctl}, args...)
	res, err := execx.Run(cmdTimeout, argv...)
	if err != nil {
		return err
	}
	if !res.Ok() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		if msg == "" {
			msg = "launchctl failed"
		}
		return fmt.Errorf("launchctl %s: %s", strings.Join(args, " "), msg)
	}
	return nil
}

// Bootstrap loads a plist into the system domain.
func Bootstrap(plist string) error { return run("bootstrap", "system", plist) }

// Bootout unloads a plist from the system domain.
func Bootout(plist string) error { return run("bootout", "system", plist) }

// BootoutLabel unloads a service by label.
func BootoutLabel(label string) error { return run("bootout", "system/"+label) }

// Enable clears any disabled state for a label.
func Enable(label string) error { return run("enable", "system/"+label) }

// Kickstart (re)starts a service immediately.
func Kickstart(label string) error { return run("kickstart", "-k", "system/"+label) }

// Exists reports whether the label is known to launchd.
func Exists(label string) bool {
	res, err := execx.Run(cmdTimeout, launchctl, "print", "system/"+label)
	return err == nil && res.Ok()
}
