package daemon

import (
	"context"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"macblock/internal/execx"
)

// watchNetworkChanges blocks on the Darwin notification bus and posts to
// events each time the network configuration changes. notifyutil exits when
// the watched key fires, so the child is restarted after every event.
func watchNetworkChanges(ctx context.Context, events chan<- struct{}) {
	const key = "com.apple.system.config.network_change"

	for ctx.Err() == nil {
		cmd := exec.CommandContext(ctx, "/usr/bin/notifyutil", "-1", key)
		err := cmd.Run()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logrus.WithError(err).Warn("network-change watcher failed; backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		select {
		case events <- struct{}{}:
		default:
			// A reconcile is already pending; coalesce.
		}
	}
}

// defaultRouteInterface returns the default-route interface, or "" when the
// host has no default route on either family.
func defaultRouteInterface() string {
	for _, family := range []string{"-inet", "-inet6"} {
		res, err := execx.Run(5*time.Second, "/sbin/route", "-n", "get", family, "default")
		if err != nil || !res.Ok() {
			continue
		}
		if iface := parseRouteInterface(res.Stdout); iface != "" {
			return iface
		}
	}
	return ""
}

// waitForNetwork polls for a default route for at most wait. It returns
// true as soon as one appears.
func waitForNetwork(ctx context.Context, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for {
		if defaultRouteInterface() != "" {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
}
