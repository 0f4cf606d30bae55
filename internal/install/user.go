package install

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"macblock/internal/cmderr"
	"macblock/internal/execx"
)

const dscl = "/usr/bin/dscl"

const cmdTimeout = 20 * time.Second

// EnsureUser creates the dedicated unprivileged user and matching group if
// they do not exist. Idempotent.
func EnsureUser(name string) error {
	if userExists(name) {
		logrus.WithField("user", name).Debug("system user already present")
		return nil
	}

	uid, err := freeSystemID()
	if err != nil {
		return err
	}

	group := [][]string{
		{dscl, ".", "-create", "/Groups/" + name},
		{dscl, ".", "-create", "/Groups/" + name, "PrimaryGroupID", strconv.Itoa(uid)},
	}
	user := [][]string{
		{dscl, ".", "-create", "/Users/" + name},
		{dscl, ".", "-create", "/Users/" + name, "UserShell", "/usr/bin/false"},
		{dscl, ".", "-create", "/Users/" + name, "RealName", "macblock dnsmasq"},
		{dscl, ".", "-create", "/Users/" + name, "UniqueID", strconv.Itoa(uid)},
		{dscl, ".", "-create", "/Users/" + name, "PrimaryGroupID", strconv.Itoa(uid)},
		{dscl, ".", "-create", "/Users/" + name, "NFSHomeDirectory", "/var/empty"},
		{dscl, ".", "-create", "/Users/" + name, "IsHidden", "1"},
	}

	for _, argv := range append(group, user...) {
		res, err := execx.Run(cmdTimeout, argv...)
		if err != nil {
			return cmderr.Wrap(cmderr.Platform, err, "dscl")
		}
		if !res.Ok() {
			return cmderr.New(cmderr.Transient, "create user %s: %s", name, strings.TrimSpace(res.Stderr))
		}
	}
	logrus.WithFields(logrus.Fields{"user": name, "uid": uid}).Info("created system user")
	return nil
}

// DeleteUser removes the dedicated user and group, best-effort.
func DeleteUser(name string) {
	execx.Run(cmdTimeout, dscl, ".", "-delete", "/Users/"+name)
	execx.Run(cmdTimeout, dscl, ".", "-delete", "/Groups/"+name)
}

func userExists(name string) bool {
	res, err := execx.Run(cmdTimeout, dscl, ".", "-read", "/Users/"+name, "UniqueID")
	return err == nil && res.Ok()
}

// freeSystemID picks an unused id in the system daemon range.
func freeSystemID() (int, error) {
	res, err := execx.Run(cmdTimeout, dscl, ".", "-list", "/Users", "UniqueID")
	if err != nil {
		return 0, cmderr.Wrap(cmderr.Platform, err, "dscl")
	}
	used := map[int]bool{}
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if id, err := strconv.Atoi(fields[1]); err == nil {
			used[id] = true
		}
	}
	for id := 200; id < 400; id++ {
		if !used[id] {
			return id, nil
		}
	}
	return 0, cmderr.New(cmderr.Transient, "no free system uid in range 200-399")
}
