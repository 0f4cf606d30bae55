package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"macblock/internal/dnsmasq"
	"macblock/internal/execx"
	"macblock/internal/paths"
	"macblock/internal/resolvers"
	"macblock/internal/state"
)

// NewDoctorCmd creates the read-only diagnostics command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run installation diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := true

			fileChecks := []struct{ name, path string }{
				{"state", paths.StateFile},
				{"dnsmasq.conf", paths.DnsmasqConf},
				{"blocklist.raw", paths.RawBlocklist},
				{"blocklist.conf", paths.Blocklist},
				{"upstream.conf", paths.UpstreamConf},
				{"plist daemon", paths.LaunchdDaemonPlist},
				{"plist dnsmasq", paths.LaunchdDnsmasqPlist},
			}
			for _, c := range fileChecks {
				if _, err := os.Stat(c.path); err == nil {
					fmt.Printf("%-16s ok    %s\n", c.name, c.path)
				} else {
					ok = false
					fmt.Printf("%-16s MISSING %s\n", c.name, c.path)
				}
			}

			if _, err := state.Load(paths.StateFile); err != nil {
				ok = false
				fmt.Printf("%-16s BAD   %v\n", "state parse", err)
			} else {
				fmt.Printf("%-16s ok\n", "state parse")
			}

			if dnsmasq.Running() {
				fmt.Printf("%-16s ok\n", "dnsmasq")
			} else {
				ok = false
				fmt.Printf("%-16s NOT RUNNING\n", "dnsmasq")
			}

			pid := dnsmasq.ReadPIDFile(paths.DaemonPIDFile)
			if pid != 0 && dnsmasq.ProcessRunning(pid) {
				fmt.Printf("%-16s ok (pid %d)\n", "daemon", pid)
			} else {
				ok = false
				fmt.Printf("%-16s NOT RUNNING\n", "daemon")
			}

			table, err := resolvers.Read()
			if err == nil {
				fmt.Printf("%-16s %d default, %d scoped\n", "resolver table",
					len(table.Default), len(table.PerDomain))
			}

			warnVPNInterfaces()

			if !ok {
				return fmt.Errorf("diagnostics found problems")
			}
			fmt.Println("all checks passed")
			return nil
		},
	}
}

// warnVPNInterfaces flags tunnel interfaces whose services may need the
// exclusion file.
func warnVPNInterfaces() {
	res, err := execx.Run(5*time.Second, "/sbin/ifconfig", "-l")
	if err != nil || !res.Ok() {
		return
	}
	var tunnels []string
	for _, iface := range strings.Fields(res.Stdout) {
		if strings.HasPrefix(iface, "utun") || strings.HasPrefix(iface, "ppp") {
			tunnels = append(tunnels, iface)
		}
	}
	if len(tunnels) > 0 {
		fmt.Printf("note: tunnel interfaces present (%s); VPN services are excluded by default,\n"+
			"      add any misdetected service name to %s\n",
			strings.Join(tunnels, ", "), paths.ExcludeServicesFile)
	}
}
