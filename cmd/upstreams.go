package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"macblock/internal/cmderr"
	"macblock/internal/paths"
	"macblock/internal/resolvers"
	"macblock/internal/sysdns"
	"macblock/internal/upstreams"
)

// NewUpstreamsCmd creates the upstreams command group managing the fallback
// upstream file.
func NewUpstreamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upstreams",
		Short: "Manage fallback DNS upstreams",
		Long: `Manage the fallback upstream servers dnsmasq forwards to when the OS
resolver table has no usable default entries.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the fallback upstreams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, ip := range upstreams.LoadFallbacks(paths.FallbackUpstreams) {
				fmt.Println(ip)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <ip> [ip...]",
		Short: "Replace the fallback upstreams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, ip := range args {
				if net.ParseIP(ip) == nil {
					return cmderr.New(cmderr.User, "invalid IP address %q", ip)
				}
				if !resolvers.IsForwardIP(ip) {
					return cmderr.New(cmderr.User, "%s cannot be an upstream (loopback/zero address)", ip)
				}
			}
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}
			if err := upstreams.SaveFallbacks(paths.FallbackUpstreams, args); err != nil {
				return cmderr.Wrap(cmderr.Transient, err, "write fallbacks")
			}
			triggerDaemon()
			fmt.Printf("fallback upstreams set: %v\n", args)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset fallbacks to DHCP-provided servers, or the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}

			ips := dhcpUpstreams()
			if len(ips) == 0 {
				ips = upstreams.DefaultFallbacks
			}
			if err := upstreams.SaveFallbacks(paths.FallbackUpstreams, ips); err != nil {
				return cmderr.Wrap(cmderr.Transient, err, "write fallbacks")
			}
			triggerDaemon()
			fmt.Printf("fallback upstreams reset: %v\n", ips)
			return nil
		},
	})

	return cmd
}

// dhcpUpstreams collects nameservers from the DHCP leases of the managed
// interfaces: the best known-good servers for this host.
func dhcpUpstreams() []string {
	services, err := sysdns.ListServices()
	if err != nil {
		return nil
	}
	managed := sysdns.Managed(services, sysdns.LoadExcludeFile(paths.ExcludeServicesFile))

	var ips []string
	seen := map[string]bool{}
	for _, svc := range managed {
		for _, ip := range sysdns.DHCPNameservers(svc.Device) {
			if !seen[ip] {
				seen[ip] = true
				ips = append(ips, ip)
			}
		}
	}
	return ips
}
