package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"macblock/internal/cmderr"
	"macblock/internal/config"
	"macblock/internal/install"
	"macblock/internal/paths"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	opts := install.Options{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the resolver, daemon and system integration (root)",
		Long: `Install macblock: create the dedicated dnsmasq user, lay down the
configuration tree, register both launchd services and run the first
blocklist update.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoot(); err != nil {
				return err
			}
			cfg, err := config.Load(paths.ConfigFile)
			if err != nil {
				return cmderr.Wrap(cmderr.User, err, "load config")
			}

			if err := install.Install(cfg, opts); err != nil {
				return err
			}
			fmt.Println("installed")

			if opts.SkipUpdate {
				fmt.Println("blocklist update skipped; run 'sudo macblock update' when ready")
			} else {
				fmt.Println("downloading blocklist (this may take a moment)...")
				if err := runUpdate(cfg, "", ""); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(),
						"warning: blocklist download failed (%v); run 'sudo macblock update' manually\n", err)
				}
			}

			fmt.Println("next: 'macblock doctor' to verify, then 'sudo macblock enable'")
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "reinstall over an existing installation")
	cmd.Flags().BoolVar(&opts.SkipUpdate, "skip-update", false, "defer the first blocklist download")
	return cmd
}

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Restore DNS and remove all installed artifacts (root)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoot(); err != nil {
				return err
			}

			res, err := install.Uninstall(force)
			if err != nil {
				return err
			}

			for _, svc := range res.FailedServices {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: DNS not restored for %s\n", svc)
			}
			if len(res.Leftovers) > 0 {
				fmt.Println("uninstall incomplete, leftovers:")
				for _, l := range res.Leftovers {
					fmt.Printf("  %s\n", l)
				}
				return cmderr.PartialFailure("leftovers remain", res.Leftovers)
			}
			fmt.Println("uninstalled")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "continue past errors and remove the dedicated user")
	return cmd
}
