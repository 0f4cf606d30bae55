package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"macblock/cmd"
	"macblock/internal/cmderr"
	"macblock/internal/logging"
)

var version = "1.0.0"

func main() {
	logging.SetupCLI()

	rootCmd := &cobra.Command{
		Use:   "macblock",
		Short: "Local DNS sinkhole for macOS",
		Long: `macblock runs a loopback dnsmasq resolver that answers NXDOMAIN for
blocklisted domains and forwards everything else upstream, while a
reconcile daemon keeps every managed network service pointed at it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if c.Name() == "version" || c.Name() == "help" {
				return nil
			}
			return cmd.RequireMacOS()
		},
	}

	rootCmd.AddCommand(
		cmd.NewInstallCmd(),
		cmd.NewUninstallCmd(),
		cmd.NewEnableCmd(),
		cmd.NewDisableCmd(),
		cmd.NewPauseCmd(),
		cmd.NewResumeCmd(),
		cmd.NewUpdateCmd(),
		cmd.NewSourcesCmd(),
		cmd.NewAllowCmd(),
		cmd.NewDenyCmd(),
		cmd.NewUpstreamsCmd(),
		cmd.NewStatusCmd(),
		cmd.NewDoctorCmd(),
		cmd.NewLogsCmd(),
		cmd.NewTestCmd(),
		cmd.NewDaemonCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cmderr.ExitCode(err))
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("macblock %s\n", version)
		},
	}
}
