package cmd

import (
	"github.com/spf13/cobra"

	"macblock/internal/cmderr"
	"macblock/internal/config"
	"macblock/internal/daemon"
	"macblock/internal/logging"
	"macblock/internal/paths"
)

// NewDaemonCmd creates the hidden daemon entry point used by launchd.
func NewDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "daemon",
		Short:  "Run the reconcile daemon (launchd entry point)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.ConfigFile)
			if err != nil {
				return cmderr.Wrap(cmderr.User, err, "load config")
			}
			logging.SetupDaemon(cfg.Daemon.LogLevel)
			return daemon.Run(cfg)
		},
	}
}
