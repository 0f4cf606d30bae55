package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"macblock/internal/cmderr"
	"macblock/internal/lists"
	"macblock/internal/paths"
	"macblock/internal/state"
)

// NewAllowCmd creates the allow command group (the allowlist).
func NewAllowCmd() *cobra.Command {
	return newListCmd("allow", "never-block", paths.WhitelistFile, func(st *state.State, domains []string) {
		st.Allowlist = domains
	})
}

// NewDenyCmd creates the deny command group (the denylist).
func NewDenyCmd() *cobra.Command {
	return newListCmd("deny", "always-block", paths.BlacklistFile, func(st *state.State, domains []string) {
		st.Denylist = domains
	})
}

func newListCmd(name, adjective, file string, setField func(*state.State, []string)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Manage the %s list", adjective),
	}

	sync := func() error {
		domains, warnings, err := lists.Read(file)
		printListWarnings(warnings)
		if err != nil {
			return cmderr.Wrap(cmderr.Transient, err, "read %s", file)
		}
		if err := mutateState(func(st *state.State) error {
			setField(st, domains)
			return nil
		}); err != nil {
			return err
		}
		return recompile()
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <domain>",
		Short: fmt.Sprintf("Add a domain to the %s list and recompile", adjective),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}
			changed, warnings, err := lists.Add(file, args[0])
			printListWarnings(warnings)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Printf("%s already listed\n", args[0])
				return nil
			}
			return sync()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <domain>",
		Short: fmt.Sprintf("Remove a domain from the %s list and recompile", adjective),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}
			changed, warnings, err := lists.Remove(file, args[0])
			printListWarnings(warnings)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Printf("%s was not listed\n", args[0])
				return nil
			}
			return sync()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("Show the %s list", adjective),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, warnings, err := lists.Read(file)
			printListWarnings(warnings)
			if err != nil {
				return cmderr.Wrap(cmderr.Transient, err, "read %s", file)
			}
			for _, d := range domains {
				fmt.Println(d)
			}
			return nil
		},
	})

	return cmd
}
