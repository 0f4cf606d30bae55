package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"macblock/internal/blocklist"
	"macblock/internal/paths"
	"macblock/internal/state"
)

// NewSourcesCmd creates the sources command group.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage blocklist sources",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the built-in source catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := state.Load(paths.StateFile)
			if err != nil {
				return err
			}
			selected := st.Source
			if selected == "" {
				selected = blocklist.DefaultSource
			}
			for _, key := range blocklist.CatalogKeys {
				marker := " "
				if key == selected {
					marker = "*"
				}
				src := blocklist.Catalog[key]
				fmt.Printf("%s %-22s %s\n", marker, key, src.Name)
			}
			if _, ok := blocklist.Catalog[selected]; !ok {
				fmt.Printf("* %s (custom)\n", selected)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Select the source used by the next update",
		Long: `Select the blocklist source. The selection only takes effect on the next
'macblock update'; no download happens here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := blocklist.Resolve(args[0]); err != nil {
				return err
			}
			if err := requireInstalled(); err != nil {
				return err
			}
			if err := requireRoot(); err != nil {
				return err
			}
			err := mutateState(func(st *state.State) error {
				st.Source = args[0]
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("source set to %s; run 'sudo macblock update' to apply\n", args[0])
			return nil
		},
	})

	return cmd
}
