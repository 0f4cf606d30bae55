package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"macblock/internal/cmderr"
	"macblock/internal/dnsname"
	"macblock/internal/dnstest"
)

// NewTestCmd creates the test command: one query against the loopback
// resolver with an interpreted verdict.
func NewTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <domain>",
		Short: "Query the loopback resolver and report blocked/allowed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := dnsname.Normalize(args[0])
			if err != nil {
				return cmderr.Wrap(cmderr.User, err, "bad domain")
			}

			res, err := dnstest.Query(domain)
			if err != nil {
				return cmderr.Wrap(cmderr.Transient, err,
					"query failed; is dnsmasq running? (try 'macblock doctor')")
			}
			fmt.Printf("%s: [%s] %s\n", domain, res.Verdict, res.Explanation)
			return nil
		},
	}
}
