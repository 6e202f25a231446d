package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geezhu/clash-subscription-merge/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clash-merge version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
			return nil
		},
	}
}
