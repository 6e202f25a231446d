// Package cli implements the clash-merge command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	// Running the bare binary behaves like the merge subcommand.
	var opts mergeOptions
	cmd := &cobra.Command{
		Use:           "clash-merge",
		Short:         "Merge multiple subscription snippets into one mihomo config",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          opts.run,
	}
	opts.register(cmd)
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
