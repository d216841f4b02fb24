package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [sources...]",
		Short: "Compile documents until their cross-references settle",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Build(cmd.Context(), args, buildOptions(cmd))
		},
	}
	addBuildFlags(cmd)
	return cmd
}
