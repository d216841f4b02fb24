package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [sources...]",
		Short: "Rebuild documents whenever their inputs change",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := buildOptions(cmd)
			debounce, _ := cmd.Flags().GetDuration("debounce")
			opts.Debounce = debounce
			return c.app.Watch(cmd.Context(), args, opts)
		},
	}
	addBuildFlags(cmd)
	cmd.Flags().DurationP("debounce", "d", 0, "Override the change coalescing window")
	return cmd
}
