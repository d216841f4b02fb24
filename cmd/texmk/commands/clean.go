package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/texmk/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [sources...]",
		Short: "Remove generated control files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetBool("output")
			return c.app.Clean(cmd.Context(), args, app.CleanOptions{
				Output: output,
			})
		},
	}
	cmd.Flags().BoolP("output", "o", false, "Also remove the rendered document")
	return cmd
}
