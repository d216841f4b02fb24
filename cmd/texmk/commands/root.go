// Package commands implements the CLI commands for the texmk build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/texmk/internal/app"
	"go.trai.ch/texmk/internal/build"
)

// CLI represents the command line interface for texmk.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, sources []string, opts app.BuildOptions) error
	Watch(ctx context.Context, sources []string, opts app.BuildOptions) error
	Clean(ctx context.Context, sources []string, opts app.CleanOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "texmk",
		Short:         "An incremental build tool for LaTeX documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// buildOptions reads the flags shared by build and watch.
func buildOptions(cmd *cobra.Command) app.BuildOptions {
	dvi, _ := cmd.Flags().GetBool("dvi")
	texCommand, _ := cmd.Flags().GetString("tex-command")
	maxRuns, _ := cmd.Flags().GetInt("max-runs")
	status, _ := cmd.Flags().GetBool("status")
	checkCite, _ := cmd.Flags().GetBool("check-cite")

	return app.BuildOptions{
		DVI:        dvi,
		TexCommand: texCommand,
		MaxRuns:    maxRuns,
		Status:     status,
		CheckCite:  checkCite,
	}
}

// addBuildFlags registers the flags shared by build and watch.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dvi", false, "Produce DVI output instead of PDF")
	cmd.Flags().StringP("tex-command", "c", "", "Override the compiler binary")
	cmd.Flags().IntP("max-runs", "m", 0, "Override the compiler pass ceiling")
	cmd.Flags().BoolP("status", "s", false, "Write a machine-readable status file per document")
	cmd.Flags().Bool("check-cite", false, "Warn about bibliography entries that are never cited")
}
