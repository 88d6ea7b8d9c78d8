// Package cli implements the shaded command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaded"
	"github.com/gogpu/shaded/shader"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string
	Backend string

	// compiler replaces the naga compiler when set.
	compiler shader.Compiler
}

// NewRootCommand creates the root command for the shaded CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shaded",
		Short: "Render shader pass pipelines",
		Long: `shaded renders a pipeline of shader passes described by a project
manifest (shaded.yaml) and keeps the compiled shader stages in step with it.

Settings are read from shaded.toml in the project directory unless --config
names another file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Verbose {
				shaded.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine activity to stderr")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "settings file (default <project>/shaded.toml)")
	cmd.PersistentFlags().StringVarP(&opts.Backend, "backend", "b", "", "device backend, overrides the settings file")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewBackendsCommand(opts))

	return cmd
}
