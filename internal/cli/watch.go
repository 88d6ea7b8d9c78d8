package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaded"
	"github.com/gogpu/shaded/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Width    int
	Height   int
	Interval time.Duration
	Duration time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [project-dir]",
		Short: "Render continuously and recompile shaders on save",
		Long: `Render a project continuously. When a shader file referenced by the
manifest is saved, the passes using it are recompiled in place and their
diagnostics are printed. Runs until interrupted or until --duration passes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if opts.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Duration)
				defer cancel()
			}
			return runWatch(ctx, opts, cmd, projectDir(args))
		},
	}

	cmd.Flags().IntVar(&opts.Width, "width", 0, "frame width (default from settings)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "frame height (default from settings)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 33*time.Millisecond, "time between frames")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, cmd *cobra.Command, dir string) error {
	if opts.Interval <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid interval %s", opts.Interval))
	}
	sess, err := openSession(opts.RootOptions, dir)
	if err != nil {
		return err
	}
	eng, err := sess.open(opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()

	w, err := watch.New(time.Duration(sess.cfg.Watch.Debounce))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer w.Close()

	paths := sess.manifest.ShaderPaths()
	rels := make([]string, 0, len(paths))
	for rel := range paths {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		if err := w.Add(sess.loader.ProjectPath(rel), paths[rel]...); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch "+rel, err)
		}
	}

	out := cmd.OutOrStdout()
	width, height := sess.size(opts.Width, opts.Height)
	fmt.Fprintf(out, "watching %d shader file(s) in %s\n", len(rels), sess.loader.Dir())

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		for _, name := range watch.Drain(w.Events()) {
			recompile(out, eng, name)
		}
		if err := eng.Render(width, height); err != nil {
			return WrapExitError(ExitFailure, "frame failed", err)
		}
		select {
		case <-ctx.Done():
			fmt.Fprintf(out, "stopped after %d frame(s)\n", eng.Frames())
			return nil
		case <-ticker.C:
		}
	}
}

func recompile(out io.Writer, eng *shaded.Engine, name string) {
	if !eng.Recompile(name) {
		return
	}
	msgs := eng.Diagnostics().Group(name)
	if len(msgs) == 0 {
		fmt.Fprintf(out, "recompiled %s\n", name)
		return
	}
	writeDiagnostics(out, msgs)
}
