package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaded/backend/recorder"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Frames int
	Width  int
	Height int
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [project-dir]",
		Short: "Print the device commands of rendered frames",
		Long: `Render frames on the recorder backend and print every device command,
one per line. The --backend flag and the settings file backend are ignored.

Examples:
  shaded trace ./demo
  shaded trace ./demo --frames 2 --width 64 --height 64`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd, projectDir(args))
		},
	}

	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 1, "number of frames to record")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "frame width (default from settings)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "frame height (default from settings)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command, dir string) error {
	if opts.Frames < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid frame count %d", opts.Frames))
	}
	sess, err := openSession(opts.RootOptions, dir)
	if err != nil {
		return err
	}
	sess.backend = recorder.BackendName

	eng, err := sess.open(opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()
	rec := eng.Device().(*recorder.Recorder)

	w, h := sess.size(opts.Width, opts.Height)
	for i := 0; i < opts.Frames; i++ {
		if err := eng.Render(w, h); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("frame %d failed", i), err)
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), rec.Trace())
	return nil
}
