package cli

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Frames int
	Width  int
	Height int
	Output string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render [project-dir]",
		Short: "Render frames offscreen",
		Long: `Render a number of frames of a project offscreen and optionally write
the last frame to an image file. The format follows the extension of
--out: .png, .bmp, .tif or .tiff.

Examples:
  shaded render ./demo --frames 10
  shaded render ./demo --size 640x480 --out frame.png`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd, projectDir(args))
		},
	}

	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 1, "number of frames to render")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "frame width (default from settings)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "frame height (default from settings)")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the last frame to this image file")

	return cmd
}

func runRender(opts *RenderOptions, cmd *cobra.Command, dir string) error {
	if opts.Frames < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid frame count %d", opts.Frames))
	}
	if opts.Output != "" {
		if _, err := imageEncoder(opts.Output); err != nil {
			return WrapExitError(ExitCommandError, "invalid output", err)
		}
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

	w, h := sess.size(opts.Width, opts.Height)
	for i := 0; i < opts.Frames; i++ {
		if err := eng.Render(w, h); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("frame %d failed", i), err)
		}
	}

	out := cmd.OutOrStdout()
	s := eng.Stats()
	fmt.Fprintf(out, "rendered %d frame(s) at %dx%d on %s\n", opts.Frames, w, h, eng.Device().Name())
	fmt.Fprintf(out, "passes %d, compiles %d, failures %d\n", eng.Cache().Len(), s.Compiles, s.CompileFailures)

	if opts.Output != "" {
		img, err := eng.Capture()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to capture frame", err)
		}
		if err := writeImage(opts.Output, img); err != nil {
			return WrapExitError(ExitCommandError, "failed to write image", err)
		}
		fmt.Fprintf(out, "wrote %s\n", opts.Output)
	}
	if eng.Diagnostics().HasErrors() {
		writeDiagnostics(cmd.ErrOrStderr(), eng.Diagnostics().Messages())
		return NewExitError(ExitFailure, "shaders failed to compile")
	}
	return nil
}

type encodeFunc func(io.Writer, image.Image) error

// imageEncoder selects an encoder by file extension.
func imageEncoder(path string) (encodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported image format %q", filepath.Ext(path))
	}
}

func writeImage(path string, img image.Image) (err error) {
	encode, err := imageEncoder(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return encode(f, img)
}
