package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaded/diag"
	"github.com/gogpu/shaded/shader"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [project-dir]",
		Short: "Compile every pass and report diagnostics",
		Long: `Compile the vertex and pixel stage of every pass of a project and print
one line per pass, followed by the compiler diagnostics. The command fails
when any stage does not compile.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd, projectDir(args))
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, cmd *cobra.Command, dir string) error {
	sess, err := openSession(opts, dir)
	if err != nil {
		return err
	}
	eng, err := sess.open(opts)
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.Cache().ForceReconcile(sess.store.List())

	out := cmd.OutOrStdout()
	for _, e := range eng.Cache().Entries() {
		status := "ok"
		if !e.Vertex.Compiled() || !e.Pixel.Compiled() {
			status = "FAILED"
		}
		fmt.Fprintf(out, "%-6s %s\n", status, e.Item.Name)
		for _, p := range []*shader.Program{e.Vertex, e.Pixel} {
			if err := p.LastError(); err != nil {
				fmt.Fprintf(out, "       %s %s: %v\n", p.Stage(), p.EntryPoint(), err)
			}
		}
	}

	msgs := eng.Diagnostics().Messages()
	writeDiagnostics(out, msgs)
	if eng.Diagnostics().HasErrors() {
		return NewExitError(ExitFailure, "shaders failed to compile")
	}
	return nil
}

func writeDiagnostics(w io.Writer, msgs []diag.Message) {
	for _, m := range msgs {
		fmt.Fprintln(w, m.String())
	}
}
