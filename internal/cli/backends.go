package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaded/gpucore"
)

// NewBackendsCommand creates the backends command.
func NewBackendsCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered device backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range gpucore.Backends() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
