// Command shaded renders shader pass pipelines from a project directory.
package main

import (
	"fmt"
	"os"

	"github.com/gogpu/shaded/internal/cli"

	_ "github.com/gogpu/shaded/backend/recorder"
	_ "github.com/gogpu/shaded/backend/wgpu"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "shaded:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
