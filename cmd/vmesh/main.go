// Command vmesh runs mesh processing pipelines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/vmesh/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
