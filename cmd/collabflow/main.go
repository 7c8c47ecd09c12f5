// Command collabflow runs brand and creator collaboration workflows.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/collabflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
