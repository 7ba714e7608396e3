package main

import (
	"fmt"
	"os"

	"github.com/i474232898/rain-station/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rain-station: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
