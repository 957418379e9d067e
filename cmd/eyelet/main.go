package main

import (
	"fmt"
	"os"

	"github.com/eyelet/eyelet/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "eyelet: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
