package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/specvital/phpunit-runner/internal/cli"
)

var version = "dev"

func main() {
	app := cli.NewApp(os.Stdin, os.Stdout, os.Stderr)
	rootCmd := cli.NewRootCommand(app, version)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
