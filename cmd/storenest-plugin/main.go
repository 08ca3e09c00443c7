package main

import (
	"context"
	"fmt"
	"os"

	"github.com/storenest/plugin-cli/pkg/cli"
	"github.com/storenest/plugin-cli/pkg/observability"
)

func main() {
	rootCmd := cli.NewRootCommand()

	if err := run(context.Background(), rootCmd, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// run is the single place where command errors, including panics, are caught
func run(ctx context.Context, rootCmd *cli.Command, args []string) (err error) {
	defer func() {
		if perr := observability.MustRecover(recover()); perr != nil {
			err = perr
		}
	}()
	return rootCmd.Execute(ctx, args)
}
