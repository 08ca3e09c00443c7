package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

func newInitCommand(a *app) *Command {
	cmd := &Command{
		Name:        "init",
		Usage:       "init [dir]",
		Description: "Scaffold a new plugin in [dir] (default: current directory)",
		Flags:       flag.NewFlagSet("init", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(a.stderr)
	cmd.Run = func(ctx context.Context, args []string) error {
		dir, err := parseArgs(cmd.Flags, args)
		if err != nil {
			return err
		}
		return a.runInit(ctx, dir)
	}
	return cmd
}

func (a *app) runInit(ctx context.Context, dir string) error {
	s, err := a.openSession(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := plugins.Scaffold(dir); err != nil {
		s.metrics.RecordRun("init", "failed")
		return err
	}

	s.metrics.RecordRun("init", "ok")
	s.logger.Debugf("Scaffolded %s", dir)
	fmt.Fprintln(a.stdout, "Scaffolded new plugin in", dir)
	return nil
}
