package cli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

func newHistoryCommand(a *app) *Command {
	cmd := &Command{
		Name:        "history",
		Usage:       "history [dir] [--limit n]",
		Description: "Show recorded validation outcomes for the plugin",
		Flags:       flag.NewFlagSet("history", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(a.stderr)
	limit := cmd.Flags.Int("limit", 10, "Maximum number of runs to show")

	cmd.Run = func(ctx context.Context, args []string) error {
		dir, err := parseArgs(cmd.Flags, args)
		if err != nil {
			return err
		}
		return a.runHistory(ctx, dir, *limit)
	}
	return cmd
}

func (a *app) runHistory(ctx context.Context, dir string, limit int) error {
	s, err := a.openSession(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.ledger == nil {
		return fmt.Errorf("no ledger configured (set STORENEST_LEDGER_DRIVER and STORENEST_LEDGER_DSN)")
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}

	manifest, err := plugins.LoadManifest(filepath.Join(dir, plugins.PluginFileName))
	if err != nil {
		return err
	}

	records, err := s.ledger.ListVerifications(ctx, manifest.PluginCode, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(a.stdout, "No recorded runs for %s\n", manifest.PluginCode)
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tVERSION\tSTATUS\tSTAGE\tREASON")
	for _, rec := range records {
		stage := rec.Stage
		if stage == "" {
			stage = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.StartedAt.Local().Format(time.RFC3339), rec.Version, rec.Status, stage, rec.Reason)
	}
	return w.Flush()
}
