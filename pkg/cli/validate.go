package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

// SuccessMarker is printed when a plugin passes validation
const SuccessMarker = "✅ Plugin is valid and passed security checks."

func newValidateCommand(a *app) *Command {
	cmd := &Command{
		Name:        "validate",
		Usage:       "validate [dir] [--watch]",
		Description: "Validate plugin manifest and run security checks",
		Flags:       flag.NewFlagSet("validate", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(a.stderr)
	watch := cmd.Flags.Bool("watch", false, "Re-validate whenever files in the plugin directory change")
	debounce := cmd.Flags.Duration("debounce", 300*time.Millisecond, "Quiet period before re-validating in watch mode")

	cmd.Run = func(ctx context.Context, args []string) error {
		dir, err := parseArgs(cmd.Flags, args)
		if err != nil {
			return err
		}
		if *watch {
			return a.runWatch(ctx, dir, *debounce)
		}
		return a.runValidate(ctx, dir)
	}
	return cmd
}

func (a *app) runValidate(ctx context.Context, dir string) error {
	s, err := a.openSession(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = a.validateOnce(ctx, s, dir)
	return err
}

// validateOnce runs the pipeline, records the outcome and prints the success marker
func (a *app) validateOnce(ctx context.Context, s *session, dir string) (*plugins.Report, error) {
	report, err := plugins.NewPipeline(s.logger, s.metrics).Validate(ctx, dir)
	s.recordVerification(ctx, report)
	if err != nil {
		return report, err
	}

	fmt.Fprintln(a.stdout, SuccessMarker)
	return report, nil
}
