package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

func newInfoCommand(a *app) *Command {
	cmd := &Command{
		Name:        "info",
		Usage:       "info [dir]",
		Description: "Show plugin manifest and security summary",
		Flags:       flag.NewFlagSet("info", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(a.stderr)
	asJSON := cmd.Flags.Bool("json", false, "Print the full report as JSON")

	cmd.Run = func(ctx context.Context, args []string) error {
		dir, err := parseArgs(cmd.Flags, args)
		if err != nil {
			return err
		}
		return a.runInfo(ctx, dir, *asJSON)
	}
	return cmd
}

func (a *app) runInfo(ctx context.Context, dir string, asJSON bool) error {
	s, err := a.openSession(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := plugins.NewPipeline(s.logger, s.metrics).Info(ctx, dir)
	if err != nil {
		return err
	}

	if asJSON {
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal info: %w", err)
		}
		fmt.Fprintln(a.stdout, string(out))
		return nil
	}

	manifest, err := indentManifest(info.Manifest)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Manifest:", manifest)
	fmt.Fprintln(a.stdout, "SHA256:", info.Digest)
	fmt.Fprintln(a.stdout, "Security:", securitySummary(info.Finding))
	return nil
}

// indentManifest renders the manifest object as the author wrote it, keys and
// empty lists included, falling back to the decoded fields.
func indentManifest(m *plugins.Manifest) (string, error) {
	if raw := m.Raw(); len(raw) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return "", fmt.Errorf("failed to format manifest: %w", err)
		}
		return buf.String(), nil
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return string(out), nil
}

func securitySummary(f *plugins.Finding) string {
	if f == nil {
		return "no forbidden patterns detected"
	}
	return fmt.Sprintf("forbidden pattern %s (%s) at line %d, column %d: %q",
		f.Pattern, f.Category, f.Line, f.Column, f.Match)
}
