package cli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

func newPackageCommand(a *app) *Command {
	cmd := &Command{
		Name:        "package",
		Usage:       "package [dir] [--archiver exec|native]",
		Description: "Package plugin as a zip for upload",
		Flags:       flag.NewFlagSet("package", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(a.stderr)
	archiver := cmd.Flags.String("archiver", "", "Archive backend: exec (zip binary) or native (default from config)")

	cmd.Run = func(ctx context.Context, args []string) error {
		dir, err := parseArgs(cmd.Flags, args)
		if err != nil {
			return err
		}
		return a.runPackage(ctx, dir, *archiver)
	}
	return cmd
}

func (a *app) runPackage(ctx context.Context, dir, archiver string) error {
	s, err := a.openSession(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	artifact, err := a.packageDir(ctx, s, dir, archiver)
	if err != nil {
		return err
	}

	// The ledger keys artifacts by plugin; an unreadable manifest only skips the record
	if manifest, err := plugins.LoadManifest(filepath.Join(dir, plugins.PluginFileName)); err == nil {
		s.recordArtifact(ctx, manifest, artifact)
	} else {
		s.logger.WithError(err).Debug("Artifact not recorded")
	}

	fmt.Fprintln(a.stdout, "Packaged plugin as", filepath.Base(artifact.Path))
	fmt.Fprintln(a.stdout, "SHA256:", artifact.Digest)
	return nil
}

// packageDir builds the artifact for dir and records its metrics
func (a *app) packageDir(ctx context.Context, s *session, dir, archiver string) (*plugins.Artifact, error) {
	packager, err := s.packager(archiver, a.stdout, a.stderr)
	if err != nil {
		return nil, err
	}

	artifact, err := packager.Package(ctx, dir)
	if err != nil {
		s.metrics.RecordRun("package", "failed")
		return nil, err
	}

	s.metrics.RecordRun("package", "ok")
	s.metrics.SetArtifactSize(artifact.Size)
	return artifact, nil
}
