package cli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
)

func newPublishCommand(a *app) *Command {
	cmd := &Command{
		Name:        "publish",
		Usage:       "publish [dir] [--archiver exec|native]",
		Description: "Validate, package and upload plugin to the S3 bucket",
		Flags:       flag.NewFlagSet("publish", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(a.stderr)
	archiver := cmd.Flags.String("archiver", "", "Archive backend: exec (zip binary) or native (default from config)")

	cmd.Run = func(ctx context.Context, args []string) error {
		dir, err := parseArgs(cmd.Flags, args)
		if err != nil {
			return err
		}
		return a.runPublish(ctx, dir, *archiver)
	}
	return cmd
}

// runPublish only uploads plugins that pass validation
func (a *app) runPublish(ctx context.Context, dir, archiver string) error {
	s, err := a.openSession(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := a.validateOnce(ctx, s, dir)
	if err != nil {
		s.metrics.RecordRun("publish", "rejected")
		return err
	}

	artifact, err := a.packageDir(ctx, s, dir, archiver)
	if err != nil {
		s.metrics.RecordRun("publish", "failed")
		return err
	}
	s.recordArtifact(ctx, report.Manifest, artifact)

	pub, err := a.newPublisher(ctx, s.cfg.Publish, s.logger)
	if err != nil {
		s.metrics.RecordRun("publish", "failed")
		return err
	}

	publication, err := pub.Publish(ctx, report.Manifest, artifact)
	if err != nil {
		s.metrics.RecordRun("publish", "failed")
		return err
	}

	s.metrics.RecordRun("publish", "ok")
	fmt.Fprintf(a.stdout, "Published %s to s3://%s/%s\n", filepath.Base(artifact.Path), publication.Bucket, publication.Key)
	fmt.Fprintln(a.stdout, "SHA256:", publication.Digest)
	return nil
}
