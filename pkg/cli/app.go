package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/storenest/plugin-cli/pkg/config"
	"github.com/storenest/plugin-cli/pkg/observability"
	"github.com/storenest/plugin-cli/pkg/plugins"
	"github.com/storenest/plugin-cli/pkg/storage"
)

// Version is stamped into traces and set at build time with -ldflags
var Version = "dev"

// publisher uploads a packaged plugin
type publisher interface {
	Publish(ctx context.Context, manifest *plugins.Manifest, artifact *plugins.Artifact) (*storage.Publication, error)
}

// app carries the process-level dependencies shared by all commands
type app struct {
	stdout io.Writer
	stderr io.Writer

	newPublisher func(ctx context.Context, cfg config.PublishConfig, logger *logrus.Logger) (publisher, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		newPublisher: func(ctx context.Context, cfg config.PublishConfig, logger *logrus.Logger) (publisher, error) {
			return storage.NewS3Publisher(ctx, cfg, logger)
		},
	}
}

// session holds everything one command invocation owns
type session struct {
	cfg      config.Config
	logger   *logrus.Logger
	metrics  *observability.Metrics
	ledger   *storage.Ledger // nil when no ledger is configured
	shutdown *observability.ShutdownManager
}

// openSession loads configuration for dir and wires logging, metrics,
// tracing and the optional ledger. Callers must Close the session.
func (a *app) openSession(ctx context.Context, dir string) (*session, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel, a.stderr)
	s := &session{
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
		shutdown: observability.NewShutdownManager(logger, 10*time.Second),
	}

	tracingShutdown, err := observability.InitTracing(ctx, observability.OTelConfig{
		Endpoint:       cfg.Tracing.Endpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Insecure:       cfg.Tracing.Insecure,
	}, logger)
	if err != nil {
		// Tracing is optional; keep going without it
		logger.WithError(err).Warn("Tracing disabled")
	} else {
		s.shutdown.RegisterShutdownFunc(tracingShutdown)
	}

	s.shutdown.RegisterShutdownFunc(func(context.Context) error {
		return s.metrics.WriteTextfile(cfg.Metrics.Textfile)
	})

	if cfg.Ledger.Driver != "" {
		ledger, err := storage.OpenLedger(ctx, cfg.Ledger.Driver, cfg.Ledger.DSN, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.ledger = ledger
		s.shutdown.RegisterShutdownFunc(func(context.Context) error {
			return ledger.Close()
		})
	}

	return s, nil
}

// Close flushes metrics and spans and releases the ledger. Cleanup failures
// are logged rather than replacing the command's own result.
func (s *session) Close() {
	if err := s.shutdown.Shutdown(); err != nil {
		s.logger.WithError(err).Warn("Cleanup failed")
	}
}

// recordVerification stores a validation report when a ledger is configured
func (s *session) recordVerification(ctx context.Context, report *plugins.Report) {
	if s.ledger == nil || report == nil {
		return
	}
	if err := s.ledger.RecordVerification(ctx, storage.VerificationFromReport(report)); err != nil {
		s.logger.WithError(err).Warn("Failed to record verification")
	}
}

// recordArtifact stores a packaging result when a ledger is configured
func (s *session) recordArtifact(ctx context.Context, manifest *plugins.Manifest, artifact *plugins.Artifact) {
	if s.ledger == nil || manifest == nil {
		return
	}
	rec := storage.ArtifactRecord{
		SHA256:     artifact.Digest.String(),
		PluginCode: manifest.PluginCode,
		Version:    manifest.Version,
		Path:       artifact.Path,
		Size:       artifact.Size,
		CreatedAt:  time.Now(),
	}
	if err := s.ledger.RecordArtifact(ctx, rec); err != nil {
		s.logger.WithError(err).Warn("Failed to record artifact")
	}
}

// packager builds the packager selected by configuration, optionally overridden
func (s *session) packager(archiver string, stdout, stderr io.Writer) (*plugins.Packager, error) {
	if archiver == "" {
		archiver = s.cfg.Package.Archiver
	}

	var backend plugins.Archiver
	switch archiver {
	case "exec":
		backend = &plugins.ExecArchiver{Binary: s.cfg.Package.ZipBinary, Stdout: stdout, Stderr: stderr}
	case "native":
		backend = &plugins.NativeArchiver{}
	default:
		return nil, fmt.Errorf("invalid archiver: %s (must be exec or native)", archiver)
	}

	return plugins.NewPackager(backend, s.cfg.Package.Exclude, s.logger), nil
}
