package plugins

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/storenest/plugin-cli/pkg/observability"
)

// Stage is a step of the validation pipeline
type Stage string

const (
	StageLocate   Stage = "locate"
	StageExtract  Stage = "extract"
	StageValidate Stage = "validate"
	StageScan     Stage = "scan"
)

// Status is the terminal state of a validation run
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Report is the outcome of one validation run
type Report struct {
	RunID      string        `json:"run_id"`
	Dir        string        `json:"dir"`
	PluginFile string        `json:"plugin_file,omitempty"`
	Status     Status        `json:"status"`
	Stage      Stage         `json:"stage,omitempty"` // stage that rejected the plugin
	Manifest   *Manifest     `json:"manifest,omitempty"`
	Finding    *Finding      `json:"finding,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// InfoReport is the manifest and integrity summary of a plugin
type InfoReport struct {
	PluginFile string    `json:"plugin_file"`
	Manifest   *Manifest `json:"manifest"`
	Digest     Digest    `json:"sha256"`
	Finding    *Finding  `json:"finding,omitempty"` // nil when the scan found nothing
}

// Pipeline runs the extract → validate → scan chain against a plugin directory
type Pipeline struct {
	validator *Validator
	scanner   *Scanner
	logger    *logrus.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(logger *logrus.Logger, metrics *observability.Metrics) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		validator: NewValidator(logger),
		scanner:   NewScanner(),
		logger:    logger,
		metrics:   metrics,
		tracer:    observability.Tracer(),
	}
}

// Validate vets the plugin in dir. Every stage failure is terminal: the report is
// marked rejected with the failing stage and the originating error is returned.
func (p *Pipeline) Validate(ctx context.Context, dir string) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Dir:       dir,
		StartedAt: time.Now(),
	}

	ctx, span := p.tracer.Start(ctx, "Pipeline.Validate",
		trace.WithAttributes(
			attribute.String("plugin.dir", dir),
			attribute.String("run.id", report.RunID),
		),
	)
	defer span.End()

	log := p.logger.WithField("run_id", report.RunID)
	log.Debugf("Validating plugin in %s", dir)

	var source string
	err := p.stage(ctx, StageLocate, func() error {
		file, err := FindPluginFile(dir)
		if err != nil {
			return err
		}
		report.PluginFile = file
		source, err = ReadSource(file)
		return err
	})
	if err == nil {
		err = p.stage(ctx, StageExtract, func() error {
			m, err := ExtractManifest(source)
			report.Manifest = m
			return err
		})
	}
	if err == nil {
		err = p.stage(ctx, StageValidate, func() error {
			return p.validator.ValidateManifest(report.Manifest)
		})
	}
	if err == nil {
		err = p.stage(ctx, StageScan, func() error {
			return p.scanner.Scan(source)
		})
	}

	report.Duration = time.Since(report.StartedAt)

	if err != nil {
		err = p.reject(report, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(report.Stage))
		log.Warnf("Plugin rejected at %s: %v", report.Stage, err)
		return report, err
	}

	report.Status = StatusAccepted
	p.metrics.RecordRun("validate", string(StatusAccepted))
	span.SetStatus(codes.Ok, "plugin accepted")
	log.Infof("Plugin %s v%s accepted in %v", report.Manifest.PluginCode, report.Manifest.Version, report.Duration)
	return report, nil
}

// Info extracts the manifest from dir, hashes plugin.js and runs a non-blocking scan
func (p *Pipeline) Info(ctx context.Context, dir string) (*InfoReport, error) {
	_, span := p.tracer.Start(ctx, "Pipeline.Info",
		trace.WithAttributes(attribute.String("plugin.dir", dir)),
	)
	defer span.End()

	file, err := FindPluginFile(dir)
	if err != nil {
		span.RecordError(err)
		p.metrics.RecordRun("info", "failed")
		return nil, err
	}

	source, err := ReadSource(file)
	if err != nil {
		span.RecordError(err)
		p.metrics.RecordRun("info", "failed")
		return nil, err
	}

	manifest, err := ExtractManifest(source)
	if err != nil {
		span.RecordError(err)
		p.metrics.RecordRun("info", "failed")
		return nil, err
	}

	digest, err := HashFile(file)
	if err != nil {
		span.RecordError(err)
		p.metrics.RecordRun("info", "failed")
		return nil, err
	}

	info := &InfoReport{PluginFile: file, Manifest: manifest, Digest: digest}

	var secErr *SecurityError
	if errors.As(p.scanner.Scan(source), &secErr) {
		info.Finding = &secErr.Finding
	}

	span.SetAttributes(attribute.String("plugin.sha256", digest.String()))
	p.metrics.RecordRun("info", "ok")
	return info, nil
}

func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func() error) error {
	_, span := p.tracer.Start(ctx, "Pipeline."+string(stage))
	defer span.End()

	start := time.Now()
	err := fn()
	p.metrics.ObserveStage(string(stage), time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &stageError{stage: stage, err: err}
	}
	return nil
}

// reject marks report as rejected and returns the originating error
func (p *Pipeline) reject(report *Report, err error) error {
	var se *stageError
	if errors.As(err, &se) {
		report.Stage = se.stage
		err = se.err
	}
	report.Status = StatusRejected
	report.Err = err
	report.Reason = err.Error()

	var secErr *SecurityError
	if errors.As(err, &secErr) {
		report.Finding = &secErr.Finding
		p.metrics.RecordFinding(string(secErr.Finding.Category))
	}

	p.metrics.RecordRejection(string(report.Stage))
	p.metrics.RecordRun("validate", string(StatusRejected))
	return err
}

// stageError tags an error with the stage it came from without changing its message
type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }
