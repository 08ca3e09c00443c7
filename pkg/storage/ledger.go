package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

var ledgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS plugin_verifications (
		run_id VARCHAR(64) PRIMARY KEY,
		plugin_code VARCHAR(255),
		version VARCHAR(50),
		status VARCHAR(20) NOT NULL,
		stage VARCHAR(20),
		reason TEXT,
		finding_category VARCHAR(50),
		finding_pattern VARCHAR(100),
		finding_line INTEGER,
		started_at TIMESTAMP NOT NULL,
		duration_ms BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plugin_artifacts (
		sha256 VARCHAR(64) NOT NULL,
		plugin_code VARCHAR(255) NOT NULL,
		version VARCHAR(50) NOT NULL,
		path TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// VerificationRecord is one stored validation outcome
type VerificationRecord struct {
	RunID           string
	PluginCode      string
	Version         string
	Status          string
	Stage           string
	Reason          string
	FindingCategory string
	FindingPattern  string
	FindingLine     int
	StartedAt       time.Time
	Duration        time.Duration
}

// ArtifactRecord is one stored packaging result
type ArtifactRecord struct {
	SHA256     string
	PluginCode string
	Version    string
	Path       string
	Size       int64
	CreatedAt  time.Time
}

// VerificationFromReport flattens a pipeline report into a ledger row
func VerificationFromReport(report *plugins.Report) VerificationRecord {
	rec := VerificationRecord{
		RunID:     report.RunID,
		Status:    string(report.Status),
		Stage:     string(report.Stage),
		Reason:    report.Reason,
		StartedAt: report.StartedAt,
		Duration:  report.Duration,
	}
	if report.Manifest != nil {
		rec.PluginCode = report.Manifest.PluginCode
		rec.Version = report.Manifest.Version
	}
	if report.Finding != nil {
		rec.FindingCategory = string(report.Finding.Category)
		rec.FindingPattern = report.Finding.Pattern
		rec.FindingLine = report.Finding.Line
	}
	return rec
}

// Ledger records validation and packaging outcomes in a SQL database
type Ledger struct {
	db     *sql.DB
	driver string
	logger *logrus.Logger
}

// OpenLedger connects to the ledger database and creates its tables
func OpenLedger(ctx context.Context, driver, dsn string, logger *logrus.Logger) (*Ledger, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}

	ledger := NewLedger(db, driver, logger)
	if err := ledger.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewLedger wraps an open database handle
func NewLedger(db *sql.DB, driver string, logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ledger{db: db, driver: driver, logger: logger}
}

// Migrate creates the ledger tables if they do not exist
func (l *Ledger) Migrate(ctx context.Context) error {
	for _, stmt := range ledgerSchema {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate ledger: %w", err)
		}
	}
	return nil
}

// RecordVerification stores a validation outcome
func (l *Ledger) RecordVerification(ctx context.Context, rec VerificationRecord) error {
	query := l.rebind(`
		INSERT INTO plugin_verifications
		(run_id, plugin_code, version, status, stage, reason, finding_category, finding_pattern, finding_line, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := l.db.ExecContext(ctx, query,
		rec.RunID,
		nullString(rec.PluginCode),
		nullString(rec.Version),
		rec.Status,
		nullString(rec.Stage),
		nullString(rec.Reason),
		nullString(rec.FindingCategory),
		nullString(rec.FindingPattern),
		sql.NullInt64{Int64: int64(rec.FindingLine), Valid: rec.FindingLine > 0},
		rec.StartedAt.UTC(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record verification: %w", err)
	}

	l.logger.Debugf("Recorded verification %s (%s)", rec.RunID, rec.Status)
	return nil
}

// RecordArtifact stores a packaging result
func (l *Ledger) RecordArtifact(ctx context.Context, rec ArtifactRecord) error {
	query := l.rebind(`
		INSERT INTO plugin_artifacts (sha256, plugin_code, version, path, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := l.db.ExecContext(ctx, query,
		rec.SHA256, rec.PluginCode, rec.Version, rec.Path, rec.Size, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

// ListVerifications returns the most recent outcomes for a plugin, newest first
func (l *Ledger) ListVerifications(ctx context.Context, pluginCode string, limit int) ([]VerificationRecord, error) {
	query := l.rebind(`
		SELECT run_id, plugin_code, version, status, stage, reason,
		       finding_category, finding_pattern, finding_line, started_at, duration_ms
		FROM plugin_verifications
		WHERE plugin_code = ?
		ORDER BY started_at DESC
		LIMIT ?
	`)

	rows, err := l.db.QueryContext(ctx, query, pluginCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	var records []VerificationRecord
	for rows.Next() {
		var rec VerificationRecord
		var code, version, stage, reason, category, pattern sql.NullString
		var line sql.NullInt64
		var durationMs int64

		if err := rows.Scan(&rec.RunID, &code, &version, &rec.Status, &stage, &reason,
			&category, &pattern, &line, &rec.StartedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}

		rec.PluginCode = code.String
		rec.Version = version.String
		rec.Stage = stage.String
		rec.Reason = reason.String
		rec.FindingCategory = category.String
		rec.FindingPattern = pattern.String
		rec.FindingLine = int(line.Int64)
		rec.Duration = time.Duration(durationMs) * time.Millisecond

		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close releases the database handle
func (l *Ledger) Close() error {
	return l.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (l *Ledger) rebind(query string) string {
	if l.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
