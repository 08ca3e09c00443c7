package plugins

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ArchiveExtension is appended to the plugin directory name to form the artifact name
const ArchiveExtension = ".zip"

// DefaultExclusions are left out of every artifact unless configured otherwise
var DefaultExclusions = []string{".git", "node_modules", ".DS_Store", "*.log", "*.tmp"}

// Archiver writes the contents of srcDir to a zip file at dest, leaving out excluded paths
type Archiver interface {
	Name() string
	Archive(ctx context.Context, srcDir, dest string, exclude []string) error
}

// Packager bundles a plugin directory into a distributable archive next to it
type Packager struct {
	archiver Archiver
	exclude  []string
	logger   *logrus.Logger
}

// NewPackager creates a packager. A nil exclusion list means DefaultExclusions.
func NewPackager(archiver Archiver, exclude []string, logger *logrus.Logger) *Packager {
	if archiver == nil {
		archiver = &NativeArchiver{}
	}
	if exclude == nil {
		exclude = DefaultExclusions
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Packager{archiver: archiver, exclude: exclude, logger: logger}
}

// ArtifactPath returns where Package writes the archive for dir
func ArtifactPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPackagingFailed, err)
	}
	return filepath.Join(filepath.Dir(abs), filepath.Base(abs)+ArchiveExtension), nil
}

// Package archives dir into <parent>/<name>.zip and returns the artifact with its digest.
// The source directory is never modified.
func (p *Packager) Package(ctx context.Context, dir string) (*Artifact, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackagingFailed, err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: source directory %s does not exist", ErrPackagingFailed, abs)
	}

	dest, err := ArtifactPath(abs)
	if err != nil {
		return nil, err
	}

	// zip -r updates an existing archive in place, which would keep stale entries
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to remove previous artifact: %v", ErrPackagingFailed, err)
	}

	start := time.Now()
	p.logger.Debugf("Packaging %s with %s archiver", abs, p.archiver.Name())

	if err := p.archiver.Archive(ctx, abs, dest, p.exclude); err != nil {
		os.Remove(dest)
		if errors.Is(err, ErrPackagingFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPackagingFailed, err)
	}

	digest, err := HashFile(dest)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	entries, err := archiveEntries(dest)
	if err != nil {
		return nil, err
	}

	p.logger.Infof("Packaged %s (%d files, %d bytes) in %v", filepath.Base(dest), len(entries), stat.Size(), time.Since(start))

	return &Artifact{Path: dest, Digest: digest, Size: stat.Size(), Entries: entries}, nil
}

// archiveEntries lists the file entries of a finished archive, whichever backend wrote it
func archiveEntries(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: archive is unreadable: %v", ErrPackagingFailed, err)
	}
	defer r.Close()

	entries := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		entries = append(entries, f.Name)
	}
	return entries, nil
}

// IsExcluded reports whether a slash-separated relative path has any segment
// matching one of the exclusion patterns.
func IsExcluded(rel string, patterns []string) bool {
	for _, segment := range strings.Split(rel, "/") {
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, segment); ok {
				return true
			}
		}
	}
	return false
}
