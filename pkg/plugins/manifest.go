package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// ManifestMarker introduces the manifest block inside a source comment
	ManifestMarker = "@manifest"

	// PluginFileName is the entry point every plugin directory must contain
	PluginFileName = "plugin.js"
)

var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// FindPluginFile returns the path of plugin.js inside dir
func FindPluginFile(dir string) (string, error) {
	path := filepath.Join(dir, PluginFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s not found in %s", ErrFileAccess, PluginFileName, dir)
	}
	return path, nil
}

// ReadSource reads a plugin source file as text
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return string(data), nil
}

// LoadManifest reads a plugin source file and extracts its manifest
func LoadManifest(path string) (*Manifest, error) {
	source, err := ReadSource(path)
	if err != nil {
		return nil, err
	}
	return ExtractManifest(source)
}

// ExtractManifest locates the first @manifest marker followed by a JSON object
// and decodes that object. Later manifest blocks are ignored.
func ExtractManifest(source string) (*Manifest, error) {
	body, ok := locateManifest(source)
	if !ok {
		return nil, ErrManifestNotFound
	}

	var manifest Manifest
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestParse, err)
	}

	return &manifest, nil
}

// locateManifest returns the source text starting at the opening brace of the
// first marker that is followed (after optional whitespace) by '{'.
func locateManifest(source string) (string, bool) {
	offset := 0
	for {
		idx := strings.Index(source[offset:], ManifestMarker)
		if idx < 0 {
			return "", false
		}
		rest := source[offset+idx+len(ManifestMarker):]
		trimmed := strings.TrimLeftFunc(rest, isJSSpace)
		if strings.HasPrefix(trimmed, "{") {
			return trimmed, true
		}
		offset += idx + len(ManifestMarker)
	}
}

// isValidSemver checks if a version string follows semantic versioning
func isValidSemver(version string) bool {
	return semverRegex.MatchString(version)
}
