package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrManifestNotFound is returned when the source carries no @manifest block
	ErrManifestNotFound = errors.New("no @manifest found in plugin.js")

	// ErrManifestParse is returned when the manifest block is not valid JSON
	ErrManifestParse = errors.New("invalid JSON in manifest")

	// ErrManifestInvalid is returned when the manifest violates the schema or permission whitelist
	ErrManifestInvalid = errors.New("invalid manifest")

	// ErrSecurityViolation is returned when the source references a forbidden host API
	ErrSecurityViolation = errors.New("security check failed")

	// ErrPackagingFailed is returned when the archive could not be produced
	ErrPackagingFailed = errors.New("packaging failed")

	// ErrPluginExists is returned when scaffolding over an existing plugin.js
	ErrPluginExists = errors.New("plugin.js already exists")

	// ErrFileAccess is returned when a plugin file or directory is missing or unreadable
	ErrFileAccess = errors.New("file access failed")
)

// ValidationError names the first manifest rule a plugin violated
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrManifestInvalid
}

// SecurityError reports the forbidden pattern that stopped a scan
type SecurityError struct {
	Finding Finding
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("%s: forbidden pattern detected (%s)", ErrSecurityViolation, e.Finding.Pattern)
}

func (e *SecurityError) Unwrap() error {
	return ErrSecurityViolation
}
