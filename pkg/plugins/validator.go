package plugins

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// requiredFields lists the mandatory manifest strings in the order they are checked
var requiredFields = []struct {
	name  string
	value func(*Manifest) string
}{
	{"name", func(m *Manifest) string { return m.Name }},
	{"description", func(m *Manifest) string { return m.Description }},
	{"version", func(m *Manifest) string { return m.Version }},
	{"author", func(m *Manifest) string { return m.Author }},
	{"pluginCode", func(m *Manifest) string { return m.PluginCode }},
	{"category", func(m *Manifest) string { return m.Category }},
}

// Validator checks plugin manifests against the schema and permission whitelist
type Validator struct {
	logger *logrus.Logger
}

// NewValidator creates a new manifest validator
func NewValidator(logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Validator{logger: logger}
}

// ValidateManifest checks a manifest and returns the first violation as a *ValidationError.
// Checks run in a fixed order: required fields, permissions, allowedTables, allowedDomains.
func (v *Validator) ValidateManifest(manifest *Manifest) error {
	if manifest == nil {
		return &ValidationError{Field: "manifest", Message: "Manifest is empty"}
	}

	for _, field := range requiredFields {
		if field.value(manifest) == "" {
			return &ValidationError{
				Field:   field.name,
				Message: fmt.Sprintf("Manifest missing required field: %s", field.name),
			}
		}
	}

	if s := manifest.shape("permissions"); s.truthy && !s.sequence {
		return &ValidationError{Field: "permissions", Message: "permissions must be an array"}
	}
	for _, perm := range manifest.Permissions {
		if _, err := ParsePermission(string(perm)); err != nil {
			return err
		}
	}

	if s := manifest.shape("allowedTables"); s.truthy && !s.sequence {
		return &ValidationError{Field: "allowedTables", Message: "allowedTables must be an array"}
	}

	if s := manifest.shape("allowedDomains"); s.truthy && !s.sequence {
		return &ValidationError{Field: "allowedDomains", Message: "allowedDomains must be an array"}
	}

	if !isValidSemver(manifest.Version) {
		v.logger.Warnf("Plugin %s declares non-semver version %q", manifest.PluginCode, manifest.Version)
	}

	return nil
}
