package plugins

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var scaffoldTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// scaffoldFiles maps output names to the template that renders them
var scaffoldFiles = []struct {
	name     string
	template string
}{
	{PluginFileName, "plugin.js.tmpl"},
	{"README.md", "README.md.tmpl"},
	{".gitignore", "gitignore.tmpl"},
}

// StarterManifest is the manifest written into a freshly scaffolded plugin
func StarterManifest() *Manifest {
	rateLimit := 100.0
	maxExecution := 30000.0
	return &Manifest{
		Name:             "My Plugin",
		Description:      "Describe your plugin",
		Version:          "1.0.0",
		Author:           "Your Name",
		PluginCode:       "my-plugin",
		Category:         "Utilities",
		Permissions:      []Permission{PermissionDatabaseRead},
		AllowedTables:    []string{"products"},
		Hooks:            []string{"afterOrderCreate"},
		RateLimit:        &rateLimit,
		MaxExecutionTime: &maxExecution,
	}
}

// Scaffold writes a starter plugin.js, README.md and .gitignore into dir,
// creating it if needed. An existing plugin.js is never overwritten.
func Scaffold(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}

	if _, err := os.Stat(filepath.Join(dir, PluginFileName)); err == nil {
		return ErrPluginExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrFileAccess, err)
	}

	manifest := StarterManifest()
	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	data := struct {
		Name     string
		Manifest string
	}{
		Name:     manifest.Name,
		Manifest: string(body),
	}

	for _, f := range scaffoldFiles {
		var buf bytes.Buffer
		if err := scaffoldTemplates.ExecuteTemplate(&buf, f.template, data); err != nil {
			return fmt.Errorf("failed to render %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("%w: %v", ErrFileAccess, err)
		}
	}

	return nil
}
