package plugins

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSource = `/*
@manifest {
  "name": "Order Sync",
  "description": "Pushes orders to an ERP",
  "version": "1.0.0",
  "author": "Jane Doe",
  "pluginCode": "order-sync",
  "category": "Integrations",
  "permissions": ["database.read"],
  "allowedTables": ["orders"],
  "allowedDomains": ["erp.example.com"],
  "hooks": ["afterOrderCreate"],
  "rateLimit": 100,
  "maxExecutionTime": 30000
}
*/

const hooks = {
  afterOrderCreate: async (data) => {
    storenest.api.log.info('Order created:', data.order.id);
  }
};
`

func TestExtractManifest_Valid(t *testing.T) {
	manifest, err := ExtractManifest(validSource)
	require.NoError(t, err)

	assert.Equal(t, "Order Sync", manifest.Name)
	assert.Equal(t, "Pushes orders to an ERP", manifest.Description)
	assert.Equal(t, "1.0.0", manifest.Version)
	assert.Equal(t, "Jane Doe", manifest.Author)
	assert.Equal(t, "order-sync", manifest.PluginCode)
	assert.Equal(t, "Integrations", manifest.Category)
	assert.Equal(t, []Permission{PermissionDatabaseRead}, manifest.Permissions)
	assert.Equal(t, []string{"orders"}, manifest.AllowedTables)
	assert.Equal(t, []string{"erp.example.com"}, manifest.AllowedDomains)
	assert.Equal(t, []string{"afterOrderCreate"}, manifest.Hooks)
	require.NotNil(t, manifest.RateLimit)
	assert.Equal(t, 100.0, *manifest.RateLimit)
	require.NotNil(t, manifest.MaxExecutionTime)
	assert.Equal(t, 30000.0, *manifest.MaxExecutionTime)
}

func TestExtractManifest_NoMarker(t *testing.T) {
	_, err := ExtractManifest("const x = 1;\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrManifestNotFound))
	assert.Equal(t, "no @manifest found in plugin.js", err.Error())
}

func TestExtractManifest_MarkerWithoutObject(t *testing.T) {
	_, err := ExtractManifest("// see @manifest docs\nconst x = 1;\n")
	assert.True(t, errors.Is(err, ErrManifestNotFound))
}

func TestExtractManifest_SkipsMarkerWithoutObject(t *testing.T) {
	source := "// the @manifest below describes the plugin\n/* @manifest {\"name\": \"second\"} */"
	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.Equal(t, "second", manifest.Name)
}

func TestExtractManifest_InvalidJSON(t *testing.T) {
	_, err := ExtractManifest(`/* @manifest { "name": "x", } */`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrManifestParse))
	assert.Contains(t, err.Error(), "invalid JSON in manifest")
}

func TestExtractManifest_Unterminated(t *testing.T) {
	_, err := ExtractManifest(`/* @manifest { "name": "x" `)
	assert.True(t, errors.Is(err, ErrManifestParse))
}

func TestExtractManifest_FirstMatchWins(t *testing.T) {
	source := `/* @manifest {"name": "first", "version": "1.0.0"} */
/* @manifest {"name": "second", "version": "2.0.0"} */`

	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.Equal(t, "first", manifest.Name)
	assert.Equal(t, "1.0.0", manifest.Version)
}

func TestExtractManifest_NestedObject(t *testing.T) {
	source := `/* @manifest {"name": "nested", "settings": {"a": {"b": 1}}, "version": "1.0.0"} */`

	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.Equal(t, "nested", manifest.Name)
	assert.Equal(t, "1.0.0", manifest.Version)
}

func TestExtractManifest_TemplateMetadata(t *testing.T) {
	source := `/*
@manifest {
  "name": "Sample Plugin",
  "authorEmail": "your.email@example.com",
  "authorWebsite": "https://yourwebsite.com",
  "tags": ["template", "example"],
  "license": "MIT",
  "minStorenestVersion": "1.0.0"
}
*/`
	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.Equal(t, "your.email@example.com", manifest.AuthorEmail)
	assert.Equal(t, "https://yourwebsite.com", manifest.AuthorWebsite)
	assert.Equal(t, []string{"template", "example"}, manifest.Tags)
	assert.Equal(t, "MIT", manifest.License)
	assert.Equal(t, "1.0.0", manifest.MinStorenestVersion)
}

func TestExtractManifest_ScalarListFieldsAreKept(t *testing.T) {
	manifest, err := ExtractManifest(`/* @manifest {"allowedTables": "orders", "allowedDomains": {"a": 1}} */`)
	require.NoError(t, err)

	assert.Nil(t, manifest.AllowedTables)
	assert.Equal(t, fieldShape{present: true, truthy: true}, manifest.shape("allowedTables"))
	assert.Equal(t, fieldShape{present: true, truthy: true}, manifest.shape("allowedDomains"))
	assert.Equal(t, fieldShape{}, manifest.shape("permissions"))
}

func TestShapeOf(t *testing.T) {
	tests := []struct {
		raw  string
		want fieldShape
	}{
		{"", fieldShape{}},
		{"[]", fieldShape{present: true, truthy: true, sequence: true}},
		{`["a"]`, fieldShape{present: true, truthy: true, sequence: true}},
		{"null", fieldShape{present: true}},
		{"false", fieldShape{present: true}},
		{"true", fieldShape{present: true, truthy: true}},
		{`""`, fieldShape{present: true}},
		{`"x"`, fieldShape{present: true, truthy: true}},
		{"0", fieldShape{present: true}},
		{"12", fieldShape{present: true, truthy: true}},
		{"{}", fieldShape{present: true, truthy: true}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, shapeOf([]byte(tt.raw)))
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, PluginFileName)
	require.NoError(t, os.WriteFile(path, []byte(validSource), 0644))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "order-sync", manifest.PluginCode)
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), PluginFileName))
	assert.True(t, errors.Is(err, ErrFileAccess))
}

func TestFindPluginFile(t *testing.T) {
	dir := t.TempDir()

	_, err := FindPluginFile(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileAccess))
	assert.Contains(t, err.Error(), "plugin.js not found in "+dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, PluginFileName), []byte("x"), 0644))
	path, err := FindPluginFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, PluginFileName), path)
}

func TestFindPluginFile_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, PluginFileName), 0755))

	_, err := FindPluginFile(dir)
	assert.True(t, errors.Is(err, ErrFileAccess))
}

func TestIsValidSemver(t *testing.T) {
	assert.True(t, isValidSemver("1.0.0"))
	assert.True(t, isValidSemver("v2.1.3-beta.1"))
	assert.False(t, isValidSemver("1.0"))
	assert.False(t, isValidSemver("latest"))
}

func TestExtractManifest_UnicodeSpaceBeforeObject(t *testing.T) {
	for _, space := range []string{" ", "\ufeff", "\v", "\u00a0", "\u3000 \n"} {
		manifest, err := ExtractManifest("/* @manifest" + space + `{"name": "spaced"} */`)
		require.NoError(t, err, "%q", space)
		assert.Equal(t, "spaced", manifest.Name)
	}
}

func TestExtractManifest_KeysAreCaseSensitive(t *testing.T) {
	source := `/* @manifest {
  "NAME": "Shouting",
  "Description": "d",
  "VERSION": "1.0.0",
  "Author": "a",
  "PLUGINCODE": "shout",
  "Category": "c",
  "PERMISSIONS": ["filesystem.delete"],
  "AllowedTables": "orders"
} */`

	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.Empty(t, manifest.Name)
	assert.Empty(t, manifest.Version)
	assert.Empty(t, manifest.PluginCode)
	assert.Nil(t, manifest.Permissions)
	assert.Equal(t, fieldShape{}, manifest.shape("permissions"))
	assert.Equal(t, fieldShape{}, manifest.shape("allowedTables"))

	err = NewValidator(getTestLogger()).ValidateManifest(manifest)
	require.Error(t, err)
	assert.Equal(t, "Manifest missing required field: name", err.Error())
}

func TestExtractManifest_MisspelledCaseKeysIgnored(t *testing.T) {
	source := `/* @manifest {
  "name": "n", "description": "d", "version": "1.0.0",
  "author": "a", "pluginCode": "p", "category": "c",
  "Permissions": ["filesystem.delete"]
} */`

	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.NoError(t, NewValidator(getTestLogger()).ValidateManifest(manifest))
}

func TestExtractManifest_NonIntegerLimits(t *testing.T) {
	manifest, err := ExtractManifest(`/* @manifest {"rateLimit": 1.5, "maxExecutionTime": 3e4} */`)
	require.NoError(t, err)
	require.NotNil(t, manifest.RateLimit)
	assert.Equal(t, 1.5, *manifest.RateLimit)
	require.NotNil(t, manifest.MaxExecutionTime)
	assert.Equal(t, 30000.0, *manifest.MaxExecutionTime)
}

func TestExtractManifest_WrongTypedOptionalFieldsIgnored(t *testing.T) {
	source := `/* @manifest {
  "name": "loose",
  "hooks": "afterOrderCreate",
  "tags": {"a": 1},
  "license": 3,
  "rateLimit": "fast",
  "maxExecutionTime": [1]
} */`

	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.Equal(t, "loose", manifest.Name)
	assert.Nil(t, manifest.Hooks)
	assert.Nil(t, manifest.Tags)
	assert.Empty(t, manifest.License)
	assert.Nil(t, manifest.RateLimit)
	assert.Nil(t, manifest.MaxExecutionTime)
}

func TestExtractManifest_KeepsRawObject(t *testing.T) {
	source := `/* @manifest {"name": "raw", "allowedDomains": [], "custom": {"x": 1}} trailing */`

	manifest, err := ExtractManifest(source)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "raw", "allowedDomains": [], "custom": {"x": 1}}`, string(manifest.Raw()))
	assert.Nil(t, StarterManifest().Raw())
}
