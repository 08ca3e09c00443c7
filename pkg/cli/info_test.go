package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

func TestInfoCommand(t *testing.T) {
	a, stdout, _ := newTestApp(t)
	dir := writePluginDir(t, "order-sync", testPluginSource)

	require.NoError(t, execute(a, "info", dir))

	out := stdout.String()
	assert.Contains(t, out, "Manifest: {\n  \"name\": \"Order Sync\"")
	assert.Contains(t, out, `"pluginCode": "order-sync"`)
	assert.Contains(t, out, "SHA256: "+plugins.HashBytes([]byte(testPluginSource)).String())
	assert.Contains(t, out, "Security: no forbidden patterns detected")
}

func TestInfoCommand_PrintsManifestAsWritten(t *testing.T) {
	a, stdout, _ := newTestApp(t)
	source := `/* @manifest {"name": "Raw", "pluginCode": "raw", "allowedDomains": [], "settings": {"retries": 3}} */
exports.ok = true;
`
	dir := writePluginDir(t, "raw", source)

	require.NoError(t, execute(a, "info", dir))

	out := stdout.String()
	assert.Contains(t, out, "Manifest: {\n  \"name\": \"Raw\",\n  \"pluginCode\": \"raw\",\n  \"allowedDomains\": [],")
	assert.Contains(t, out, `"retries": 3`)
}

func TestInfoCommand_SecuritySummary(t *testing.T) {
	a, stdout, _ := newTestApp(t)
	dir := writePluginDir(t, "order-sync", testPluginSource+"eval(payload);\n")

	// info reports findings without failing
	require.NoError(t, execute(a, "info", dir))
	assert.Contains(t, stdout.String(), `Security: forbidden pattern eval\s*\( (dynamic-eval) at line 18, column 1: "eval("`)
}

func TestInfoCommand_JSON(t *testing.T) {
	a, stdout, _ := newTestApp(t)
	dir := writePluginDir(t, "order-sync", testPluginSource)

	require.NoError(t, execute(a, "info", "--json", dir))

	var report struct {
		PluginFile string           `json:"plugin_file"`
		Manifest   map[string]any   `json:"manifest"`
		Digest     string           `json:"sha256"`
		Finding    *plugins.Finding `json:"finding"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "order-sync", report.Manifest["pluginCode"])
	assert.Len(t, report.Digest, 64)
	assert.Nil(t, report.Finding)
}

func TestInfoCommand_NoManifest(t *testing.T) {
	a, _, _ := newTestApp(t)
	dir := writePluginDir(t, "order-sync", "exports.x = 1;\n")

	err := execute(a, "info", dir)
	assert.True(t, errors.Is(err, plugins.ErrManifestNotFound))
}
