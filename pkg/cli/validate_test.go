package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storenest/plugin-cli/pkg/plugins"
)

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantErr  error
		wantText string
	}{
		{
			name:   "valid plugin",
			source: testPluginSource,
		},
		{
			name:     "missing version",
			source:   strings.Replace(testPluginSource, `"version": "1.0.0",`, "", 1),
			wantErr:  plugins.ErrManifestInvalid,
			wantText: "Manifest missing required field: version",
		},
		{
			name:     "disallowed permission",
			source:   strings.Replace(testPluginSource, `["database.read"]`, `["filesystem.delete"]`, 1),
			wantErr:  plugins.ErrManifestInvalid,
			wantText: "Permission not allowed: filesystem.delete",
		},
		{
			name:     "child process",
			source:   testPluginSource + "const cp = 'child_process';\n",
			wantErr:  plugins.ErrSecurityViolation,
			wantText: "security check failed: forbidden pattern detected (child_process)",
		},
		{
			name:     "no manifest",
			source:   "exports.hooks = {};\n",
			wantErr:  plugins.ErrManifestNotFound,
			wantText: "no @manifest found in plugin.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, stdout, _ := newTestApp(t)
			dir := writePluginDir(t, "order-sync", tt.source)

			err := execute(a, "validate", dir)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, SuccessMarker+"\n", stdout.String())
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Equal(t, tt.wantText, err.Error())
			assert.NotContains(t, stdout.String(), SuccessMarker)
		})
	}
}

func TestValidateCommand_MissingPluginFile(t *testing.T) {
	a, _, _ := newTestApp(t)
	dir := t.TempDir()

	err := execute(a, "validate", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, plugins.ErrFileAccess))
	assert.Contains(t, err.Error(), "plugin.js not found in "+dir)
}

func TestValidateCommand_InvalidConfig(t *testing.T) {
	a, _, _ := newTestApp(t)
	dir := writePluginDir(t, "order-sync", testPluginSource)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storenest-plugin.yaml"), []byte("package:\n  archiver: tar\n"), 0644))

	err := execute(a, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid archiver: tar")
}

func TestValidateCommand_RecordsLedgerAndHistory(t *testing.T) {
	a, stdout, _ := newTestApp(t)
	t.Setenv("STORENEST_LEDGER_DRIVER", "sqlite3")
	t.Setenv("STORENEST_LEDGER_DSN", filepath.Join(t.TempDir(), "ledger.db"))

	dir := writePluginDir(t, "order-sync", testPluginSource)
	require.NoError(t, execute(a, "validate", dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.js"),
		[]byte(testPluginSource+"setInterval(poll, 1000);\n"), 0644))
	require.Error(t, execute(a, "validate", dir))

	stdout.Reset()
	require.NoError(t, execute(a, "history", dir))

	out := stdout.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "accepted")
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "scan")
	assert.Contains(t, out, `forbidden pattern detected (setInterval\s*\()`)

	stdout.Reset()
	require.NoError(t, execute(a, "history", dir, "--limit", "1"))
	assert.Equal(t, 2, strings.Count(stdout.String(), "\n"), "header plus one run")
}

func TestHistoryCommand_RequiresLedger(t *testing.T) {
	a, _, _ := newTestApp(t)
	dir := writePluginDir(t, "order-sync", testPluginSource)

	err := execute(a, "history", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ledger configured")
}

func TestHistoryCommand_NoRuns(t *testing.T) {
	a, stdout, _ := newTestApp(t)
	t.Setenv("STORENEST_LEDGER_DRIVER", "sqlite3")
	t.Setenv("STORENEST_LEDGER_DSN", filepath.Join(t.TempDir(), "ledger.db"))
	dir := writePluginDir(t, "order-sync", testPluginSource)

	require.NoError(t, execute(a, "history", dir))
	assert.Equal(t, "No recorded runs for order-sync\n", stdout.String())

	assert.Error(t, execute(a, "history", dir, "--limit", "0"))
}
