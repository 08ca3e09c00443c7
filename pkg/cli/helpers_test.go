package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPluginSource = `/*
@manifest {
  "name": "Order Sync",
  "description": "Pushes orders to an ERP",
  "version": "1.0.0",
  "author": "Jane Doe",
  "pluginCode": "order-sync",
  "category": "Integrations",
  "permissions": ["database.read"]
}
*/

const hooks = {
  afterOrderCreate: async (data) => {
    storenest.api.log.info('Order created:', data.order.id);
  }
};
`

// isolateEnv clears every variable config.Load reads
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORENEST_CONFIG", "STORENEST_LOG_LEVEL", "STORENEST_ARCHIVER", "STORENEST_ZIP_BINARY",
		"STORENEST_EXCLUDE", "STORENEST_METRICS_FILE", "STORENEST_OTEL_ENDPOINT",
		"STORENEST_OTEL_SERVICE_NAME", "STORENEST_OTEL_INSECURE", "STORENEST_LEDGER_DRIVER",
		"STORENEST_LEDGER_DSN", "STORENEST_S3_BUCKET", "STORENEST_S3_REGION", "STORENEST_S3_ENDPOINT",
		"STORENEST_S3_PREFIX", "STORENEST_S3_USE_PATH_STYLE", "STORENEST_S3_ACCESS_KEY",
		"STORENEST_S3_SECRET_KEY",
	} {
		t.Setenv(key, "")
	}
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	isolateEnv(t)
	var stdout, stderr bytes.Buffer
	return newApp(&stdout, &stderr), &stdout, &stderr
}

func execute(a *app, args ...string) error {
	return newRootCommand(a).Execute(context.Background(), args)
}

// writePluginDir creates <tmp>/<name>/plugin.js with source
func writePluginDir(t *testing.T, name, source string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.js"), []byte(source), 0644))
	return dir
}
