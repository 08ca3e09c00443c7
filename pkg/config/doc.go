// Package config loads CLI configuration for a plugin directory.
//
// Sources, later ones winning:
//
//  1. Default()
//  2. A YAML file: $STORENEST_CONFIG, or storenest-plugin.yaml in the plugin directory
//  3. Environment variables
//
// Example file:
//
//	log_level: info
//	package:
//	  archiver: native
//	  exclude: [".git", "node_modules", "*.log"]
//	ledger:
//	  driver: sqlite3
//	  dsn: /var/lib/storenest/ledger.db
//	publish:
//	  bucket: storenest-plugins
//	  region: eu-west-1
//
// Environment variables:
//
//	STORENEST_LOG_LEVEL, STORENEST_ARCHIVER, STORENEST_ZIP_BINARY, STORENEST_EXCLUDE (comma separated)
//	STORENEST_METRICS_FILE
//	STORENEST_OTEL_ENDPOINT, STORENEST_OTEL_SERVICE_NAME, STORENEST_OTEL_INSECURE
//	STORENEST_LEDGER_DRIVER, STORENEST_LEDGER_DSN
//	STORENEST_S3_BUCKET, STORENEST_S3_REGION, STORENEST_S3_ENDPOINT, STORENEST_S3_PREFIX,
//	STORENEST_S3_USE_PATH_STYLE, STORENEST_S3_ACCESS_KEY, STORENEST_S3_SECRET_KEY
//
// S3 credentials are never read from the file, since the file lives next to
// plugin sources that get packaged.
package config
