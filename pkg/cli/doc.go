// Package cli implements the storenest-plugin command-line tool.
//
// # Commands
//
// init: scaffold a starter plugin
//
//	storenest-plugin init my-plugin
//
// validate: extract, validate and scan plugin.js, stopping at the first problem
//
//	storenest-plugin validate ./my-plugin
//	storenest-plugin validate --watch
//
// package: zip the plugin directory next to itself, skipping excluded files
//
//	storenest-plugin package --archiver native
//
// info: print the manifest, the SHA-256 of plugin.js and a security summary
//
//	storenest-plugin info --json
//
// publish: validate, package and upload to S3 with a .sha256 sidecar
//
//	STORENEST_S3_BUCKET=plugins storenest-plugin publish
//
// history: list recorded validation runs from the ledger
//
//	STORENEST_LEDGER_DRIVER=sqlite3 STORENEST_LEDGER_DSN=ledger.db storenest-plugin history
//
// # Configuration
//
// Each command loads config.Load for its plugin directory, so a
// storenest-plugin.yaml next to plugin.js applies only to that plugin.
// Commands return errors and never exit; cmd/storenest-plugin prints them.
package cli
