// Package plugins vets Storenest plugins before they are trusted by a host.
//
// # Overview
//
// A plugin is a directory whose entry point, plugin.js, embeds a JSON manifest
// in a comment introduced by the @manifest marker:
//
//	/*
//	@manifest {
//	  "name": "My Plugin",
//	  "pluginCode": "my-plugin",
//	  "permissions": ["database.read"]
//	}
//	*/
//
// # Validation pipeline
//
// Pipeline.Validate runs a strict chain and stops at the first failure:
//
//	locate plugin.js → ExtractManifest → Validator.ValidateManifest → Scanner.Scan
//
// Failures carry a sentinel that callers can test with errors.Is:
// ErrFileAccess, ErrManifestNotFound, ErrManifestParse, ErrManifestInvalid
// (as *ValidationError) and ErrSecurityViolation (as *SecurityError).
//
// # Security scanning
//
// Scanner is a textual heuristic. It rejects sources mentioning eval, Function,
// timers, process, require/module, global, filesystem helpers and process
// spawning. It cannot see through aliasing or string building, so a clean scan
// is not proof of safety.
//
// # Packaging
//
// Packager zips a plugin directory into <parent>/<name>.zip, skipping
// DefaultExclusions, using either the zip binary (ExecArchiver) or
// archive/zip (NativeArchiver). Both store symlinked files by content and fail
// when nothing is left to archive. The artifact carries its SHA-256 digest.
//
// # Usage Example
//
//	pipeline := plugins.NewPipeline(logger, nil)
//	report, err := pipeline.Validate(ctx, "./my-plugin")
//	if err != nil {
//		log.Fatalf("rejected at %s: %v", report.Stage, err)
//	}
package plugins
