// Package services defines shared utilities consumed by the transcription
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and batch run
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so configuration and
//     lookup failures read the same way across packages.
//
// Use these helpers when wiring new pipeline code so operational behaviour
// (error reporting, observability) stays uniform.
package services
