// Package services defines shared utilities consumed by the pipeline
// stages and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the
//     orchestrator classify failures (retry, fail fast) and surface the
//     innermost cause to users.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the
// pipeline.
package services
