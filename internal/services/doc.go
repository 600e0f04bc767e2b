// Package services defines shared utilities consumed by the workflow stage
// operations and the processing gateway.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, sentence IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation vs conflict vs external) consistently across the pipeline.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
