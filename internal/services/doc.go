// Package services defines shared utilities consumed by the publishing
// pipeline stages and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp pipeline run IDs and stage names for
//     logging and correlation.
//   - Structured error markers plus the Wrap helper that translate stage
//     failures into one consistent, user-visible message each.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
