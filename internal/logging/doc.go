// Package logging builds the slog loggers used across the publishing
// pipeline.
//
// Console output uses a compact single-line handler with optional ANSI
// colors when stdout is a terminal; JSON output is available for capture.
// Context helpers stamp pipeline run IDs and stage names onto log records,
// and ProgressSampler keeps noisy percent streams from flooding the log.
package logging
