// Package config loads, validates, and normalizes the clipcast
// configuration file.
//
// Configuration is TOML with one section per subsystem: paths, google
// (identity provider), transcode (codec runtime), upload, notifications,
// and logging. Load applies defaults, expands ~ in paths, and validates
// the result so the rest of the pipeline can trust every field.
package config
