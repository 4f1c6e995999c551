// Package pipeline coordinates one publishing run: authentication,
// conversion, metadata collection, and upload, surfaced as a single
// observable status, progress, and error stream. All transitions happen
// inside the Machine; callers only read snapshots and fire triggers.
// Triggers that do not apply to the current status are ignored.
package pipeline
