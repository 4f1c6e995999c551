// Package media defines the value types that flow through the publishing
// pipeline.
//
// RawRecording is the caller-owned capture buffer, ConvertedMedia the
// transcoded MP4 held for the lifetime of one pipeline run, and
// PublishMetadata the user-supplied descriptor consumed once when the
// upload session is initialized. TransferProgress and RemoteVideo carry
// upload progress and the platform's response.
//
// Validation for user-supplied fields lives here so every surface (CLI,
// pipeline, upload) agrees on what a publishable descriptor looks like.
package media
