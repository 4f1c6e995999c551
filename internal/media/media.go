package media

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMIMEType is assumed when a recording or converted buffer carries no
// explicit content type.
const DefaultMIMEType = "video/mp4"

const (
	maxTitleLength       = 100
	maxDescriptionLength = 5000
)

// PrivacyStatus enumerates the platform visibility settings.
type PrivacyStatus string

const (
	PrivacyPublic   PrivacyStatus = "public"
	PrivacyUnlisted PrivacyStatus = "unlisted"
	PrivacyPrivate  PrivacyStatus = "private"
)

var privacyStatuses = map[PrivacyStatus]struct{}{
	PrivacyPublic:   {},
	PrivacyUnlisted: {},
	PrivacyPrivate:  {},
}

// ParsePrivacyStatus validates a user-supplied privacy value.
func ParsePrivacyStatus(value string) (PrivacyStatus, error) {
	status := PrivacyStatus(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := privacyStatuses[status]; !ok {
		return "", fmt.Errorf("privacy status %q: must be public, unlisted, or private", value)
	}
	return status, nil
}

// RawRecording is the immutable capture buffer handed to the pipeline. The
// pipeline only reads it; the caller retains ownership.
type RawRecording struct {
	Data     []byte
	MIMEType string
}

// Size returns the byte length of the recording.
func (r RawRecording) Size() int64 {
	return int64(len(r.Data))
}

// ContentType returns the recording MIME type, defaulting when unset.
func (r RawRecording) ContentType() string {
	if strings.TrimSpace(r.MIMEType) == "" {
		return DefaultMIMEType
	}
	return r.MIMEType
}

// ConvertedMedia is the transcoded output held between a successful
// conversion and either a successful upload or a pipeline reset.
type ConvertedMedia struct {
	Data     []byte
	MIMEType string
}

// Size returns the byte length of the converted media.
func (c ConvertedMedia) Size() int64 {
	return int64(len(c.Data))
}

// ContentType returns the converted MIME type, defaulting to video/mp4.
func (c ConvertedMedia) ContentType() string {
	if strings.TrimSpace(c.MIMEType) == "" {
		return DefaultMIMEType
	}
	return c.MIMEType
}

// PublishMetadata describes the video to create on the platform. It is
// supplied once by the user and consumed exactly once to build the upload
// session's descriptor.
type PublishMetadata struct {
	Title         string
	Description   string
	PrivacyStatus PrivacyStatus
	Tags          []string
}

// Normalized returns a copy with title and description trimmed, ready to be
// placed into the upload init request body.
func (m PublishMetadata) Normalized() PublishMetadata {
	normalized := m
	normalized.Title = strings.TrimSpace(m.Title)
	normalized.Description = strings.TrimSpace(m.Description)
	return normalized
}

// Validate reports whether the metadata is acceptable to submit. It must be
// called on normalized metadata before any network request is issued.
func (m PublishMetadata) Validate() error {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return errors.New("title is required")
	}
	// Limits are in characters, not bytes.
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("title exceeds %d characters", maxTitleLength)
	}
	if utf8.RuneCountInString(strings.TrimSpace(m.Description)) > maxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLength)
	}
	if _, ok := privacyStatuses[m.PrivacyStatus]; !ok {
		return fmt.Errorf("privacy status %q: must be public, unlisted, or private", string(m.PrivacyStatus))
	}
	return nil
}

// TransferProgress reports upload progress. Emitted repeatedly during the
// transfer phase and not retained.
type TransferProgress struct {
	BytesUploaded int64
	TotalBytes    int64
	Percentage    int
}

// RemoteVideo is the platform's video resource returned when an upload
// completes.
type RemoteVideo struct {
	Kind    string             `json:"kind"`
	ETag    string             `json:"etag"`
	ID      string             `json:"id"`
	Snippet RemoteVideoSnippet `json:"snippet"`
	Status  RemoteVideoStatus  `json:"status"`
}

// RemoteVideoSnippet carries the descriptive fields the pipeline surfaces
// after publishing.
type RemoteVideoSnippet struct {
	PublishedAt string `json:"publishedAt"`
	ChannelID   string `json:"channelId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RemoteVideoStatus reports the platform's processing and visibility state.
type RemoteVideoStatus struct {
	UploadStatus  string `json:"uploadStatus"`
	PrivacyStatus string `json:"privacyStatus"`
}

// WatchURL returns the public watch link for the uploaded video.
func (v RemoteVideo) WatchURL() string {
	if v.ID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + v.ID
}
