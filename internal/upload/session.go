package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"clipcast/internal/config"
	"clipcast/internal/logging"
	"clipcast/internal/media"
	"clipcast/internal/services"
)

// videoCategoryPeopleBlogs is the platform category applied to every upload.
const videoCategoryPeopleBlogs = "22"

// HTTPDoer describes the HTTP client used by the upload session.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProgressFunc receives transfer progress events.
type ProgressFunc func(media.TransferProgress)

// Session uploads converted media through the resumable upload protocol.
type Session struct {
	endpoint    string
	initTimeout time.Duration
	client      HTTPDoer
	logger      *slog.Logger
}

// Option customises Session construction.
type Option func(*Session)

// WithHTTPClient overrides the HTTP client used for both upload phases.
func WithHTTPClient(client HTTPDoer) Option {
	return func(s *Session) {
		if client != nil {
			s.client = client
		}
	}
}

// NewSession builds an upload session from configuration.
func NewSession(cfg *config.Config, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	session := &Session{
		endpoint:    cfg.Upload.Endpoint,
		initTimeout: time.Duration(cfg.Upload.InitTimeout) * time.Second,
		client:      http.DefaultClient,
		logger:      logger.With(logging.String(logging.FieldComponent, "upload")),
	}
	for _, opt := range opts {
		opt(session)
	}
	return session
}

type initRequest struct {
	Snippet initSnippet `json:"snippet"`
	Status  initStatus  `json:"status"`
}

type initSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"categoryId"`
}

type initStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

// platformError is the structured error body the platform returns on
// non-success statuses.
type platformError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload runs both phases of the resumable protocol and returns the created
// video resource. Metadata is validated before any network request is made.
// Cancelling ctx aborts the transfer.
func (s *Session) Upload(ctx context.Context, accessToken string, converted media.ConvertedMedia, meta media.PublishMetadata, onProgress ProgressFunc) (media.RemoteVideo, error) {
	meta = meta.Normalized()
	if err := meta.Validate(); err != nil {
		return media.RemoteVideo{}, services.Wrap(services.ErrUploadInit, "upload", "validate metadata",
			fmt.Sprintf("Invalid video details: %v", err), nil)
	}
	if converted.Size() == 0 {
		return media.RemoteVideo{}, services.Wrap(services.ErrUploadInit, "upload", "validate media",
			"No converted video to upload", nil)
	}

	sessionURL, err := s.initialize(ctx, accessToken, converted, meta)
	if err != nil {
		return media.RemoteVideo{}, err
	}
	s.logger.Info("upload session opened",
		logging.String("size", humanize.Bytes(uint64(converted.Size()))))

	video, err := s.transfer(ctx, sessionURL, accessToken, converted, onProgress)
	if err != nil {
		return media.RemoteVideo{}, err
	}
	s.logger.Info("upload complete", logging.String("video_id", video.ID))
	return video, nil
}

// initialize opens a resumable upload session and returns the session URL
// from the Location header. A 2xx response without that header is still a
// failure.
func (s *Session) initialize(ctx context.Context, accessToken string, converted media.ConvertedMedia, meta media.PublishMetadata) (string, error) {
	tags := meta.Tags
	if tags == nil {
		tags = []string{}
	}
	body, err := json.Marshal(initRequest{
		Snippet: initSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        tags,
			CategoryID:  videoCategoryPeopleBlogs,
		},
		Status: initStatus{
			PrivacyStatus:           string(meta.PrivacyStatus),
			SelfDeclaredMadeForKids: false,
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrUploadInit, "upload", "init",
			"Failed to encode upload request", err)
	}

	initCtx := ctx
	if s.initTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, s.initTimeout)
		defer cancel()
	}

	url := s.endpoint + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(initCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrUploadInit, "upload", "init",
			"Failed to build upload request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(converted.Size(), 10))
	req.Header.Set("X-Upload-Content-Type", converted.ContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUploadInit, "upload", "init",
			"Failed to start upload session", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := errorMessage(resp.Body, fmt.Sprintf("Upload session request returned status %d", resp.StatusCode))
		return "", services.Wrap(services.ErrUploadInit, "upload", "init", message, nil)
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", services.Wrap(services.ErrUploadInit, "upload", "init",
			"Upload session did not return an upload URL", nil)
	}
	return sessionURL, nil
}

// transfer streams the full media body to the session URL.
func (s *Session) transfer(ctx context.Context, sessionURL, accessToken string, converted media.ConvertedMedia, onProgress ProgressFunc) (media.RemoteVideo, error) {
	reader := &progressReader{
		reader:     bytes.NewReader(converted.Data),
		total:      converted.Size(),
		onProgress: onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, reader)
	if err != nil {
		return media.RemoteVideo{}, services.Wrap(services.ErrUploadTransfer, "upload", "transfer",
			"Failed to build transfer request", err)
	}
	req.ContentLength = converted.Size()
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", converted.ContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return media.RemoteVideo{}, services.Wrap(services.ErrUploadTransfer, "upload", "transfer",
				"cancelled", nil)
		}
		return media.RemoteVideo{}, services.Wrap(services.ErrUploadTransfer, "upload", "transfer",
			"Video upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := errorMessage(resp.Body, fmt.Sprintf("Video upload returned status %d", resp.StatusCode))
		return media.RemoteVideo{}, services.Wrap(services.ErrUploadTransfer, "upload", "transfer", message, nil)
	}

	var video media.RemoteVideo
	if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
		return media.RemoteVideo{}, services.Wrap(services.ErrUploadTransfer, "upload", "transfer",
			"Failed to decode upload response", err)
	}
	return video, nil
}

// errorMessage extracts the platform's structured error message from a
// response body, falling back when the body is not parseable.
func errorMessage(body io.Reader, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return fallback
	}
	var payload platformError
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error.Message == "" {
		return fallback
	}
	return payload.Error.Message
}

// progressReader counts bytes as the HTTP client drains the request body
// and reports each measurable step.
type progressReader struct {
	reader     io.Reader
	total      int64
	uploaded   int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 {
		p.uploaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(media.TransferProgress{
				BytesUploaded: p.uploaded,
				TotalBytes:    p.total,
				Percentage:    transferPercent(p.uploaded, p.total),
			})
		}
	}
	return n, err
}

func transferPercent(uploaded, total int64) int {
	if total <= 0 {
		return 0
	}
	percent := int(uploaded * 100 / total)
	if percent > 100 {
		percent = 100
	}
	return percent
}
