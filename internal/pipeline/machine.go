package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"clipcast/internal/config"
	"clipcast/internal/logging"
	"clipcast/internal/media"
	"clipcast/internal/notifications"
	"clipcast/internal/runs"
	"clipcast/internal/services"
	"clipcast/internal/tokenstore"
	"clipcast/internal/transcode"
	"clipcast/internal/upload"
)

// Engine converts recordings. Satisfied by transcode.Engine.
type Engine interface {
	Load(ctx context.Context) error
	Convert(ctx context.Context, recording media.RawRecording, onProgress transcode.ProgressFunc) (media.ConvertedMedia, error)
}

// Authenticator obtains and exposes the platform credential. Satisfied by
// google.Session.
type Authenticator interface {
	SignIn(ctx context.Context) (*tokenstore.Credential, error)
	AccessToken() string
	Authenticated() bool
}

// Uploader runs the two-phase resumable upload. Satisfied by
// upload.Session.
type Uploader interface {
	Upload(ctx context.Context, accessToken string, converted media.ConvertedMedia, meta media.PublishMetadata, onProgress upload.ProgressFunc) (media.RemoteVideo, error)
}

// Snapshot is the immutable view handed to observers on every change.
type Snapshot struct {
	Status  Status
	Percent int
	Message string
	Err     error
	Result  *media.RemoteVideo
}

// Observer receives a snapshot after each state change.
type Observer func(Snapshot)

// Machine drives one recording through conversion and publishing. It owns
// every status transition; at most one conversion and one upload are in
// flight at any time.
type Machine struct {
	cfg      *config.Config
	engine   Engine
	auth     Authenticator
	uploader Uploader
	notifier notifications.Service
	history  *runs.Store
	lock     *flock.Flock
	logger   *slog.Logger
	observer Observer

	mu         sync.Mutex
	status     Status
	percent    int
	message    string
	err        error
	result     *media.RemoteVideo
	recording  media.RawRecording
	converted  *media.ConvertedMedia
	source     string
	runID      string
	publishRun bool
}

// Option configures optional Machine behavior.
type Option func(*Machine)

// WithObserver registers the snapshot observer.
func WithObserver(observer Observer) Option {
	return func(m *Machine) { m.observer = observer }
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Machine) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithHistory records runs in the given store. The store stays owned by
// the caller.
func WithHistory(store *runs.Store) Option {
	return func(m *Machine) { m.history = store }
}

// WithRunLock guards the state directory with a file lock so only one
// pipeline runs against it at a time.
func WithRunLock() Option {
	return func(m *Machine) { m.lock = flock.New(m.cfg.RunLockPath()) }
}

// NewMachine builds a Machine in the idle status.
func NewMachine(cfg *config.Config, engine Engine, auth Authenticator, uploader Uploader, logger *slog.Logger, opts ...Option) (*Machine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	machine := &Machine{
		cfg:      cfg,
		engine:   engine,
		auth:     auth,
		uploader: uploader,
		notifier: notifications.NewService(cfg),
		logger:   logger.With(logging.String(logging.FieldComponent, "pipeline")),
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(machine)
	}

	if machine.lock != nil {
		if err := os.MkdirAll(filepath.Dir(machine.lock.Path()), 0o755); err != nil {
			return nil, fmt.Errorf("ensure state directory: %w", err)
		}
		locked, err := machine.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("another pipeline run is active (lock %s held)", machine.lock.Path())
		}
	}
	return machine, nil
}

// Close releases the run lock when one is held.
func (m *Machine) Close() error {
	if m.lock != nil {
		return m.lock.Unlock()
	}
	return nil
}

// Snapshot returns the current observable state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Status returns the current status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// RequestConvert runs a conversion-only pipeline: load the engine, convert,
// write the result next to the other outputs, and return to idle. The
// returned path is the written file. A no-op unless the machine is idle.
func (m *Machine) RequestConvert(ctx context.Context, source string, recording media.RawRecording) (string, error) {
	if !m.begin(StatusLoadingEngine, source, recording, false) {
		return "", nil
	}
	m.recordRunStart(ctx, runs.KindConvert, source)

	if err := m.engine.Load(ctx); err != nil {
		return "", m.fail(ctx, "loadingEngine", err)
	}
	m.transition(StatusConverting, 0, "Converting recording")

	converted, err := m.engine.Convert(ctx, recording, m.conversionProgress)
	if err != nil {
		return "", m.fail(ctx, "converting", err)
	}
	m.setProgress(100, "Conversion complete")

	path, err := m.writeOutput(converted.Data, outputName(source, ".mp4"))
	if err != nil {
		return "", m.fail(ctx, "converting", err)
	}

	m.recordRunSuccess(ctx, "")
	if err := m.notifier.NotifyConversionCompleted(ctx, path); err != nil {
		m.logger.Warn("conversion notification failed", logging.Error(err))
	}
	m.reset(StatusIdle)
	m.logger.Info("conversion run complete", logging.String("output", path))
	return path, nil
}

// RequestPublish starts a publish run: authenticate when needed, load the
// engine, convert, and stop at awaitingMetadata holding the converted
// media until SubmitMetadata or Cancel. A no-op unless the machine is
// idle.
func (m *Machine) RequestPublish(ctx context.Context, source string, recording media.RawRecording) error {
	first := StatusLoadingEngine
	if !m.auth.Authenticated() {
		first = StatusAuthenticating
	}
	if !m.begin(first, source, recording, true) {
		return nil
	}
	m.recordRunStart(ctx, runs.KindPublish, source)

	if first == StatusAuthenticating {
		if _, err := m.auth.SignIn(ctx); err != nil {
			return m.fail(ctx, "authenticating", err)
		}
		m.transition(StatusLoadingEngine, 0, "Preparing converter")
	}

	if err := m.engine.Load(ctx); err != nil {
		return m.fail(ctx, "loadingEngine", err)
	}
	m.transition(StatusConverting, 0, "Converting recording")

	converted, err := m.engine.Convert(ctx, recording, m.conversionProgress)
	if err != nil {
		return m.fail(ctx, "converting", err)
	}

	m.mu.Lock()
	m.converted = &converted
	m.mu.Unlock()
	m.transition(StatusAwaitingMetadata, 100, "Waiting for video details")
	return nil
}

// SubmitMetadata uploads the held converted media with the supplied video
// details. The credential is re-checked here; an absent or expired token
// fails the run. A no-op unless the machine is awaiting metadata.
func (m *Machine) SubmitMetadata(ctx context.Context, meta media.PublishMetadata) (media.RemoteVideo, error) {
	// Claim and transition under one lock so racing submissions cannot
	// both start an upload.
	m.mu.Lock()
	if m.status != StatusAwaitingMetadata || m.converted == nil {
		status := m.status
		m.mu.Unlock()
		m.logger.Debug("ignored metadata submission", logging.String(logging.FieldStatus, string(status)))
		return media.RemoteVideo{}, nil
	}
	converted := *m.converted
	m.status = StatusUploading
	m.percent = 0
	m.message = "Uploading video"
	m.mu.Unlock()
	m.notify()

	token := m.auth.AccessToken()
	if token == "" {
		err := services.Wrap(services.ErrExpiredToken, "uploading", "check credential",
			"Your session has expired. Please sign in again.", nil)
		return media.RemoteVideo{}, m.fail(ctx, "uploading", err)
	}

	video, err := m.uploader.Upload(ctx, token, converted, meta, m.uploadProgress)
	if err != nil {
		return media.RemoteVideo{}, m.fail(ctx, "uploading", err)
	}

	m.mu.Lock()
	m.converted = nil
	m.result = &video
	m.mu.Unlock()
	m.transition(StatusUploadComplete, 100, "Upload complete")

	m.recordRunSuccess(ctx, video.ID)
	if err := m.notifier.NotifyPublishCompleted(ctx, video.Snippet.Title, video.WatchURL()); err != nil {
		m.logger.Warn("publish notification failed", logging.Error(err))
	}
	m.logger.Info("publish run complete", logging.String("video_id", video.ID))
	return video, nil
}

// Cancel abandons a publish run waiting for metadata, discarding the held
// converted media. A no-op unless the machine is awaiting metadata.
func (m *Machine) Cancel(ctx context.Context) {
	m.mu.Lock()
	if m.status != StatusAwaitingMetadata {
		m.mu.Unlock()
		return
	}
	runID := m.runID
	m.resetLocked(StatusIdle)
	m.mu.Unlock()
	m.notify()

	m.finishRun(ctx, runID, "cancelled")
	m.logger.Info("publish run cancelled")
}

// Retry resets a failed run back to idle, clearing the error, progress,
// and any held converted media. A no-op unless the machine is failed.
func (m *Machine) Retry() {
	m.mu.Lock()
	if m.status != StatusFailed {
		m.mu.Unlock()
		return
	}
	m.resetLocked(StatusIdle)
	m.mu.Unlock()
	m.notify()
	m.logger.Info("pipeline reset for retry")
}

// DownloadFallback saves whatever media the failed run still holds, the
// converted output when present, otherwise the raw recording, then resets
// to idle. A no-op unless the machine is failed.
func (m *Machine) DownloadFallback(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.status != StatusFailed {
		m.mu.Unlock()
		return "", nil
	}
	converted := m.converted
	recording := m.recording
	source := m.source
	m.mu.Unlock()

	var path string
	var err error
	if converted != nil {
		path, err = m.writeOutput(converted.Data, outputName(source, ".mp4"))
	} else {
		path, err = m.writeOutput(recording.Data, outputName(source, rawExtension(recording.ContentType())))
	}
	if err != nil {
		return "", fmt.Errorf("fallback download: %w", err)
	}

	m.reset(StatusIdle)
	m.logger.Info("fallback download written", logging.String("output", path))
	return path, nil
}

// begin claims the machine for a new run. Returns false when the trigger
// does not apply to the current status.
func (m *Machine) begin(first Status, source string, recording media.RawRecording, publish bool) bool {
	m.mu.Lock()
	if m.status != StatusIdle || !canTransition(m.status, first) {
		status := m.status
		m.mu.Unlock()
		m.logger.Debug("ignored run request", logging.String(logging.FieldStatus, string(status)))
		return false
	}
	m.status = first
	m.percent = 0
	m.message = initialMessage(first)
	m.err = nil
	m.result = nil
	m.converted = nil
	m.recording = recording
	m.source = source
	m.publishRun = publish
	m.mu.Unlock()
	m.notify()
	return true
}

func initialMessage(status Status) string {
	if status == StatusAuthenticating {
		return "Signing in"
	}
	return "Preparing converter"
}

// transition moves to the next status when the table allows it.
func (m *Machine) transition(to Status, percent int, message string) {
	m.mu.Lock()
	if !canTransition(m.status, to) {
		from := m.status
		m.mu.Unlock()
		m.logger.Debug("ignored transition",
			logging.String("from", string(from)), logging.String("to", string(to)))
		return
	}
	m.status = to
	m.percent = percent
	m.message = message
	m.mu.Unlock()
	m.notify()
}

// reset returns to idle discarding run state. Used by retry, cancel, and
// run completion.
func (m *Machine) reset(to Status) {
	m.mu.Lock()
	m.resetLocked(to)
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) resetLocked(to Status) {
	m.status = to
	m.percent = 0
	m.message = ""
	m.err = nil
	m.converted = nil
	m.recording = media.RawRecording{}
	m.source = ""
	m.runID = ""
	m.publishRun = false
}

// fail moves the machine to failed carrying the stage's message.
func (m *Machine) fail(ctx context.Context, stage string, err error) error {
	m.mu.Lock()
	m.status = StatusFailed
	m.err = err
	m.message = services.UserMessage(err)
	m.mu.Unlock()
	m.notify()

	m.recordRunFailure(ctx, services.UserMessage(err))
	if notifyErr := m.notifier.NotifyPipelineFailed(ctx, stage, err); notifyErr != nil {
		m.logger.Warn("failure notification failed", logging.Error(notifyErr))
	}
	m.logger.Error("pipeline run failed",
		logging.String(logging.FieldStage, stage), logging.Error(err))
	return err
}

func (m *Machine) setProgress(percent int, message string) {
	m.mu.Lock()
	m.percent = percent
	if message != "" {
		m.message = message
	}
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) conversionProgress(percent int) {
	m.setProgress(percent, "")
}

func (m *Machine) uploadProgress(progress media.TransferProgress) {
	m.setProgress(progress.Percentage, "")
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		Status:  m.status,
		Percent: m.percent,
		Message: m.message,
		Err:     m.err,
		Result:  m.result,
	}
}

func (m *Machine) notify() {
	if m.observer == nil {
		return
	}
	m.mu.Lock()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	m.observer(snapshot)
}

func (m *Machine) writeOutput(data []byte, name string) (string, error) {
	dir := m.cfg.Paths.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}

func (m *Machine) recordRunStart(ctx context.Context, kind runs.Kind, source string) {
	if m.history == nil {
		return
	}
	run, err := m.history.Begin(ctx, kind, source)
	if err != nil {
		m.logger.Warn("record run start failed", logging.Error(err))
		return
	}
	m.mu.Lock()
	m.runID = run.ID
	m.mu.Unlock()
}

func (m *Machine) recordRunSuccess(ctx context.Context, videoID string) {
	m.mu.Lock()
	runID := m.runID
	m.mu.Unlock()
	if m.history == nil || runID == "" {
		return
	}
	if err := m.history.Complete(ctx, runID, videoID); err != nil {
		m.logger.Warn("record run completion failed", logging.Error(err))
	}
}

func (m *Machine) recordRunFailure(ctx context.Context, message string) {
	m.mu.Lock()
	runID := m.runID
	m.mu.Unlock()
	m.finishRun(ctx, runID, message)
}

// finishRun records a terminal failure for a run whose id was captured
// before the machine state was reset.
func (m *Machine) finishRun(ctx context.Context, runID, message string) {
	if m.history == nil || runID == "" {
		return
	}
	if err := m.history.Fail(ctx, runID, message); err != nil {
		m.logger.Warn("record run failure failed", logging.Error(err))
	}
}

// outputName derives a target filename from the run's source path.
func outputName(source, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "clipcast-" + time.Now().UTC().Format("20060102-150405")
	}
	return base + ext
}

func rawExtension(contentType string) string {
	switch {
	case strings.Contains(contentType, "webm"):
		return ".webm"
	case strings.Contains(contentType, "mp4"):
		return ".mp4"
	case strings.Contains(contentType, "matroska"):
		return ".mkv"
	default:
		return ".bin"
	}
}
