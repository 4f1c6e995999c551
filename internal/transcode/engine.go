package transcode

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipcast/internal/config"
	"clipcast/internal/logging"
	"clipcast/internal/media"
	"clipcast/internal/services"
)

var commandContext = exec.CommandContext

// ProgressFunc receives normalized conversion percentages in [0,100].
type ProgressFunc func(percent int)

// Engine converts raw recordings through the codec runtime.
type Engine struct {
	runtime   *Runtime
	codec     string
	reference int64
	logger    *slog.Logger
}

// NewEngine builds an Engine over the given runtime.
func NewEngine(cfg *config.Config, runtime *Runtime, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		runtime:   runtime,
		codec:     cfg.Transcode.VideoCodec,
		reference: cfg.Transcode.ProgressReference,
		logger:    logger.With(logging.String(logging.FieldComponent, "transcode")),
	}
}

// Load initializes the codec runtime. Idempotent.
func (e *Engine) Load(ctx context.Context) error {
	return e.runtime.Load(ctx)
}

// Convert transcodes the recording into MP4. Progress samples from the
// runtime are normalized and clamped before reaching onProgress. The
// operation is not cancelable once started: the runtime runs to completion
// or failure regardless of ctx cancellation.
func (e *Engine) Convert(ctx context.Context, recording media.RawRecording, onProgress ProgressFunc) (media.ConvertedMedia, error) {
	if !e.runtime.Loaded() {
		return media.ConvertedMedia{}, services.Wrap(services.ErrConversion, "transcode", "convert",
			"Codec runtime not loaded", nil)
	}
	if recording.Size() == 0 {
		return media.ConvertedMedia{}, services.Wrap(services.ErrConversion, "transcode", "convert",
			"Recording is empty", nil)
	}

	workDir, err := os.MkdirTemp("", "clipcast-convert-")
	if err != nil {
		return media.ConvertedMedia{}, services.Wrap(services.ErrConversion, "transcode", "prepare",
			"Failed to create working directory", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input"+extensionFor(recording.ContentType()))
	outputPath := filepath.Join(workDir, "output.mp4")

	if err := os.WriteFile(inputPath, recording.Data, 0o600); err != nil {
		return media.ConvertedMedia{}, services.Wrap(services.ErrConversion, "transcode", "prepare",
			"Failed to write recording to working storage", err)
	}

	if err := e.run(ctx, inputPath, outputPath, onProgress); err != nil {
		return media.ConvertedMedia{}, err
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return media.ConvertedMedia{}, services.Wrap(services.ErrConversion, "transcode", "read output",
			"Failed to read converted file", err)
	}
	if len(data) == 0 {
		return media.ConvertedMedia{}, services.Wrap(services.ErrConversion, "transcode", "read output",
			"Converted file is empty", nil)
	}

	e.logger.Info("conversion complete", logging.Int("output_bytes", len(data)))
	return media.ConvertedMedia{Data: data, MIMEType: media.DefaultMIMEType}, nil
}

// run executes the fixed transcode operation and streams progress. The
// child process is detached from ctx cancellation on purpose.
func (e *Engine) run(ctx context.Context, inputPath, outputPath string, onProgress ProgressFunc) error {
	args := []string{
		"--module", e.runtime.ModulePath(),
		"-i", inputPath,
		"-c:v", e.codec,
		outputPath,
	}
	cmd := commandContext(context.WithoutCancel(ctx), e.runtime.HostPath(), args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrConversion, "transcode", "exec", "stdout pipe", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrConversion, "transcode", "exec",
			"Failed to start codec runtime", err)
	}

	sampler := logging.NewProgressSampler(10)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		var payload struct {
			Progress *int64 `json:"progress"`
			Message  string `json:"message"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		if payload.Progress == nil {
			continue
		}
		percent := normalizePercent(*payload.Progress, e.reference)
		if sampler.ShouldLog(percent, "converting") {
			e.logger.Debug("conversion progress", logging.Int(logging.FieldPercent, percent))
		}
		if onProgress != nil {
			onProgress(percent)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return services.Wrap(services.ErrConversion, "transcode", "exec",
			"Failed to read runtime output", err)
	}

	if err := cmd.Wait(); err != nil {
		return services.Wrap(services.ErrConversion, "transcode", "exec",
			fmt.Sprintf("Conversion failed: %v", err), nil)
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "mp4"):
		return ".mp4"
	case strings.Contains(mimeType, "matroska"):
		return ".mkv"
	default:
		return ".bin"
	}
}
