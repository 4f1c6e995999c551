package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clipcast/internal/config"
	"clipcast/internal/logging"
	"clipcast/internal/media"
	"clipcast/internal/pipeline"
	"clipcast/internal/runs"
	"clipcast/internal/services/google"
	"clipcast/internal/tokenstore"
	"clipcast/internal/transcode"
	"clipcast/internal/upload"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logPath := filepath.Join(cfg.Paths.LogDir, "clipcast.log")
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{logPath},
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) tokenStore() (*tokenstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return tokenstore.New(cfg.CredentialPath()), nil
}

func (c *commandContext) authSession() (*google.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	tokens, err := c.tokenStore()
	if err != nil {
		return nil, err
	}
	provider := google.NewBrowserProvider(cfg.Google.AuthEndpoint, cfg.Google.RevokeEndpoint, cfg.Google.CallbackBind)
	return google.NewSession(cfg, provider, tokens, logger), nil
}

// buildMachine wires the full pipeline. The returned cleanup releases the
// run lock and closes the history store.
func (c *commandContext) buildMachine(observer pipeline.Observer) (*pipeline.Machine, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	session, err := c.authSession()
	if err != nil {
		return nil, nil, err
	}
	runtime := transcode.NewRuntime(cfg, logger)
	engine := transcode.NewEngine(cfg, runtime, logger)
	uploader := upload.NewSession(cfg, logger)

	history, err := runs.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open run history: %w", err)
	}

	machine, err := pipeline.NewMachine(cfg, engine, session, uploader, logger,
		pipeline.WithObserver(observer),
		pipeline.WithHistory(history),
		pipeline.WithRunLock(),
	)
	if err != nil {
		history.Close()
		return nil, nil, err
	}

	cleanup := func() {
		machine.Close()
		history.Close()
	}
	return machine, cleanup, nil
}

// readRecording loads a capture file into a raw recording, inferring the
// MIME type from the extension.
func readRecording(path string) (media.RawRecording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return media.RawRecording{}, fmt.Errorf("read recording: %w", err)
	}
	if len(data) == 0 {
		return media.RawRecording{}, fmt.Errorf("recording %s is empty", path)
	}
	return media.RawRecording{Data: data, MIMEType: mimeForExtension(filepath.Ext(path))}, nil
}

func mimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	default:
		return ""
	}
}
