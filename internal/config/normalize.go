package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGoogle()
	if err := c.normalizeTranscode(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGoogle() {
	c.Google.ClientID = strings.TrimSpace(c.Google.ClientID)
	if c.Google.ClientID == "" {
		if value, ok := os.LookupEnv("GOOGLE_CLIENT_ID"); ok {
			c.Google.ClientID = strings.TrimSpace(value)
		}
	}
	c.Google.Scope = strings.TrimSpace(c.Google.Scope)
	if c.Google.Scope == "" {
		c.Google.Scope = defaultUploadScope
	}
	c.Google.AuthEndpoint = strings.TrimSpace(c.Google.AuthEndpoint)
	if c.Google.AuthEndpoint == "" {
		c.Google.AuthEndpoint = defaultAuthEndpoint
	}
	c.Google.RevokeEndpoint = strings.TrimSpace(c.Google.RevokeEndpoint)
	if c.Google.RevokeEndpoint == "" {
		c.Google.RevokeEndpoint = defaultRevokeEndpoint
	}
	if c.Google.LoadTimeout <= 0 {
		c.Google.LoadTimeout = defaultLoadTimeout
	}
	if c.Google.ReadyTimeout <= 0 {
		c.Google.ReadyTimeout = defaultReadyTimeout
	}
	if c.Google.SignInTimeout <= 0 {
		c.Google.SignInTimeout = defaultSignInTimeout
	}
	c.Google.CallbackBind = strings.TrimSpace(c.Google.CallbackBind)
	if c.Google.CallbackBind == "" {
		c.Google.CallbackBind = defaultCallbackBind
	}
}

func (c *Config) normalizeTranscode() error {
	c.Transcode.RuntimeBaseURL = strings.TrimRight(strings.TrimSpace(c.Transcode.RuntimeBaseURL), "/")
	if c.Transcode.RuntimeBaseURL == "" {
		c.Transcode.RuntimeBaseURL = defaultRuntimeBaseURL
	}
	if strings.TrimSpace(c.Transcode.CacheDir) == "" {
		c.Transcode.CacheDir = defaultRuntimeCacheDir
	}
	var err error
	if c.Transcode.CacheDir, err = expandPath(c.Transcode.CacheDir); err != nil {
		return fmt.Errorf("transcode.cache_dir: %w", err)
	}
	if c.Transcode.DownloadTimeout <= 0 {
		c.Transcode.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Transcode.ProgressReference <= 0 {
		c.Transcode.ProgressReference = defaultProgressReference
	}
	c.Transcode.VideoCodec = strings.TrimSpace(c.Transcode.VideoCodec)
	if c.Transcode.VideoCodec == "" {
		c.Transcode.VideoCodec = defaultVideoCodec
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.Endpoint = strings.TrimRight(strings.TrimSpace(c.Upload.Endpoint), "/")
	if c.Upload.Endpoint == "" {
		c.Upload.Endpoint = defaultUploadEndpoint
	}
	if c.Upload.InitTimeout <= 0 {
		c.Upload.InitTimeout = defaultUploadInitTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
