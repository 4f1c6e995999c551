package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// StateDir holds the credential file, run lock, and run history database.
	StateDir string `toml:"state_dir"`
	// OutputDir receives converted and fallback downloads.
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Google contains configuration for the identity provider token flow.
type Google struct {
	ClientID       string `toml:"client_id"`
	Scope          string `toml:"scope"`
	AuthEndpoint   string `toml:"auth_endpoint"`
	RevokeEndpoint string `toml:"revoke_endpoint"`
	// LoadTimeout bounds the wait for the provider client to become
	// reachable, in seconds.
	LoadTimeout int `toml:"load_timeout"`
	// ReadyTimeout is the additional wait for the token client object after
	// the provider reports loaded, in seconds.
	ReadyTimeout int `toml:"ready_timeout"`
	// SignInTimeout bounds the consent flow, in seconds. No callback within
	// this window fails the sign-in.
	SignInTimeout int `toml:"sign_in_timeout"`
	// CallbackBind is the loopback address the consent redirect lands on.
	CallbackBind string `toml:"callback_bind"`
}

// Transcode contains configuration for the codec runtime and conversion.
type Transcode struct {
	// RuntimeBaseURL is where the two codec runtime assets are fetched from.
	RuntimeBaseURL string `toml:"runtime_base_url"`
	CacheDir       string `toml:"cache_dir"`
	// DownloadTimeout bounds each runtime asset fetch, in seconds.
	DownloadTimeout int `toml:"download_timeout"`
	// ProgressReference is the empirical magnitude raw encoder progress
	// samples are normalized against. Encoder and version dependent; retune
	// rather than trust it across runtime upgrades.
	ProgressReference int64 `toml:"progress_reference"`
	VideoCodec        string `toml:"video_codec"`
}

// Upload contains configuration for the resumable upload protocol.
type Upload struct {
	Endpoint string `toml:"endpoint"`
	// InitTimeout bounds the session initialization request, in seconds.
	InitTimeout int `toml:"init_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	PublishEvents  bool   `toml:"publish_events"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipcast.
//
// Configuration sections by subsystem:
//   - Paths: state, output, and log directories
//   - Google: identity provider client and token flow timeouts
//   - Transcode: codec runtime assets and progress normalization
//   - Upload: resumable upload endpoint
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Google        Google        `toml:"google"`
	Transcode     Transcode     `toml:"transcode"`
	Upload        Upload        `toml:"upload"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipcast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.OutputDir, c.Transcode.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CredentialPath is the file the token store persists the credential to.
func (c *Config) CredentialPath() string {
	return filepath.Join(c.Paths.StateDir, "youtube_auth.json")
}

// RunLockPath guards against concurrent pipeline runs over the same state.
func (c *Config) RunLockPath() string {
	return filepath.Join(c.Paths.StateDir, "clipcast.lock")
}

// RunsDBPath is the pipeline run history database.
func (c *Config) RunsDBPath() string {
	return filepath.Join(c.Paths.StateDir, "runs.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
