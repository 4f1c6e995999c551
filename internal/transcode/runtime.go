package transcode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"clipcast/internal/config"
	"clipcast/internal/logging"
	"clipcast/internal/services"
)

const (
	// hostAssetName is the native runtime host executable.
	hostAssetName = "ffmpeg-core"
	// moduleAssetName is the codec module the host loads.
	moduleAssetName = "ffmpeg-core.wasm"
)

// HTTPDoer describes the HTTP client used for asset downloads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Runtime fetches and caches the codec runtime assets.
type Runtime struct {
	baseURL  string
	cacheDir string
	timeout  time.Duration
	client   HTTPDoer
	logger   *slog.Logger

	mu     sync.Mutex
	loaded bool
}

// RuntimeOption customises Runtime construction.
type RuntimeOption func(*Runtime)

// WithHTTPClient overrides the HTTP client used for asset downloads.
func WithHTTPClient(client HTTPDoer) RuntimeOption {
	return func(r *Runtime) {
		if client != nil {
			r.client = client
		}
	}
}

// NewRuntime builds a Runtime from configuration.
func NewRuntime(cfg *config.Config, logger *slog.Logger, opts ...RuntimeOption) *Runtime {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Transcode.DownloadTimeout) * time.Second
	runtime := &Runtime{
		baseURL:  cfg.Transcode.RuntimeBaseURL,
		cacheDir: cfg.Transcode.CacheDir,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(logging.String(logging.FieldComponent, "transcode")),
	}
	for _, opt := range opts {
		opt(runtime)
	}
	return runtime
}

// HostPath returns the cached host executable path.
func (r *Runtime) HostPath() string {
	return filepath.Join(r.cacheDir, hostAssetName)
}

// ModulePath returns the cached codec module path.
func (r *Runtime) ModulePath() string {
	return filepath.Join(r.cacheDir, moduleAssetName)
}

// Load fetches and initializes the codec runtime. The first successful call
// does the work; subsequent calls are no-ops.
func (r *Runtime) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return services.Wrap(services.ErrInitialization, "transcode", "prepare cache",
			"Failed to create runtime cache directory", err)
	}

	assets := []struct {
		name string
		path string
		mode os.FileMode
	}{
		{hostAssetName, r.HostPath(), 0o755},
		{moduleAssetName, r.ModulePath(), 0o644},
	}

	for _, asset := range assets {
		if info, err := os.Stat(asset.path); err == nil && info.Size() > 0 {
			continue
		}
		if err := r.fetchAsset(ctx, asset.name, asset.path, asset.mode); err != nil {
			return services.Wrap(services.ErrInitialization, "transcode", "fetch runtime",
				fmt.Sprintf("Failed to load codec runtime asset %s", asset.name), err)
		}
	}

	r.loaded = true
	r.logger.Info("codec runtime ready", logging.String("cache_dir", r.cacheDir))
	return nil
}

// Loaded reports whether the runtime has been initialized.
func (r *Runtime) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// fetchAsset downloads one runtime asset to a temporary file, then renames
// it into place so a partial download never looks cached.
func (r *Runtime) fetchAsset(ctx context.Context, name, target string, mode os.FileMode) error {
	url := r.baseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(r.cacheDir, name+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}

	r.logger.Info("runtime asset fetched",
		logging.String("asset", name),
		logging.String("size", humanize.Bytes(uint64(written))))
	return nil
}
