package transcode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"clipcast/internal/config"
	"clipcast/internal/services"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Transcode.RuntimeBaseURL = baseURL
	cfg.Transcode.CacheDir = t.TempDir()
	return &cfg
}

func TestRuntimeLoadFetchesBothAssets(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/" + hostAssetName:
			w.Write([]byte("host-binary"))
		case "/" + moduleAssetName:
			w.Write([]byte("module-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	runtime := NewRuntime(testConfig(t, server.URL), nil)
	if runtime.Loaded() {
		t.Fatal("runtime reported loaded before Load")
	}
	if err := runtime.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !runtime.Loaded() {
		t.Fatal("runtime not loaded after Load")
	}
	if got := requests.Load(); got != 2 {
		t.Fatalf("expected 2 asset fetches, got %d", got)
	}

	host, err := os.Stat(runtime.HostPath())
	if err != nil {
		t.Fatalf("host asset missing: %v", err)
	}
	if host.Mode().Perm()&0o100 == 0 {
		t.Fatalf("host asset not executable: %v", host.Mode())
	}
	if _, err := os.Stat(runtime.ModulePath()); err != nil {
		t.Fatalf("module asset missing: %v", err)
	}

	// Second call must not refetch.
	if err := runtime.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Fatalf("second Load refetched assets: %d requests", got)
	}
}

func TestRuntimeLoadSkipsCachedAssets(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	runtime := NewRuntime(cfg, nil)
	if err := os.WriteFile(runtime.HostPath(), []byte("cached-host"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := runtime.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("expected only the module fetch, got %d requests", got)
	}
	data, err := os.ReadFile(runtime.HostPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "cached-host" {
		t.Fatalf("cached host asset was overwritten: %q", data)
	}
}

func TestRuntimeLoadFailureIsInitializationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	runtime := NewRuntime(testConfig(t, server.URL), nil)
	err := runtime.Load(context.Background())
	if err == nil {
		t.Fatal("expected Load to fail")
	}
	if !errors.Is(err, services.ErrInitialization) {
		t.Fatalf("expected initialization error, got %v", err)
	}
	if runtime.Loaded() {
		t.Fatal("runtime reported loaded after failure")
	}

	// Failure leaves no partial asset behind.
	if _, statErr := os.Stat(runtime.HostPath()); !os.IsNotExist(statErr) {
		t.Fatalf("partial host asset left in cache: %v", statErr)
	}
}
