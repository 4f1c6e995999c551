package config

const (
	defaultStateDir  = "~/.local/share/clipcast"
	defaultOutputDir = "~/clipcast"
	defaultLogDir    = "~/.local/share/clipcast/logs"

	defaultUploadScope    = "https://www.googleapis.com/auth/youtube.upload"
	defaultAuthEndpoint   = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultRevokeEndpoint = "https://oauth2.googleapis.com/revoke"
	defaultLoadTimeout    = 10
	defaultReadyTimeout   = 5
	defaultSignInTimeout  = 120
	defaultCallbackBind   = "127.0.0.1:0"

	defaultRuntimeBaseURL    = "https://unpkg.com/@ffmpeg/core@0.12.6/dist/esm"
	defaultRuntimeCacheDir   = "~/.cache/clipcast/runtime"
	defaultDownloadTimeout   = 300
	defaultProgressReference = 2_500_000
	defaultVideoCodec        = "libx264"

	defaultUploadEndpoint    = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultUploadInitTimeout = 30

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Google: Google{
			Scope:          defaultUploadScope,
			AuthEndpoint:   defaultAuthEndpoint,
			RevokeEndpoint: defaultRevokeEndpoint,
			LoadTimeout:    defaultLoadTimeout,
			ReadyTimeout:   defaultReadyTimeout,
			SignInTimeout:  defaultSignInTimeout,
			CallbackBind:   defaultCallbackBind,
		},
		Transcode: Transcode{
			RuntimeBaseURL:    defaultRuntimeBaseURL,
			CacheDir:          defaultRuntimeCacheDir,
			DownloadTimeout:   defaultDownloadTimeout,
			ProgressReference: defaultProgressReference,
			VideoCodec:        defaultVideoCodec,
		},
		Upload: Upload{
			Endpoint:    defaultUploadEndpoint,
			InitTimeout: defaultUploadInitTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			PublishEvents:  true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
