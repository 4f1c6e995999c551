package pipeline

// Status is the single source of truth for what a caller should render.
// Exactly one value is active at any instant.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusLoadingEngine    Status = "loadingEngine"
	StatusConverting       Status = "converting"
	StatusAuthenticating   Status = "authenticating"
	StatusAwaitingMetadata Status = "awaitingMetadata"
	StatusUploading        Status = "uploading"
	StatusUploadComplete   Status = "uploadComplete"
	StatusFailed           Status = "failed"
)

// allowedTransitions encodes the full transition table. Anything absent
// here is an ignored trigger, not an error.
var allowedTransitions = map[Status][]Status{
	StatusIdle:             {StatusLoadingEngine, StatusAuthenticating},
	StatusLoadingEngine:    {StatusConverting, StatusFailed},
	StatusConverting:       {StatusAwaitingMetadata, StatusIdle, StatusFailed},
	StatusAuthenticating:   {StatusLoadingEngine, StatusFailed},
	StatusAwaitingMetadata: {StatusUploading, StatusIdle, StatusFailed},
	StatusUploading:        {StatusUploadComplete, StatusFailed},
	StatusUploadComplete:   {},
	StatusFailed:           {StatusIdle},
}

// canTransition reports whether moving from one status to another is part
// of the transition table.
func canTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Active reports whether the status represents in-flight pipeline work.
func (s Status) Active() bool {
	switch s {
	case StatusLoadingEngine, StatusConverting, StatusAuthenticating, StatusUploading:
		return true
	default:
		return false
	}
}

// String returns the wire form of the status.
func (s Status) String() string {
	return string(s)
}
