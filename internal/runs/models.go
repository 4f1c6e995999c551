package runs

import "time"

// Kind distinguishes convert-only runs from full publish runs.
type Kind string

const (
	KindConvert Kind = "convert"
	KindPublish Kind = "publish"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded pipeline run.
type Run struct {
	ID           string
	Kind         Kind
	Status       Status
	Source       string
	VideoID      string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Terminal reports whether the run has finished.
func (r Run) Terminal() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}
