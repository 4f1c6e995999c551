package pipeline

import "testing"

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusIdle, StatusLoadingEngine},
		{StatusIdle, StatusAuthenticating},
		{StatusLoadingEngine, StatusConverting},
		{StatusLoadingEngine, StatusFailed},
		{StatusAuthenticating, StatusLoadingEngine},
		{StatusAuthenticating, StatusFailed},
		{StatusConverting, StatusAwaitingMetadata},
		{StatusConverting, StatusIdle},
		{StatusConverting, StatusFailed},
		{StatusAwaitingMetadata, StatusUploading},
		{StatusAwaitingMetadata, StatusIdle},
		{StatusUploading, StatusUploadComplete},
		{StatusUploading, StatusFailed},
		{StatusFailed, StatusIdle},
	}
	for _, tc := range allowed {
		if !canTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusIdle, StatusUploading},
		{StatusIdle, StatusUploadComplete},
		{StatusIdle, StatusConverting},
		{StatusUploadComplete, StatusUploading},
		{StatusUploadComplete, StatusIdle},
		{StatusFailed, StatusUploading},
		{StatusFailed, StatusConverting},
		{StatusAwaitingMetadata, StatusConverting},
	}
	for _, tc := range denied {
		if canTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}

func TestStatusActive(t *testing.T) {
	for _, status := range []Status{StatusLoadingEngine, StatusConverting, StatusAuthenticating, StatusUploading} {
		if !status.Active() {
			t.Errorf("%s should be active", status)
		}
	}
	for _, status := range []Status{StatusIdle, StatusAwaitingMetadata, StatusUploadComplete, StatusFailed} {
		if status.Active() {
			t.Errorf("%s should not be active", status)
		}
	}
}
