package media

import (
	"strings"
	"testing"
)

func TestPublishMetadataNormalizedTrims(t *testing.T) {
	meta := PublishMetadata{
		Title:         "  Weekly Demo  ",
		Description:   "\n\tRecorded walkthrough \n",
		PrivacyStatus: PrivacyUnlisted,
	}

	normalized := meta.Normalized()
	if normalized.Title != "Weekly Demo" {
		t.Fatalf("title not trimmed: %q", normalized.Title)
	}
	if normalized.Description != "Recorded walkthrough" {
		t.Fatalf("description not trimmed: %q", normalized.Description)
	}
}

func TestPublishMetadataValidate(t *testing.T) {
	cases := []struct {
		name    string
		meta    PublishMetadata
		wantErr bool
	}{
		{
			name:    "valid",
			meta:    PublishMetadata{Title: "Demo", PrivacyStatus: PrivacyPrivate},
			wantErr: false,
		},
		{
			name:    "empty title",
			meta:    PublishMetadata{Title: "   ", PrivacyStatus: PrivacyPublic},
			wantErr: true,
		},
		{
			name:    "title too long",
			meta:    PublishMetadata{Title: strings.Repeat("x", 101), PrivacyStatus: PrivacyPublic},
			wantErr: true,
		},
		{
			name:    "multibyte title at the character limit",
			meta:    PublishMetadata{Title: strings.Repeat("ü", 100), PrivacyStatus: PrivacyPublic},
			wantErr: false,
		},
		{
			name:    "multibyte title over the character limit",
			meta:    PublishMetadata{Title: strings.Repeat("ü", 101), PrivacyStatus: PrivacyPublic},
			wantErr: true,
		},
		{
			name:    "multibyte description at the character limit",
			meta:    PublishMetadata{Title: "Demo", Description: strings.Repeat("é", 5000), PrivacyStatus: PrivacyPublic},
			wantErr: false,
		},
		{
			name:    "description too long",
			meta:    PublishMetadata{Title: "Demo", Description: strings.Repeat("d", 5001), PrivacyStatus: PrivacyPublic},
			wantErr: true,
		},
		{
			name:    "unknown privacy",
			meta:    PublishMetadata{Title: "Demo", PrivacyStatus: PrivacyStatus("friends")},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.meta.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParsePrivacyStatus(t *testing.T) {
	status, err := ParsePrivacyStatus(" Unlisted ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if status != PrivacyUnlisted {
		t.Fatalf("unexpected status %q", status)
	}

	if _, err := ParsePrivacyStatus("secret"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestContentTypeDefaults(t *testing.T) {
	raw := RawRecording{Data: []byte{1, 2, 3}}
	if raw.ContentType() != DefaultMIMEType {
		t.Fatalf("raw default content type: %q", raw.ContentType())
	}
	if raw.Size() != 3 {
		t.Fatalf("raw size: %d", raw.Size())
	}

	converted := ConvertedMedia{Data: []byte{1}, MIMEType: "video/mp4"}
	if converted.ContentType() != "video/mp4" {
		t.Fatalf("converted content type: %q", converted.ContentType())
	}
}

func TestWatchURL(t *testing.T) {
	if url := (RemoteVideo{}).WatchURL(); url != "" {
		t.Fatalf("expected empty url, got %q", url)
	}
	v := RemoteVideo{ID: "abc123"}
	if got := v.WatchURL(); got != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("unexpected url %q", got)
	}
}
