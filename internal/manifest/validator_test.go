package manifest

import (
	"encoding/json"
	"strings"
	"testing"
)

func validPayload() string {
	return `{
		"files": ["ch1.txt", "ch2.txt"],
		"source_lang": "es",
		"target_lang": "en",
		"provider": "gemini",
		"model": "gemini-2.0-flash",
		"custom_terms": "- reino: realm",
		"segment_size": 4000
	}`
}

func TestValidateAcceptsFullManifest(t *testing.T) {
	t.Parallel()

	m, err := Validate(json.RawMessage(validPayload()))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(m.Files) != 2 || m.Files[0] != "ch1.txt" {
		t.Fatalf("unexpected files: %v", m.Files)
	}
	if m.SourceLang != "es" || m.TargetLang != "en" {
		t.Fatalf("unexpected languages: %s -> %s", m.SourceLang, m.TargetLang)
	}
	if m.SegmentSize != 4000 {
		t.Fatalf("unexpected segment size: %d", m.SegmentSize)
	}
}

func TestValidateAcceptsAutoSource(t *testing.T) {
	t.Parallel()

	payload := `{"files": ["ch1.txt"], "source_lang": "auto", "target_lang": "en"}`
	m, err := Validate(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.SourceLang != "auto" {
		t.Fatalf("unexpected source: %q", m.SourceLang)
	}
}

func TestValidateRejectsInvalidPayloads(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "missing files",
			payload: `{"source_lang": "es", "target_lang": "en"}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "empty files",
			payload: `{"files": [], "source_lang": "es", "target_lang": "en"}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "unknown field",
			payload: `{"files": ["a.txt"], "source_lang": "es", "target_lang": "en", "priority": 3}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "path traversal",
			payload: `{"files": ["../a.txt"], "source_lang": "es", "target_lang": "en"}`,
			wantErr: "bare name",
		},
		{
			name:    "duplicate file",
			payload: `{"files": ["a.txt", "a.txt"], "source_lang": "es", "target_lang": "en"}`,
			wantErr: "more than once",
		},
		{
			name:    "unsupported target",
			payload: `{"files": ["a.txt"], "source_lang": "es", "target_lang": "zz"}`,
			wantErr: "unsupported target language",
		},
		{
			name:    "same language pair",
			payload: `{"files": ["a.txt"], "source_lang": "en", "target_lang": "en"}`,
			wantErr: "must differ",
		},
		{
			name:    "negative segment size",
			payload: `{"files": ["a.txt"], "source_lang": "es", "target_lang": "en", "segment_size": -1}`,
			wantErr: "schema validation failed",
		},
		{
			name:    "trailing document",
			payload: `{"files": ["a.txt"], "source_lang": "es", "target_lang": "en"} {"extra": true}`,
			wantErr: "single JSON document",
		},
		{
			name:    "not json",
			payload: `files: [a.txt]`,
			wantErr: "decode manifest JSON",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Validate(json.RawMessage(tc.payload))
			if err == nil {
				t.Fatalf("expected an error for %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("unexpected error: got %v want substring %q", err, tc.wantErr)
			}
		})
	}
}
