package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "trims and drops empty", in: []string{" math ", "", "  "}, want: []string{"math"}},
		{name: "dedupes keeping order", in: []string{"b", "a", "b", "c", "a"}, want: []string{"b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags("go, sqlite,,go ")
	if len(got) != 2 || got[0] != "go" || got[1] != "sqlite" {
		t.Errorf("Unexpected tags %v", got)
	}
	if got := ParseTags("   "); len(got) != 0 {
		t.Errorf("Expected no tags, got %v", got)
	}
}

func TestNotePreview(t *testing.T) {
	note := Note{Content: "héllo world"}
	if got := note.Preview(5); got != "héllo..." {
		t.Errorf("Unexpected preview %q", got)
	}
	if got := note.Preview(100); got != "héllo world" {
		t.Errorf("Unexpected preview %q", got)
	}
}

func TestNoteMetadata(t *testing.T) {
	note := Note{Title: "Calculus", Tags: []string{"math", "school"}}
	meta := note.Metadata()
	if meta["title"] != "Calculus" || meta["tags"] != "math,school" {
		t.Errorf("Unexpected metadata %v", meta)
	}
}

func TestSearchResultJSON(t *testing.T) {
	note := Note{
		ID:        "abc",
		Title:     "Calculus",
		Content:   "Derivative rules",
		Tags:      []string{"math"},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(NewSearchResult(note, 0.8734))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if raw["id"] != "abc" || raw["title"] != "Calculus" {
		t.Errorf("Note fields should be flattened, got %v", raw)
	}
	if raw["similarity_percentage"] != "87.3%" {
		t.Errorf("Unexpected percentage %v", raw["similarity_percentage"])
	}
}
