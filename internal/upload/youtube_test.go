package upload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"article-video-pipeline/internal/types"
)

func TestMetadataFor(t *testing.T) {
	report := &types.RunReport{Title: "Storm hits coast"}
	meta := MetadataFor(report, "https://news.example.com/storm")
	if meta.Title != "Storm hits coast" {
		t.Errorf("title = %q", meta.Title)
	}
	if !strings.Contains(meta.Description, "https://news.example.com/storm") {
		t.Errorf("description missing source URL: %q", meta.Description)
	}
	if len(meta.Tags) == 0 {
		t.Error("expected default tags")
	}
}

func TestLogUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	meta := Metadata{Title: "Storm hits coast"}

	if err := LogUpload(dir, "abc123", "https://www.youtube.com/watch?v=abc123", meta); err != nil {
		t.Fatalf("LogUpload: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "upload_") {
		t.Fatalf("unexpected log dir contents: %v", entries)
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("log entry not valid json: %v", err)
	}
	if got["video_id"] != "abc123" {
		t.Errorf("video_id = %q", got["video_id"])
	}
	if got["title"] != "Storm hits coast" {
		t.Errorf("title = %q", got["title"])
	}
	if got["uploaded_at"] == "" {
		t.Error("uploaded_at missing")
	}
}
