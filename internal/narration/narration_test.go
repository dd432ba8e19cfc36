package narration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

type fakeSpeech struct {
	err   error
	texts []string
}

func (f *fakeSpeech) SynthesizeSegment(ctx context.Context, text, outPath string) error {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("audio"), 0644)
}

func testGenerator(tts speech, durations map[string]float64) *Generator {
	return &Generator{
		tts: tts,
		probe: func(ctx context.Context, path string) (float64, error) {
			if d, ok := durations[filepath.Base(path)]; ok {
				return d, nil
			}
			return 2.0, nil
		},
		concat: func(ctx context.Context, parts []string, outPath string) error {
			return os.WriteFile(outPath, []byte("joined"), 0644)
		},
	}
}

func TestGenerate(t *testing.T) {
	tts := &fakeSpeech{}
	g := testGenerator(tts, map[string]float64{
		"seg_000.mp3": 3.5,
		"seg_001.mp3": 4.25,
	})

	segments := []types.ScriptSegment{
		{Text: "First sentence.", SequenceIndex: 1},
		{Text: "Second sentence.", SequenceIndex: 2},
	}
	track, err := g.Generate(context.Background(), segments, t.TempDir())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(tts.texts) != 2 || tts.texts[0] != "First sentence." {
		t.Errorf("synthesized texts = %v", tts.texts)
	}
	if len(track.SegmentDurations) != 2 {
		t.Fatalf("durations = %v", track.SegmentDurations)
	}
	if track.SegmentDurations[0] != 3.5 || track.SegmentDurations[1] != 4.25 {
		t.Errorf("durations = %v, want [3.5 4.25]", track.SegmentDurations)
	}
	if track.TotalSec != 7.75 {
		t.Errorf("total = %v, want 7.75", track.TotalSec)
	}
	if _, err := os.Stat(track.AudioPath); err != nil {
		t.Errorf("final audio missing: %v", err)
	}
}

func TestGenerate_SynthFailureNamesSegment(t *testing.T) {
	g := testGenerator(&fakeSpeech{err: errors.New("service down")}, nil)

	segments := []types.ScriptSegment{{Text: "Text.", SequenceIndex: 7}}
	_, err := g.Generate(context.Background(), segments, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "segment 7") {
		t.Errorf("got %v, want segment 7 in error", err)
	}
}

func TestSynthesizer_SendsSSML(t *testing.T) {
	var gotBody, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotFormat = r.Header.Get("X-Microsoft-OutputFormat")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	s := NewSynthesizer(config.NarrationConfig{
		Voice:        "en-US-JennyNeural",
		Rate:         1.1,
		OutputFormat: "audio-24khz-48kbitrate-mono-mp3",
	})
	s.client = srv.Client()
	s.baseURL = srv.URL

	out := filepath.Join(t.TempDir(), "seg.mp3")
	if err := s.SynthesizeSegment(context.Background(), `Tom & Jerry's "case"`, out); err != nil {
		t.Fatalf("SynthesizeSegment: %v", err)
	}

	if !strings.Contains(gotBody, `name="en-US-JennyNeural"`) {
		t.Errorf("voice missing from SSML: %s", gotBody)
	}
	if !strings.Contains(gotBody, `rate="10%"`) {
		t.Errorf("rate missing from SSML: %s", gotBody)
	}
	if !strings.Contains(gotBody, "Tom &amp; Jerry&apos;s &quot;case&quot;") {
		t.Errorf("text not escaped: %s", gotBody)
	}
	if gotFormat != "audio-24khz-48kbitrate-mono-mp3" {
		t.Errorf("output format = %q", gotFormat)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "mp3-bytes" {
		t.Errorf("audio file = %q, %v", data, err)
	}
}

func TestSynthesizer_RetriesThenFails(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSynthesizer(config.NarrationConfig{Voice: "v", Rate: 1.0, OutputFormat: "f"})
	s.client = srv.Client()
	s.baseURL = srv.URL

	err := s.SynthesizeSegment(context.Background(), "text", filepath.Join(t.TempDir(), "o.mp3"))
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if hits != 3 {
		t.Errorf("attempts = %d, want 3", hits)
	}
}

func TestWriteSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.srt")
	segments := []types.ScriptSegment{
		{Text: "First line.", SequenceIndex: 1},
		{Text: "Second line.", SequenceIndex: 2},
	}
	if err := WriteSRT(path, segments, []float64{3.5, 61.25}); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	want := "1\n00:00:00,000 --> 00:00:03,500\nFirst line.\n\n" +
		"2\n00:00:03,500 --> 00:01:04,750\nSecond line.\n\n"
	if got != want {
		t.Errorf("srt:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteSRT_LengthMismatch(t *testing.T) {
	err := WriteSRT(filepath.Join(t.TempDir(), "s.srt"),
		[]types.ScriptSegment{{Text: "a"}}, []float64{1, 2})
	if err == nil {
		t.Error("expected mismatch error")
	}
}

func TestSrtTimestamp(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "00:00:00,000"},
		{3.5, "00:00:03,500"},
		{3661.042, "01:01:01,042"},
		{-1, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := srtTimestamp(tt.sec); got != tt.want {
			t.Errorf("srtTimestamp(%v) = %s, want %s", tt.sec, got, tt.want)
		}
	}
}
