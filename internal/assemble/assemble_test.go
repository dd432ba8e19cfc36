package assemble

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

func fakeRun(t *testing.T, argLog *[][]string) func(cmd *exec.Cmd) error {
	t.Helper()
	return func(cmd *exec.Cmd) error {
		*argLog = append(*argLog, cmd.Args)
		// ffmpeg writes its output file; fake that.
		out := cmd.Args[len(cmd.Args)-1]
		return os.WriteFile(out, []byte("video"), 0644)
	}
}

func testReport(dir string) *types.RunReport {
	return &types.RunReport{
		RunID: "r1",
		Visuals: []types.ResolvedVisual{
			{ClipPath: filepath.Join(dir, "a.mp4"), Duration: 3},
			{ClipPath: filepath.Join(dir, "b.mp4"), Duration: 4},
		},
		AudioPath:    filepath.Join(dir, "narration.mp3"),
		SubtitlePath: filepath.Join(dir, "subs.srt"),
	}
}

func TestRun_ConcatThenMux(t *testing.T) {
	var calls [][]string
	a := New(config.VideoConfig{Aspect: "portrait", FPS: 30}, false)
	a.run = fakeRun(t, &calls)

	dir := t.TempDir()
	final, err := a.Run(context.Background(), testReport(dir), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(final) != "final_video.mp4" {
		t.Errorf("final = %s", final)
	}
	if len(calls) != 2 {
		t.Fatalf("ffmpeg invocations = %d, want concat + mux", len(calls))
	}

	concat := strings.Join(calls[0], " ")
	if !strings.Contains(concat, "-f concat") || !strings.Contains(concat, "1080:1920") {
		t.Errorf("concat args = %s", concat)
	}
	mux := strings.Join(calls[1], " ")
	if !strings.Contains(mux, "narration.mp3") || !strings.Contains(mux, "-shortest") {
		t.Errorf("mux args = %s", mux)
	}

	// Concat list preserves clip order.
	list, err := os.ReadFile(filepath.Join(dir, "clips_concat.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(list), "a.mp4") || strings.Index(string(list), "a.mp4") > strings.Index(string(list), "b.mp4") {
		t.Errorf("concat list = %s", list)
	}
}

func TestRun_SubtitleBurn(t *testing.T) {
	var calls [][]string
	a := New(config.VideoConfig{Aspect: "landscape", FPS: 30}, true)
	a.run = fakeRun(t, &calls)

	dir := t.TempDir()
	if _, err := a.Run(context.Background(), testReport(dir), dir); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("ffmpeg invocations = %d, want concat + burn + mux", len(calls))
	}
	burn := strings.Join(calls[1], " ")
	if !strings.Contains(burn, "subtitles=") {
		t.Errorf("burn args = %s", burn)
	}
}

func TestRun_NoClips(t *testing.T) {
	a := New(config.VideoConfig{Aspect: "portrait", FPS: 30}, false)
	_, err := a.Run(context.Background(), &types.RunReport{}, t.TempDir())
	if err == nil {
		t.Error("expected error for empty clip list")
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\runs\subs.srt`)
	if got != `C\:\\runs\\subs.srt` {
		t.Errorf("escaped = %s", got)
	}
}
