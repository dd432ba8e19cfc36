package narration

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/media"
	"article-video-pipeline/internal/types"
)

// Track is the finished narration for a run: one concatenated audio
// file plus the measured duration of every segment in order.
type Track struct {
	AudioPath        string
	SegmentDurations []float64
	TotalSec         float64
}

type speech interface {
	SynthesizeSegment(ctx context.Context, text, outPath string) error
}

// Generator synthesizes per-segment audio and joins it into one track.
type Generator struct {
	tts    speech
	probe  func(ctx context.Context, path string) (float64, error)
	concat func(ctx context.Context, parts []string, outPath string) error
}

func NewGenerator(cfg config.NarrationConfig) *Generator {
	return &Generator{
		tts:    NewSynthesizer(cfg),
		probe:  media.ProbeDuration,
		concat: concatAudio,
	}
}

// Generate speaks every segment into outDir and concatenates the
// pieces. Segment order is preserved; durations come from probing the
// actual audio, not from estimates.
func (g *Generator) Generate(ctx context.Context, segments []types.ScriptSegment, outDir string) (*Track, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create narration dir: %w", err)
	}

	parts := make([]string, len(segments))
	durations := make([]float64, len(segments))
	var total float64

	for i, seg := range segments {
		outFile := filepath.Join(outDir, fmt.Sprintf("seg_%03d.mp3", i))
		log.Printf("[narration] Segment %d/%d: synthesizing...", i+1, len(segments))

		if err := g.tts.SynthesizeSegment(ctx, seg.Text, outFile); err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.SequenceIndex, err)
		}

		dur, err := g.probe(ctx, outFile)
		if err != nil {
			return nil, fmt.Errorf("segment %d duration: %w", seg.SequenceIndex, err)
		}
		parts[i] = outFile
		durations[i] = dur
		total += dur
	}

	finalAudio := filepath.Join(outDir, "narration.mp3")
	if err := g.concat(ctx, parts, finalAudio); err != nil {
		return nil, fmt.Errorf("concatenate narration: %w", err)
	}

	log.Printf("[narration] ✅ Final audio: %s (total: %.1fs)", finalAudio, total)
	return &Track{
		AudioPath:        finalAudio,
		SegmentDurations: durations,
		TotalSec:         total,
	}, nil
}

// concatAudio joins the parts in order with the ffmpeg concat demuxer.
func concatAudio(ctx context.Context, parts []string, outPath string) error {
	listFile := filepath.Join(filepath.Dir(outPath), "concat_list.txt")
	var lines []string
	for _, p := range parts {
		lines = append(lines, fmt.Sprintf("file '%s'", p))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %v: %s", err, tail(out))
	}
	return nil
}

func tail(out []byte) string {
	const max = 512
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return strings.TrimSpace(string(out))
}
