// Package media wraps the ffmpeg/ffprobe tooling used to turn still
// images into motion clips and to force stock footage onto the
// narration timeline.
package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

// ErrAssetCorrupt marks a local file ffmpeg cannot read. It is never
// retried: re-reading a corrupt file cannot succeed, unlike a network
// fetch.
var ErrAssetCorrupt = errors.New("asset corrupt")

// Converter produces duration-exact clips. Output duration is always
// within ±0.1s of the target; downstream assembly concatenates against
// a fixed narration timeline with no renegotiation.
type Converter struct {
	fps           int
	zoomPerSecond float64
}

// NewConverter builds a Converter from the video config.
func NewConverter(cfg config.VideoConfig) *Converter {
	return &Converter{fps: cfg.FPS, zoomPerSecond: cfg.ZoomPerSecond}
}

// ToClip renders a still image into a clip of exactly targetDur seconds
// with a slow zoom, letterboxed to the requested aspect.
func (c *Converter) ToClip(ctx context.Context, imagePath string, targetDur float64, aspect types.Aspect, outPath string) (string, error) {
	if err := probeReadable(ctx, imagePath); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrAssetCorrupt, imagePath, err)
	}

	w, h := aspect.Resolution()
	totalFrames := int(targetDur * float64(c.fps))
	if totalFrames < 1 {
		totalFrames = 1
	}

	// Zoom ramps linearly from 1.0 to 1 + duration*zoomPerSecond over
	// the clip. The 2x pre-scale keeps zoompan from shimmering.
	zoom := 1.0 + targetDur*c.zoomPerSecond
	zoomStep := (zoom - 1.0) / float64(totalFrames)
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,"+
			"zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:fps=%d:s=%dx%d",
		w*2, h*2, w*2, h*2,
		zoomStep, zoom, totalFrames, c.fps, w, h,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-loop", "1",
		"-i", imagePath,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", targetDur),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outPath,
	)
	if err := runQuiet(cmd); err != nil {
		return "", fmt.Errorf("ffmpeg image clip: %w", err)
	}
	return outPath, nil
}

// TrimOrLoop fits an existing video clip onto targetDur seconds: longer
// footage is trimmed, shorter footage is looped, and the frame is
// letterboxed to the requested aspect.
func (c *Converter) TrimOrLoop(ctx context.Context, clipPath string, targetDur float64, aspect types.Aspect, outPath string) (string, error) {
	srcDur, err := ProbeDuration(ctx, clipPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrAssetCorrupt, clipPath, err)
	}

	w, h := aspect.Resolution()
	scaleFilter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d",
		w, h, w, h, c.fps,
	)

	args := []string{"-y"}
	if srcDur < targetDur {
		loops := int(targetDur/srcDur) + 1
		args = append(args, "-stream_loop", fmt.Sprintf("%d", loops))
		log.Printf("[media] looping %.1fs clip %dx to cover %.1fs", srcDur, loops+1, targetDur)
	}
	args = append(args,
		"-i", clipPath,
		"-t", fmt.Sprintf("%.3f", targetDur),
		"-vf", scaleFilter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-an",
		outPath,
	)

	if err := runQuiet(exec.CommandContext(ctx, "ffmpeg", args...)); err != nil {
		return "", fmt.Errorf("ffmpeg trim/loop: %w", err)
	}
	return outPath, nil
}

// Retarget re-fits an already-prepared clip to a new duration, used
// during reconciliation when narration timing shifts targets.
func (c *Converter) Retarget(ctx context.Context, clipPath string, targetDur float64, aspect types.Aspect, outPath string) (string, error) {
	return c.TrimOrLoop(ctx, clipPath, targetDur, aspect, outPath)
}

// ProbeDuration returns the playable duration of a media file.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur); err != nil {
		return 0, err
	}
	return dur, nil
}

// probeReadable checks a file is present and decodable before spending
// an encode on it.
func probeReadable(ctx context.Context, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return errors.New("empty file")
	}
	return exec.CommandContext(ctx, "ffprobe", "-v", "error", path).Run()
}

func runQuiet(cmd *exec.Cmd) error {
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		return fmt.Errorf("%w: %s", err, tail)
	}
	return nil
}
