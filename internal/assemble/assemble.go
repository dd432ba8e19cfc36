// Package assemble joins the resolved clip list with the narration
// track into the final video file.
package assemble

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

// Assembler renders the final MP4 from clips, narration and subtitles.
type Assembler struct {
	fps          int
	aspect       types.Aspect
	burnSubtitle bool
	run          func(cmd *exec.Cmd) error
}

func New(cfg config.VideoConfig, burnSubtitle bool) *Assembler {
	return &Assembler{
		fps:          cfg.FPS,
		aspect:       types.ParseAspect(cfg.Aspect),
		burnSubtitle: burnSubtitle,
		run:          runCmd,
	}
}

// Run concatenates the clips in order, muxes the narration audio and
// optionally burns subtitles in. The clip list must already be
// duration-matched to the narration.
func (a *Assembler) Run(ctx context.Context, report *types.RunReport, outputDir string) (string, error) {
	if len(report.Visuals) == 0 {
		return "", fmt.Errorf("no clips to assemble")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	log.Printf("[assemble] Joining %d clips...", len(report.Visuals))

	silent, err := a.concatClips(ctx, report.Visuals, outputDir)
	if err != nil {
		return "", fmt.Errorf("concatenate clips: %w", err)
	}

	if a.burnSubtitle && report.SubtitlePath != "" {
		burned, err := a.burnSubtitles(ctx, silent, report.SubtitlePath, outputDir)
		if err != nil {
			log.Printf("[assemble] ⚠️ subtitle burn failed: %v — continuing without", err)
		} else {
			silent = burned
		}
	}

	final, err := a.mux(ctx, silent, report.AudioPath, outputDir)
	if err != nil {
		return "", fmt.Errorf("mux narration: %w", err)
	}

	log.Printf("[assemble] ✅ Final video ready: %s", final)
	return final, nil
}

func (a *Assembler) concatClips(ctx context.Context, visuals []types.ResolvedVisual, outputDir string) (string, error) {
	listFile := filepath.Join(outputDir, "clips_concat.txt")
	var lines []string
	for _, v := range visuals {
		lines = append(lines, fmt.Sprintf("file '%s'", v.ClipPath))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", err
	}

	w, h := a.aspect.Resolution()
	outFile := filepath.Join(outputDir, "video_silent.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1", w, h, w, h),
		"-r", fmt.Sprintf("%d", a.fps),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err := a.run(cmd); err != nil {
		return "", err
	}
	return outFile, nil
}

func (a *Assembler) burnSubtitles(ctx context.Context, videoFile, srtFile, outputDir string) (string, error) {
	outFile := filepath.Join(outputDir, "video_subtitled.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoFile,
		"-vf", fmt.Sprintf("subtitles=%s:force_style='FontSize=14,Alignment=2,MarginV=40'", escapeFilterPath(srtFile)),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-an",
		outFile,
	)
	if err := a.run(cmd); err != nil {
		return "", err
	}
	return outFile, nil
}

func (a *Assembler) mux(ctx context.Context, videoFile, audioFile, outputDir string) (string, error) {
	outFile := filepath.Join(outputDir, "final_video.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoFile,
		"-i", audioFile,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outFile,
	)
	if err := a.run(cmd); err != nil {
		return "", err
	}
	return outFile, nil
}

// escapeFilterPath escapes characters the subtitles filter treats
// specially (Windows drive colons, quotes).
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, `:`, `\:`)
	p = strings.ReplaceAll(p, `'`, `\'`)
	return p
}

func runCmd(cmd *exec.Cmd) error {
	out, err := cmd.CombinedOutput()
	if err != nil {
		tail := out
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		return fmt.Errorf("%s: %v: %s", cmd.Args[0], err, strings.TrimSpace(string(tail)))
	}
	return nil
}
