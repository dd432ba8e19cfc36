// Package narration turns segment text into a single narration track
// and subtitles, using the free Edge speech endpoint.
package narration

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"article-video-pipeline/config"
)

const edgeBaseURL = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"

const edgeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/93.0.4577.63 Safari/537.36 Edg/93.0.961.47"

// Synthesizer speaks one piece of text into an audio file.
type Synthesizer struct {
	voice        string
	ratePercent  int
	outputFormat string
	client       *http.Client
	baseURL      string // test override
}

func NewSynthesizer(cfg config.NarrationConfig) *Synthesizer {
	return &Synthesizer{
		voice:        cfg.Voice,
		ratePercent:  int((cfg.Rate - 1.0) * 100),
		outputFormat: cfg.OutputFormat,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

// SynthesizeSegment writes spoken audio for text to outPath. Transient
// failures are retried with a short linear backoff.
func (s *Synthesizer) SynthesizeSegment(ctx context.Context, text, outPath string) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = s.synthesize(ctx, text, outPath); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[narration] TTS attempt %d failed: %v — retrying...", attempt, err)
		select {
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("edge tts: %w", err)
}

func (s *Synthesizer) synthesize(ctx context.Context, text, outPath string) error {
	base := s.baseURL
	if base == "" {
		base = edgeBaseURL
	}

	ssml := fmt.Sprintf(`
<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-US">
	<voice name="%s">
		<prosody rate="%d%%" pitch="0%%">%s</prosody>
	</voice>
</speak>`, s.voice, s.ratePercent, escapeXML(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, strings.NewReader(ssml))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", s.outputFormat)
	req.Header.Set("User-Agent", edgeUserAgent)
	req.Header.Set("Origin", "https://speech.platform.bing.com")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts request: HTTP %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read tts response: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("tts returned empty audio")
	}
	return os.WriteFile(outPath, audio, 0644)
}

func escapeXML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, "\"", "&quot;")
	text = strings.ReplaceAll(text, "'", "&apos;")
	return text
}
