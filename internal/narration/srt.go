package narration

import (
	"fmt"
	"os"
	"strings"

	"article-video-pipeline/internal/types"
)

// WriteSRT writes one subtitle cue per segment, timed from the
// measured segment durations. len(durations) must equal len(segments).
func WriteSRT(path string, segments []types.ScriptSegment, durations []float64) error {
	if len(segments) != len(durations) {
		return fmt.Errorf("srt: %d segments but %d durations", len(segments), len(durations))
	}

	var b strings.Builder
	var elapsed float64
	for i, seg := range segments {
		start := elapsed
		elapsed += durations[i]
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(start), srtTimestamp(elapsed), seg.Text)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int(sec*1000 + 0.5)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
