package types

import "fmt"

// Aspect is the output aspect ratio of every produced clip.
type Aspect string

const (
	AspectPortrait  Aspect = "portrait"  // 9:16
	AspectLandscape Aspect = "landscape" // 16:9
	AspectSquare    Aspect = "square"    // 1:1
)

// Resolution returns the pixel dimensions for the aspect.
func (a Aspect) Resolution() (w, h int) {
	switch a {
	case AspectLandscape:
		return 1920, 1080
	case AspectSquare:
		return 1080, 1080
	default:
		return 1080, 1920
	}
}

// ParseAspect maps a config/CLI string to an Aspect, defaulting to portrait.
func ParseAspect(s string) Aspect {
	switch s {
	case "landscape":
		return AspectLandscape
	case "square":
		return AspectSquare
	default:
		return AspectPortrait
	}
}

// SourceKind records which strategy produced a visual.
type SourceKind string

const (
	SourceArticleImage SourceKind = "ARTICLE_IMAGE"
	SourceStockSearch  SourceKind = "STOCK_SEARCH"
)

// ScriptSegment is one unit of narration on the video timeline. It is
// created once by the segmentation engine and never mutated afterwards.
// ImageRef is a 1-based index into the article's image list; zero means
// the segment carries no image and resolves via stock search.
type ScriptSegment struct {
	Text          string `json:"text"`
	SequenceIndex int    `json:"sequence_index"`
	ImageRef      int    `json:"image_ref,omitempty"`
}

// HasImage reports whether the segment references an article image.
func (s ScriptSegment) HasImage() bool { return s.ImageRef > 0 }

// WordCount returns the number of whitespace-separated words in the text.
func (s ScriptSegment) WordCount() int {
	n := 0
	inWord := false
	for _, r := range s.Text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

// ResolvedVisual is a ready-to-assemble clip for one segment. The clip
// file is owned by the asset cache or the run's work dir; the pipeline
// only references it.
type ResolvedVisual struct {
	ClipPath   string     `json:"clip_path"`
	SourceKind SourceKind `json:"source_kind"`
	Duration   float64    `json:"duration_sec"`
}

// SegmentTiming pairs the duration a segment's visual was resolved for
// with the duration its narration actually takes.
type SegmentTiming struct {
	EstimatedSec float64 `json:"estimated_sec"`
	ActualSec    float64 `json:"actual_sec"`
}

// Article is the extracted input to the pipeline: markdown with inline
// $n$ markers plus the ordered image URL list those markers index into.
type Article struct {
	Title    string   `json:"title"`
	Markdown string   `json:"markdown"`
	Images   []string `json:"images"`
	Source   string   `json:"source"`
	URL      string   `json:"url"`
}

// UnresolvedSegment records why one segment produced no visual.
type UnresolvedSegment struct {
	SequenceIndex int    `json:"sequence_index"`
	Reason        string `json:"reason"`
}

// RunState is the orchestrator's per-run state machine position.
type RunState string

const (
	StateSegmenting  RunState = "SEGMENTING"
	StateResolving   RunState = "RESOLVING"
	StateReconciling RunState = "RECONCILING"
	StateReady       RunState = "READY"
	StateFailed      RunState = "FAILED"
)

// RunReport is the user-visible outcome of one run.
type RunReport struct {
	RunID        string              `json:"run_id"`
	State        RunState            `json:"state"`
	Title        string              `json:"title"`
	Segments     []ScriptSegment     `json:"segments"`
	Visuals      []ResolvedVisual    `json:"visuals"`
	Unresolved   []UnresolvedSegment `json:"unresolved,omitempty"`
	AudioPath    string              `json:"audio_path,omitempty"`
	SubtitlePath string              `json:"subtitle_path,omitempty"`
	VideoPath    string              `json:"video_path,omitempty"`
	TotalSec     float64             `json:"total_sec"`
	Error        string              `json:"error,omitempty"`
}

func (r *RunReport) String() string {
	return fmt.Sprintf("run %s: %s, %d resolved, %d unresolved, %.1fs",
		r.RunID, r.State, len(r.Visuals), len(r.Unresolved), r.TotalSec)
}
