// Package pipeline drives one article through segmentation, visual
// resolution and timing reconciliation. Assembly and publishing sit
// above it; this package ends with an ordered clip list and a
// narration track that agree on duration.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/narration"
	"article-video-pipeline/internal/segment"
	"article-video-pipeline/internal/types"
)

// SegmentResolver resolves one segment into a duration-matched clip.
type SegmentResolver interface {
	Resolve(ctx context.Context, seg types.ScriptSegment, targetDur float64, imageList []string, aspect types.Aspect, outPath string) (types.ResolvedVisual, error)
}

// Narrator produces the narration track for an ordered segment list.
type Narrator interface {
	Generate(ctx context.Context, segments []types.ScriptSegment, outDir string) (*narration.Track, error)
}

// Retargeter re-cuts an existing clip to a new exact duration.
type Retargeter interface {
	Retarget(ctx context.Context, clipPath string, targetDur float64, aspect types.Aspect, outPath string) (string, error)
}

// Orchestrator owns the per-run state machine:
// SEGMENTING -> RESOLVING -> RECONCILING -> READY | FAILED.
type Orchestrator struct {
	pipe     config.PipelineConfig
	aspect   types.Aspect
	resolver SegmentResolver
	narrator Narrator
	retarget Retargeter
	workDir  string
}

func NewOrchestrator(cfg *config.Config, resolver SegmentResolver, narrator Narrator, retarget Retargeter, workDir string) *Orchestrator {
	return &Orchestrator{
		pipe:     cfg.Pipeline,
		aspect:   types.ParseAspect(cfg.Video.Aspect),
		resolver: resolver,
		narrator: narrator,
		retarget: retarget,
		workDir:  workDir,
	}
}

// EstimateDuration converts a word count into a target clip duration.
func EstimateDuration(words int, wordsPerSecond, minSec float64) float64 {
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.5
	}
	return math.Max(minSec, float64(words)/wordsPerSecond)
}

// Run processes one article end to end. The returned report is always
// populated, including on failure; the error is non-nil only for
// run-level fatal conditions.
func (o *Orchestrator) Run(ctx context.Context, article types.Article, runID string) (*types.RunReport, error) {
	report := &types.RunReport{
		RunID: runID,
		State: types.StateSegmenting,
		Title: article.Title,
	}

	runDir := filepath.Join(o.workDir, runID)
	clipDir := filepath.Join(runDir, "clips")
	if err := os.MkdirAll(clipDir, 0755); err != nil {
		return o.fail(report, fmt.Errorf("create run dir: %w", err))
	}

	log.Printf("[pipeline] Run %s: segmenting %q...", runID, article.Title)
	segs := segment.Split(article.Markdown, len(article.Images), o.pipe.MaxWordsPerSegment)
	if len(segs) == 0 {
		return o.fail(report, ErrEmptyArticle)
	}
	report.Segments = segs
	log.Printf("[pipeline] %d segments, %d article images", len(segs), len(article.Images))

	report.State = types.StateResolving
	visuals, unresolved := o.resolveAll(ctx, segs, article.Images, clipDir)
	if ctx.Err() != nil {
		return o.fail(report, ctx.Err())
	}
	report.Unresolved = unresolved

	failedFrac := float64(len(unresolved)) / float64(len(segs))
	if failedFrac > o.pipe.MaxFailedFraction {
		log.Printf("[pipeline] ⚠️ %d/%d segments unresolved (%.0f%% > %.0f%% threshold)",
			len(unresolved), len(segs), failedFrac*100, o.pipe.MaxFailedFraction*100)
		return o.fail(report, ErrTooManyUnresolved)
	}

	// Unresolved segments drop off the timeline; the script shrinks
	// with them so narration and clips stay aligned.
	kept, keptVisuals := dropUnresolved(segs, visuals)
	report.Segments = kept
	report.Visuals = keptVisuals

	track, err := o.narrator.Generate(ctx, kept, filepath.Join(runDir, "narration"))
	if err != nil {
		return o.fail(report, fmt.Errorf("narration: %w", err))
	}
	report.AudioPath = track.AudioPath
	report.TotalSec = track.TotalSec

	report.State = types.StateReconciling
	if err := o.reconcile(ctx, report, track, clipDir); err != nil {
		return o.fail(report, fmt.Errorf("reconcile: %w", err))
	}

	srtPath := filepath.Join(runDir, "subtitles.srt")
	durations := track.SegmentDurations
	if len(durations) == 0 {
		durations = Redistribute(targetsOf(report.Visuals), track.TotalSec)
	}
	if err := narration.WriteSRT(srtPath, kept, durations); err != nil {
		log.Printf("[pipeline] ⚠️ subtitle write failed: %v", err)
	} else {
		report.SubtitlePath = srtPath
	}

	report.State = types.StateReady
	log.Printf("[pipeline] ✅ %s", report)
	return report, nil
}

type resolveResult struct {
	idx    int
	visual types.ResolvedVisual
	err    error
}

// resolveAll fans segments out to a bounded worker pool. Output order
// follows SequenceIndex regardless of completion order; one segment's
// failure never touches another's result.
func (o *Orchestrator) resolveAll(ctx context.Context, segs []types.ScriptSegment, images []string, clipDir string) ([]*types.ResolvedVisual, []types.UnresolvedSegment) {
	workers := o.pipe.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	results := make(chan resolveResult)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- o.resolveOne(ctx, segs[idx], images, clipDir, idx)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range segs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	visuals := make([]*types.ResolvedVisual, len(segs))
	var unresolved []types.UnresolvedSegment
	for r := range results {
		if r.err != nil {
			log.Printf("[pipeline] segment %d unresolved: %v", segs[r.idx].SequenceIndex, r.err)
			unresolved = append(unresolved, types.UnresolvedSegment{
				SequenceIndex: segs[r.idx].SequenceIndex,
				Reason:        r.err.Error(),
			})
			continue
		}
		v := r.visual
		visuals[r.idx] = &v
	}

	sortUnresolved(unresolved)
	return visuals, unresolved
}

func (o *Orchestrator) resolveOne(ctx context.Context, seg types.ScriptSegment, images []string, clipDir string, idx int) resolveResult {
	segCtx := ctx
	if o.pipe.SegmentTimeoutSec > 0 {
		var cancel context.CancelFunc
		segCtx, cancel = context.WithTimeout(ctx, time.Duration(o.pipe.SegmentTimeoutSec*float64(time.Second)))
		defer cancel()
	}

	target := EstimateDuration(seg.WordCount(), o.pipe.WordsPerSecond, o.pipe.MinSegmentSec)
	outPath := filepath.Join(clipDir, fmt.Sprintf("seg_%03d.mp4", idx))

	visual, err := o.resolver.Resolve(segCtx, seg, target, images, o.aspect, outPath)
	return resolveResult{idx: idx, visual: visual, err: err}
}

// reconcile re-cuts clips whose narration ran longer or shorter than
// the estimate they were resolved for. Within tolerance, clips are
// left alone.
func (o *Orchestrator) reconcile(ctx context.Context, report *types.RunReport, track *narration.Track, clipDir string) error {
	targets := targetsOf(report.Visuals)
	targetTotal := sum(targets)

	drift := track.TotalSec - targetTotal
	if math.Abs(drift) <= o.pipe.DriftToleranceSec {
		log.Printf("[pipeline] drift %.2fs within tolerance, keeping clips as resolved", drift)
		return nil
	}
	log.Printf("[pipeline] drift %.2fs (estimated %.1fs, narrated %.1fs), re-cutting clips",
		drift, targetTotal, track.TotalSec)

	actuals := track.SegmentDurations
	if len(actuals) != len(report.Visuals) {
		actuals = Redistribute(targets, track.TotalSec)
	}

	for i := range report.Visuals {
		v := &report.Visuals[i]
		if math.Abs(actuals[i]-v.Duration) <= 0.1 {
			continue
		}
		outPath := filepath.Join(clipDir, fmt.Sprintf("seg_%03d_fit.mp4", i))
		clip, err := o.retarget.Retarget(ctx, v.ClipPath, actuals[i], o.aspect, outPath)
		if err != nil {
			return fmt.Errorf("clip %d: %w", i, err)
		}
		v.ClipPath = clip
		v.Duration = actuals[i]
	}
	return nil
}

// Redistribute scales per-segment targets so they sum to actualTotal,
// spreading drift proportionally instead of dumping it on the last
// segment.
func Redistribute(targets []float64, actualTotal float64) []float64 {
	total := sum(targets)
	if total <= 0 || actualTotal <= 0 {
		return targets
	}
	factor := actualTotal / total
	out := make([]float64, len(targets))
	for i, t := range targets {
		out[i] = t * factor
	}
	return out
}

func (o *Orchestrator) fail(report *types.RunReport, err error) (*types.RunReport, error) {
	report.State = types.StateFailed
	report.Error = err.Error()
	return report, err
}

func dropUnresolved(segs []types.ScriptSegment, visuals []*types.ResolvedVisual) ([]types.ScriptSegment, []types.ResolvedVisual) {
	var kept []types.ScriptSegment
	var keptVisuals []types.ResolvedVisual
	for i, v := range visuals {
		if v == nil {
			continue
		}
		kept = append(kept, segs[i])
		keptVisuals = append(keptVisuals, *v)
	}
	return kept, keptVisuals
}

func targetsOf(visuals []types.ResolvedVisual) []float64 {
	out := make([]float64, len(visuals))
	for i, v := range visuals {
		out[i] = v.Duration
	}
	return out
}

func sum(xs []float64) float64 {
	var t float64
	for _, x := range xs {
		t += x
	}
	return t
}

func sortUnresolved(u []types.UnresolvedSegment) {
	sort.Slice(u, func(i, j int) bool { return u[i].SequenceIndex < u[j].SequenceIndex })
}
