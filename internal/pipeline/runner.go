package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/assemble"
	"article-video-pipeline/internal/cache"
	"article-video-pipeline/internal/extract"
	"article-video-pipeline/internal/keywords"
	"article-video-pipeline/internal/media"
	"article-video-pipeline/internal/narration"
	"article-video-pipeline/internal/stock"
	"article-video-pipeline/internal/storage"
	"article-video-pipeline/internal/types"
	"article-video-pipeline/internal/upload"
	"article-video-pipeline/internal/visuals"
)

// Runner wires the whole pipeline: extraction in, published video out.
// It is safe to share across goroutines; all per-run state lives in
// the run directory and the returned report.
type Runner struct {
	cfg       *config.Config
	orch      *Orchestrator
	assembler *assemble.Assembler
	publisher *storage.Publisher
	uploader  *upload.Uploader
	workDir   string
}

func NewRunner(cfg *config.Config) (*Runner, error) {
	store, err := cache.New(cfg.Cache.Root)
	if err != nil {
		return nil, fmt.Errorf("asset cache: %w", err)
	}

	conv := media.NewConverter(cfg.Video)

	provider, err := stock.NewProvider(cfg.Stock)
	if err != nil {
		return nil, err
	}
	searcher := stock.NewSearcher(provider, store, conv, cfg.Extract.UserAgent, cfg.Stock.ResultsPerPage)

	kw := keywords.New(cfg.Keywords)
	resolver := visuals.NewResolver(store, conv, searcher, kw, cfg.Extract.UserAgent, cfg.Keywords.Amount)

	workDir := filepath.Join(cfg.Paths.Output, "runs")
	orch := NewOrchestrator(cfg, resolver, narration.NewGenerator(cfg.Narration), conv, workDir)

	r := &Runner{
		cfg:       cfg,
		orch:      orch,
		assembler: assemble.New(cfg.Video, true),
		workDir:   workDir,
	}
	if cfg.Storage.Enabled {
		r.publisher, err = storage.NewPublisher(cfg.Storage)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Upload.Enabled {
		r.uploader = upload.New(cfg.Upload)
	}
	return r, nil
}

// Process runs one article URL end to end. The report is always
// returned, including on failure.
func (r *Runner) Process(ctx context.Context, articleURL, source, runID string) (*types.RunReport, error) {
	extractor, err := extract.ForSource(r.cfg.Extract, source, articleURL)
	if err != nil {
		return &types.RunReport{RunID: runID, State: types.StateFailed, Error: err.Error()}, err
	}

	article, err := extractor.Extract(ctx, articleURL)
	if err != nil {
		err = fmt.Errorf("extract: %w", err)
		return &types.RunReport{RunID: runID, State: types.StateFailed, Error: err.Error()}, err
	}

	report, err := r.orch.Run(ctx, *article, runID)
	if err != nil {
		return report, err
	}

	final, err := r.assembler.Run(ctx, report, filepath.Join(r.workDir, runID))
	if err != nil {
		report.State = types.StateFailed
		report.Error = err.Error()
		return report, err
	}
	report.VideoPath = final

	if r.publisher != nil {
		if _, err := r.publisher.PublishRun(ctx, report); err != nil {
			log.Printf("[pipeline] ⚠️ publish failed: %v", err)
		}
	}
	if r.uploader != nil {
		meta := upload.MetadataFor(report, articleURL)
		videoID, videoURL, err := r.uploader.Run(ctx, report, meta)
		if err != nil {
			log.Printf("[pipeline] ⚠️ youtube upload failed: %v", err)
		} else if err := upload.LogUpload(r.cfg.Paths.Logs, videoID, videoURL, meta); err != nil {
			log.Printf("[pipeline] ⚠️ upload log failed: %v", err)
		}
	}
	return report, nil
}
