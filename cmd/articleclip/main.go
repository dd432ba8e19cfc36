package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/pipeline"
)

func main() {
	log.SetFlags(log.LstdFlags)

	if err := godotenv.Load(); err != nil {
		log.Println("[main] No .env file found, using environment as-is")
	}

	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		articleURL = flag.String("url", "", "article URL to process (required)")
		taskID     = flag.String("task-id", "", "run identifier (default: random)")
		source     = flag.String("source", "auto", "extractor: auto | generic | reddit")
		voice      = flag.String("voice", "", "narration voice override")
		rate       = flag.Float64("rate", 0, "narration rate override")
		aspect     = flag.String("aspect", "", "aspect override: portrait | landscape | square")
		wps        = flag.Float64("wps", 0, "words-per-second estimate override")
	)
	flag.Parse()

	if *articleURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("[main] Config error: %v", err)
		}
		log.Printf("[main] No config at %s, using defaults", *configPath)
		cfg = config.Default()
	}
	if *voice != "" {
		cfg.Narration.Voice = *voice
	}
	if *rate > 0 {
		cfg.Narration.Rate = *rate
	}
	if *aspect != "" {
		cfg.Video.Aspect = *aspect
	}
	if *wps > 0 {
		cfg.Pipeline.WordsPerSecond = *wps
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] Config error: %v", err)
	}

	runID := *taskID
	if runID == "" {
		runID = uuid.NewString()[:8]
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		log.Fatalf("[main] Setup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[main] 🚀 Run %s: %s", runID, *articleURL)
	report, err := runner.Process(ctx, *articleURL, *source, runID)
	if report != nil {
		log.Printf("[main] %s", report)
	}
	if err != nil {
		log.Fatalf("[main] Run failed: %v", err)
	}
	log.Printf("[main] ✅ Video: %s", report.VideoPath)
}
