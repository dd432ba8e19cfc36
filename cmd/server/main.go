package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/api"
	"article-video-pipeline/internal/pipeline"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Println("[main] No .env file found, using environment as-is")
	}

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("[main] Config error: %v", err)
		}
		log.Printf("[main] No config at %s, using defaults", *configPath)
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] Config error: %v", err)
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		log.Fatalf("[main] Setup failed: %v", err)
	}
	server := api.NewServer(cfg, runner)

	// Scheduled generation for the configured article feeds.
	if cfg.Server.GenerateCron != "" && len(cfg.Server.ArticleURLs) > 0 {
		c := cron.New()
		_, err := c.AddFunc(cfg.Server.GenerateCron, func() {
			for _, u := range cfg.Server.ArticleURLs {
				runID := server.Generate(u, "auto")
				log.Printf("[main] Scheduled run %s for %s", runID, u)
			}
		})
		if err != nil {
			log.Printf("[main] Cron setup failed: %v", err)
		} else {
			c.Start()
			defer c.Stop()
			log.Printf("[main] Scheduler active: %q over %d URLs", cfg.Server.GenerateCron, len(cfg.Server.ArticleURLs))
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[main] Listening on :%s", cfg.Server.Port)
		if err := server.Run(); err != nil {
			log.Fatalf("[main] Server error: %v", err)
		}
	}()

	<-quit
	log.Println("[main] Shutting down")
}
