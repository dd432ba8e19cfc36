// Package api exposes the pipeline over HTTP: start a run, poll its
// report. Run state is held in memory only; artifacts on disk and in
// object storage are the durable record.
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

// Processor runs one article URL end to end.
type Processor interface {
	Process(ctx context.Context, articleURL, source, runID string) (*types.RunReport, error)
}

// Server is the HTTP front end over a Processor.
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	runner Processor

	mu   sync.Mutex
	runs map[string]*types.RunReport
}

func NewServer(cfg *config.Config, runner Processor) *Server {
	router := gin.Default()
	s := &Server{
		cfg:    cfg,
		router: router,
		runner: runner,
		runs:   make(map[string]*types.RunReport),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthHandler)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/generate", s.generateHandler)
		v1.GET("/runs", s.listRunsHandler)
		v1.GET("/runs/:id", s.getRunHandler)
	}
}

// Run starts the HTTP listener.
func (s *Server) Run() error {
	return s.router.Run(":" + s.cfg.Server.Port)
}

// Generate starts a background run; the cron scheduler calls this too.
func (s *Server) Generate(articleURL, source string) string {
	runID := uuid.NewString()[:8]
	s.setRun(&types.RunReport{RunID: runID, State: types.StateSegmenting})

	go func() {
		report, err := s.runner.Process(context.Background(), articleURL, source, runID)
		if err != nil {
			log.Printf("[api] run %s failed: %v", runID, err)
		}
		if report != nil {
			s.setRun(report)
		}
	}()
	return runID
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) generateHandler(c *gin.Context) {
	var req struct {
		URL    string `json:"url" binding:"required"`
		Source string `json:"source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	runID := s.Generate(req.URL, req.Source)
	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  runID,
		"message": "run started",
	})
}

func (s *Server) getRunHandler(c *gin.Context) {
	s.mu.Lock()
	report, ok := s.runs[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) listRunsHandler(c *gin.Context) {
	s.mu.Lock()
	runs := make([]*types.RunReport, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) setRun(report *types.RunReport) {
	s.mu.Lock()
	s.runs[report.RunID] = report
	s.mu.Unlock()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }
