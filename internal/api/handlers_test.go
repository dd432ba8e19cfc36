package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"article-video-pipeline/config"
	"article-video-pipeline/internal/types"
)

type fakeProcessor struct {
	mu   sync.Mutex
	urls []string
	done chan struct{}
}

func (f *fakeProcessor) Process(ctx context.Context, articleURL, source, runID string) (*types.RunReport, error) {
	f.mu.Lock()
	f.urls = append(f.urls, articleURL)
	f.mu.Unlock()
	report := &types.RunReport{RunID: runID, State: types.StateReady, Title: "Done"}
	if f.done != nil {
		defer close(f.done)
	}
	return report, nil
}

func newTestServer(p Processor) *Server {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	return NewServer(cfg, p)
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeProcessor{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGenerateAndPoll(t *testing.T) {
	p := &fakeProcessor{done: make(chan struct{})}
	s := newTestServer(p)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate",
		strings.NewReader(`{"url":"https://example.com/story"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.RunID == "" {
		t.Fatalf("response = %s, %v", w.Body.String(), err)
	}

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor never ran")
	}

	// Poll until the background goroutine stores the final report.
	deadline := time.Now().Add(2 * time.Second)
	for {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var report types.RunReport
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatal(err)
		}
		if report.State == types.StateReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never reached READY: %+v", report)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGenerate_MissingURL(t *testing.T) {
	s := newTestServer(&fakeProcessor{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestServer(&fakeProcessor{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil)
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestServer(&fakeProcessor{})
	s.setRun(&types.RunReport{RunID: "a", State: types.StateReady})
	s.setRun(&types.RunReport{RunID: "b", State: types.StateFailed})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	s.Handler().ServeHTTP(w, req)

	var resp struct {
		Runs []types.RunReport `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Runs) != 2 {
		t.Errorf("runs = %+v", resp.Runs)
	}
}
