package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	yaml := `
pipeline:
  workers: 2
  max_failed_fraction: 0.5
video:
  aspect: landscape
stock:
  provider: pixabay
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("workers = %d", cfg.Pipeline.Workers)
	}
	if cfg.Video.Aspect != "landscape" {
		t.Errorf("aspect = %q", cfg.Video.Aspect)
	}
	if cfg.Stock.Provider != "pixabay" {
		t.Errorf("provider = %q", cfg.Stock.Provider)
	}
	// Unset fields fall back to defaults.
	if cfg.Pipeline.WordsPerSecond != 2.5 {
		t.Errorf("wps = %v", cfg.Pipeline.WordsPerSecond)
	}
	if cfg.Narration.Voice == "" {
		t.Error("voice default missing")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad aspect", func(c *Config) { c.Video.Aspect = "vertical" }, true},
		{"bad provider", func(c *Config) { c.Stock.Provider = "shutterstock" }, true},
		{"fraction above one", func(c *Config) { c.Pipeline.MaxFailedFraction = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecretsFromEnvOnly(t *testing.T) {
	t.Setenv("PEXELS_API_KEY", "pk-123")
	t.Setenv("PIPELINE_WORKERS", "9")

	cfg := Default()
	if cfg.Stock.PexelsKey != "pk-123" {
		t.Errorf("pexels key = %q", cfg.Stock.PexelsKey)
	}
	if cfg.Pipeline.Workers != 9 {
		t.Errorf("workers = %d", cfg.Pipeline.Workers)
	}
}
