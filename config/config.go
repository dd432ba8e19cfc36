package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for one pipeline process.
// Everything tunable lives here; constructors receive an explicit
// *Config and there is no package-level state.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Video     VideoConfig     `yaml:"video"`
	Extract   ExtractConfig   `yaml:"extract"`
	Keywords  KeywordsConfig  `yaml:"keywords"`
	Stock     StockConfig     `yaml:"stock"`
	Narration NarrationConfig `yaml:"narration"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Upload    UploadConfig    `yaml:"upload"`
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
}

type PipelineConfig struct {
	Workers            int     `yaml:"workers"`
	SegmentTimeoutSec  float64 `yaml:"segment_timeout_sec"`
	MaxFailedFraction  float64 `yaml:"max_failed_fraction"`
	WordsPerSecond     float64 `yaml:"words_per_second"`
	MinSegmentSec      float64 `yaml:"min_segment_sec"`
	MaxWordsPerSegment int     `yaml:"max_words_per_segment"`
	DriftToleranceSec  float64 `yaml:"drift_tolerance_sec"`
}

type VideoConfig struct {
	Aspect        string  `yaml:"aspect"` // portrait | landscape | square
	FPS           int     `yaml:"fps"`
	ZoomPerSecond float64 `yaml:"zoom_per_second"`
}

type ExtractConfig struct {
	UserAgent  string `yaml:"user_agent"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type KeywordsConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Amount    int    `yaml:"amount"`
	MaxTokens int    `yaml:"max_tokens"`
	APIKey    string `yaml:"-"` // env only, never yaml
}

type StockConfig struct {
	Provider       string `yaml:"provider"` // pexels | pixabay
	ResultsPerPage int    `yaml:"results_per_page"`
	PexelsKey      string `yaml:"-"`
	PixabayKey     string `yaml:"-"`
}

type NarrationConfig struct {
	Voice        string  `yaml:"voice"`
	Rate         float64 `yaml:"rate"`
	OutputFormat string  `yaml:"output_format"`
}

type CacheConfig struct {
	Root string `yaml:"root"`
}

type StorageConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	Bucket     string `yaml:"bucket"`
	AccessKey  string `yaml:"-"`
	SecretKey  string `yaml:"-"`
	PresignDay int    `yaml:"presign_days"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
}

type ServerConfig struct {
	Port         string   `yaml:"port"`
	GenerateCron string   `yaml:"generate_cron"`
	ArticleURLs  []string `yaml:"article_urls"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Logs   string `yaml:"logs"`
}

// Load reads a yaml config file, applies defaults and pulls secrets
// from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with defaults applied and env secrets
// loaded, for callers that run without a yaml file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.SegmentTimeoutSec <= 0 {
		c.Pipeline.SegmentTimeoutSec = 120
	}
	if c.Pipeline.MaxFailedFraction <= 0 {
		c.Pipeline.MaxFailedFraction = 0.3
	}
	if c.Pipeline.WordsPerSecond <= 0 {
		c.Pipeline.WordsPerSecond = 2.5
	}
	if c.Pipeline.MinSegmentSec <= 0 {
		c.Pipeline.MinSegmentSec = 3.0
	}
	if c.Pipeline.MaxWordsPerSegment <= 0 {
		c.Pipeline.MaxWordsPerSegment = 150
	}
	if c.Pipeline.DriftToleranceSec <= 0 {
		c.Pipeline.DriftToleranceSec = 0.5
	}
	if c.Video.Aspect == "" {
		c.Video.Aspect = "portrait"
	}
	if c.Video.FPS <= 0 {
		c.Video.FPS = 30
	}
	if c.Video.ZoomPerSecond <= 0 {
		c.Video.ZoomPerSecond = 0.03
	}
	if c.Extract.UserAgent == "" {
		c.Extract.UserAgent = "Mozilla/5.0 (compatible; ArticleClipPipeline/1.0)"
	}
	if c.Extract.TimeoutSec <= 0 {
		c.Extract.TimeoutSec = 30
	}
	if c.Keywords.BaseURL == "" {
		c.Keywords.BaseURL = "https://text.pollinations.ai/openai"
	}
	if c.Keywords.Model == "" {
		c.Keywords.Model = "openai-fast"
	}
	if c.Keywords.Amount <= 0 {
		c.Keywords.Amount = 3
	}
	if c.Keywords.MaxTokens <= 0 {
		c.Keywords.MaxTokens = 256
	}
	if c.Stock.Provider == "" {
		c.Stock.Provider = "pexels"
	}
	if c.Stock.ResultsPerPage <= 0 {
		c.Stock.ResultsPerPage = 10
	}
	if c.Narration.Voice == "" {
		c.Narration.Voice = "en-US-JennyNeural"
	}
	if c.Narration.Rate <= 0 {
		c.Narration.Rate = 1.0
	}
	if c.Narration.OutputFormat == "" {
		c.Narration.OutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	}
	if c.Cache.Root == "" {
		c.Cache.Root = "./storage/cache"
	}
	if c.Storage.PresignDay <= 0 {
		c.Storage.PresignDay = 7
	}
	if c.Upload.Visibility == "" {
		c.Upload.Visibility = "private"
	}
	if c.Upload.CategoryID == "" {
		c.Upload.CategoryID = "27" // Education
	}
	if c.Upload.DefaultLanguage == "" {
		c.Upload.DefaultLanguage = "en"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "./storage/output"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "./storage/logs"
	}
}

// applyEnv pulls API keys and overrides from the environment. Secrets
// never live in config.yaml.
func (c *Config) applyEnv() {
	c.Keywords.APIKey = os.Getenv("KEYWORDS_API_KEY")
	c.Stock.PexelsKey = os.Getenv("PEXELS_API_KEY")
	c.Stock.PixabayKey = os.Getenv("PIXABAY_API_KEY")
	c.Storage.AccessKey = getEnvOrDefault("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnvOrDefault("MINIO_SECRET_KEY", c.Storage.SecretKey)

	if v := os.Getenv("PIPELINE_WORKERS"); v != "" {
		c.Pipeline.Workers = getEnvIntOrDefault("PIPELINE_WORKERS", c.Pipeline.Workers)
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) Validate() error {
	switch c.Video.Aspect {
	case "portrait", "landscape", "square":
	default:
		return fmt.Errorf("invalid video.aspect %q (want portrait, landscape or square)", c.Video.Aspect)
	}
	switch c.Stock.Provider {
	case "pexels", "pixabay":
	default:
		return fmt.Errorf("invalid stock.provider %q (want pexels or pixabay)", c.Stock.Provider)
	}
	if c.Pipeline.MaxFailedFraction > 1 {
		return fmt.Errorf("pipeline.max_failed_fraction %.2f out of range (0,1]", c.Pipeline.MaxFailedFraction)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
