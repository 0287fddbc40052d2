package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Model   ModelConfig   `yaml:"model"`
	Audio   AudioConfig   `yaml:"audio"`
	Storage StorageConfig `yaml:"storage"`
	Index   IndexConfig   `yaml:"index"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port           int    `yaml:"port"`
	Address        string `yaml:"address"`
	ReadTimeout    int    `yaml:"read_timeout"`  // seconds
	WriteTimeout   int    `yaml:"write_timeout"` // seconds
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// ModelConfig contains generative model settings
type ModelConfig struct {
	APIKey        string `yaml:"api_key"`
	AnalysisModel string `yaml:"analysis_model"`
	ImageModel    string `yaml:"image_model"`
	SpeechModel   string `yaml:"speech_model"`
	Voice         string `yaml:"voice"`
	CaptureMIME   string `yaml:"capture_mime_type"`
}

// AudioConfig describes the raw PCM returned by speech synthesis
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// StorageConfig contains artifact storage settings
type StorageConfig struct {
	BlobToken    string `yaml:"blob_token"`
	BlobEndpoint string `yaml:"blob_endpoint"`
	Prefix       string `yaml:"prefix"`
	PublicDir    string `yaml:"public_dir"`
}

// IndexConfig contains item index settings
type IndexConfig struct {
	RedisURL     string `yaml:"redis_url"`
	SQLitePath   string `yaml:"sqlite_path"`
	DefaultLimit int    `yaml:"default_limit"`
	ProbeTimeout int    `yaml:"probe_timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           3000,
			Address:        "0.0.0.0",
			ReadTimeout:    15,
			WriteTimeout:   120,
			MaxUploadBytes: 10 << 20,
		},
		Model: ModelConfig{
			AnalysisModel: "gemini-2.5-flash",
			ImageModel:    "gemini-2.5-flash-image",
			SpeechModel:   "gemini-2.5-flash-preview-tts",
			Voice:         "Kore",
			CaptureMIME:   "audio/webm",
		},
		Audio: AudioConfig{
			SampleRate: 24000,
			Channels:   1,
			BitDepth:   16,
		},
		Storage: StorageConfig{
			BlobEndpoint: "https://blob.vercel-storage.com",
			Prefix:       "generated",
			PublicDir:    "public",
		},
		Index: IndexConfig{
			DefaultLimit: 20,
			ProbeTimeout: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and the process environment, in that order
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// ApplyEnv overlays credentials and backend selectors from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("GEMINI_API_KEY", &c.Model.APIKey)
	str("BLOB_READ_WRITE_TOKEN", &c.Storage.BlobToken)
	str("BLOB_API_URL", &c.Storage.BlobEndpoint)
	str("KV_URL", &c.Index.RedisURL)
	str("FEELCARD_SQLITE_PATH", &c.Index.SQLitePath)
	str("FEELCARD_PUBLIC_DIR", &c.Storage.PublicDir)
	str("LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT must be numeric, got %q", v)
		}
		c.HTTP.Port = port
	}

	return nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if h.ReadTimeout < 0 || h.WriteTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if h.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024, got %d", h.MaxUploadBytes)
	}

	return nil
}

// Validate validates model configuration. The API key may be empty: runs
// then fail with a configuration error instead of the service refusing to start.
func (m *ModelConfig) Validate() error {
	if m.AnalysisModel == "" || m.ImageModel == "" || m.SpeechModel == "" {
		return fmt.Errorf("analysis_model, image_model and speech_model cannot be empty")
	}

	if m.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}

	if m.CaptureMIME == "" {
		return fmt.Errorf("capture_mime_type cannot be empty")
	}

	return nil
}

// HasCredential reports whether an API key is configured
func (m *ModelConfig) HasCredential() bool {
	return m.APIKey != ""
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", a.SampleRate)
	}

	if a.Channels < 1 || a.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	if a.BitDepth != 8 && a.BitDepth != 16 && a.BitDepth != 24 && a.BitDepth != 32 {
		return fmt.Errorf("bit_depth must be 8, 16, 24 or 32, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	if s.BlobToken != "" && s.BlobEndpoint == "" {
		return fmt.Errorf("blob_endpoint cannot be empty when blob_token is set")
	}

	if s.BlobToken == "" && s.PublicDir == "" {
		return fmt.Errorf("public_dir cannot be empty without blob_token")
	}

	return nil
}

// HasBlob reports whether durable artifact storage is configured
func (s *StorageConfig) HasBlob() bool {
	return s.BlobToken != ""
}

// Validate validates index configuration
func (i *IndexConfig) Validate() error {
	if i.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be at least 1, got %d", i.DefaultLimit)
	}

	if i.ProbeTimeout < 1 {
		return fmt.Errorf("probe_timeout must be at least 1 second, got %d", i.ProbeTimeout)
	}

	return nil
}

// Backend names the index backend selected by this configuration
func (i *IndexConfig) Backend() string {
	switch {
	case i.RedisURL != "":
		return "redis"
	case i.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReadTimeout returns the read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}

// GetProbeTimeout returns the index startup probe budget as a time.Duration
func (i *IndexConfig) GetProbeTimeout() time.Duration {
	return time.Duration(i.ProbeTimeout) * time.Second
}
