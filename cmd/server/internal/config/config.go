// Package config loads the server configuration: a YAML file for deployment
// defaults, overridden by environment variables. Provider endpoints are not
// here; they live in the runtime-editable settings store.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Data     DataConfig     `yaml:"data"`
	Media    MediaConfig    `yaml:"media"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Env  string `yaml:"env" env:"ENV" envDefault:"dev"`
	Port string `yaml:"port" env:"PORT" envDefault:"8000"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" envDefault:"info"`
	FilePath string `yaml:"file_path" env:"LOG_FILE_PATH"`
}

// DataConfig holds filesystem locations.
type DataConfig struct {
	TempDir      string `yaml:"temp_dir" env:"TEMP_DIR"`
	SettingsPath string `yaml:"settings_path" env:"MODEL_CONFIG_PATH" envDefault:"./data/model_settings.json"`
}

// MediaConfig holds external media tool paths.
type MediaConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string `yaml:"ffprobe_path" env:"FFPROBE_PATH" envDefault:"ffprobe"`
}

// PipelineConfig holds the chunking and admission knobs consumed by the
// orchestrator and the admission controller.
type PipelineConfig struct {
	ChunkLengthSec    float64 `yaml:"chunk_length_sec" env:"CHUNK_LENGTH_SEC" envDefault:"25"`
	OverlapSec        float64 `yaml:"overlap_sec" env:"CHUNK_OVERLAP_SEC" envDefault:"1"`
	MaxSingleChunkSec float64 `yaml:"max_single_chunk_sec" env:"MAX_SINGLE_CHUNK_SEC" envDefault:"30"`

	JobConcurrency         int `yaml:"job_concurrency" env:"JOB_CONCURRENCY" envDefault:"1"`
	DiarizationConcurrency int `yaml:"diarization_concurrency" env:"DIARIZATION_CONCURRENCY" envDefault:"4"`

	RateLimitWindowSec int `yaml:"rate_limit_window_sec" env:"RATE_LIMIT_WINDOW_SEC" envDefault:"60"`
	RateLimitCap       int `yaml:"rate_limit_cap" env:"RATE_LIMIT_CAP" envDefault:"10"`

	ProviderTimeoutSec int `yaml:"provider_timeout_sec" env:"PROVIDER_TIMEOUT_SEC" envDefault:"120"`
}

// ProviderTimeout returns the provider call timeout as a duration.
func (p PipelineConfig) ProviderTimeout() time.Duration {
	return time.Duration(p.ProviderTimeoutSec) * time.Second
}

// RateLimitWindow returns the rate-limit window as a duration.
func (p PipelineConfig) RateLimitWindow() time.Duration {
	return time.Duration(p.RateLimitWindowSec) * time.Second
}

// Load reads the optional YAML file named by CONFIG_PATH (or configPath when
// non-empty) and then applies environment overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Data.TempDir == "" {
		cfg.Data.TempDir = os.TempDir()
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	p := cfg.Pipeline
	if p.ChunkLengthSec <= 0 {
		errs = append(errs, fmt.Sprintf("CHUNK_LENGTH_SEC must be positive, got %g", p.ChunkLengthSec))
	}
	if p.OverlapSec < 0 || p.OverlapSec >= p.ChunkLengthSec {
		errs = append(errs, fmt.Sprintf("CHUNK_OVERLAP_SEC must satisfy 0 <= overlap < chunk length, got %g", p.OverlapSec))
	}
	if p.MaxSingleChunkSec <= 0 {
		errs = append(errs, fmt.Sprintf("MAX_SINGLE_CHUNK_SEC must be positive, got %g", p.MaxSingleChunkSec))
	}
	if p.JobConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("JOB_CONCURRENCY must be at least 1, got %d", p.JobConcurrency))
	}
	if p.DiarizationConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("DIARIZATION_CONCURRENCY must be at least 1, got %d", p.DiarizationConcurrency))
	}
	if p.RateLimitWindowSec < 1 {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_WINDOW_SEC must be at least 1, got %d", p.RateLimitWindowSec))
	}
	if p.RateLimitCap < 1 {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_CAP must be at least 1, got %d", p.RateLimitCap))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// GetServerAddr returns the listen address.
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "prod" || c.Server.Env == "production"
}
