// Package config loads the application configuration: a YAML file for
// structure, a .env file (when present) and environment variables for
// secrets. Env values override file values for the keys that carry
// credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Addr     string         `yaml:"addr"`
	DBPath   string         `yaml:"db_path"`
	BlobDir  string         `yaml:"blob_dir"`
	BaseURL  string         `yaml:"base_url"`
	Secret   string         `yaml:"secret"`
	Chunk    ChunkConfig    `yaml:"chunk"`
	Embed    EmbedConfig    `yaml:"embed"`
	LLM      LLMConfig      `yaml:"llm"`
	Worker   WorkerConfig   `yaml:"worker"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ChunkConfig controls text chunking behaviour.
type ChunkConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// EmbedConfig configures the embedding provider. An empty endpoint selects
// the deterministic offline embedder, which is useful for development.
type EmbedConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig configures the language-model provider.
type LLMConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	ChatModel       string `yaml:"chat_model"`
	TranscribeModel string `yaml:"transcribe_model"`
	VisionModel     string `yaml:"vision_model"`
}

// WorkerConfig controls the background queue worker.
type WorkerConfig struct {
	BatchSize    int `yaml:"batch_size"`
	IntervalSecs int `yaml:"interval_secs"`
}

// Interval is the pause between worker passes.
func (w WorkerConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSecs) * time.Second
}

// PipelineConfig controls processing limits.
type PipelineConfig struct {
	MaxBlobBytes int64 `yaml:"max_blob_bytes"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "grantvec.db"
	}
	if c.BlobDir == "" {
		c.BlobDir = "blobs"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.Chunk.MaxTokens <= 0 {
		c.Chunk.MaxTokens = 500
	}
	if c.Embed.APIKeyEnv == "" {
		c.Embed.APIKeyEnv = "EMBED_API_KEY"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Worker.BatchSize <= 0 {
		c.Worker.BatchSize = 10
	}
	if c.Worker.IntervalSecs <= 0 {
		c.Worker.IntervalSecs = 5
	}
}

// EmbedAPIKey resolves the embedding provider's API key from the environment.
func (c *Config) EmbedAPIKey() string {
	return os.Getenv(c.Embed.APIKeyEnv)
}

// LLMAPIKey resolves the language-model provider's API key from the
// environment.
func (c *Config) LLMAPIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Load reads the config file at path (missing file means all defaults) after
// loading a .env file when one exists next to the working directory.
func Load(path string) (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if v := os.Getenv("GRANTVEC_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("GRANTVEC_DB"); v != "" {
		cfg.DBPath = v
	}
	cfg.defaults()
	return cfg, nil
}
