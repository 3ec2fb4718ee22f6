package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Chunk.MaxTokens != 500 {
		t.Errorf("max tokens = %d", cfg.Chunk.MaxTokens)
	}
	if cfg.Worker.Interval() != 5*time.Second {
		t.Errorf("interval = %v", cfg.Worker.Interval())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9090"
db_path: /tmp/test.db
chunk:
  max_tokens: 256
embed:
  endpoint: http://localhost:11434
  model: nomic-embed-text
  dimension: 768
worker:
  batch_size: 3
  interval_secs: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9090" || cfg.DBPath != "/tmp/test.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Chunk.MaxTokens != 256 {
		t.Errorf("max tokens = %d", cfg.Chunk.MaxTokens)
	}
	if cfg.Embed.Dimension != 768 {
		t.Errorf("dimension = %d", cfg.Embed.Dimension)
	}
	if cfg.Worker.Interval() != 2*time.Second {
		t.Errorf("interval = %v", cfg.Worker.Interval())
	}
	// Unset fields still get defaults.
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Addr)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GRANTVEC_ADDR", ":7070")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("addr = %q", cfg.Addr)
	}
}
