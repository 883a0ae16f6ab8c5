package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func TestLoadWritesDefaults(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxToolRounds != 50 {
		t.Errorf("MaxToolRounds = %d, want 50", cfg.MaxToolRounds)
	}
	if cfg.Ingest.ChunkSize != 256 || cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("ingest defaults = %+v", cfg.Ingest)
	}
	if cfg.Ingest.MaxTextChars != 30000 {
		t.Errorf("MaxTextChars = %d, want 30000", cfg.Ingest.MaxTextChars)
	}
	if cfg.ResetSchedule != "@every 1h" {
		t.Errorf("ResetSchedule = %q", cfg.ResetSchedule)
	}
	if cfg.Embedder.Type != "hashing" {
		t.Errorf("Embedder.Type = %q", cfg.Embedder.Type)
	}

	// The default file should now exist and be valid JSON.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("defaults were not written: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("written defaults are not valid JSON: %v", err)
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		DataDir:       "/tmp/test-data",
		LogLevel:      "debug",
		HTTPAddr:      ":9000",
		MaxConcurrent: 4,
		MaxToolRounds: 20,
	}
	original.LLM.Provider = "openai"
	original.LLM.BaseURL = "https://api.groq.com/openai/v1"
	original.LLM.APIKey = "sk-test-round-trip"
	original.LLM.Model = "llama-3.1-8b-instant"
	original.Ingest.ChunkSize = 300

	if err := Save(path, original); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DataDir != original.DataDir || loaded.HTTPAddr != original.HTTPAddr {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("LLM.Model = %q", loaded.LLM.Model)
	}
	if loaded.Ingest.ChunkSize != 300 {
		t.Errorf("Ingest.ChunkSize = %d", loaded.Ingest.ChunkSize)
	}
}

func TestEnvOverride(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("GROQ_API_KEY", "gsk-from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "gsk-from-env" {
		t.Errorf("APIKey = %q, want env value", cfg.LLM.APIKey)
	}
}

func TestUploadDir(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/docchat"}
	if got := cfg.UploadDir(); got != filepath.Join("/tmp/docchat", "uploads") {
		t.Errorf("UploadDir = %q", got)
	}
}

func TestListValuesMasksSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.APIKey = "sk-secret-value-1234"

	values, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues: %v", err)
	}
	if values["llm.api_key"] != "***1234" {
		t.Errorf("llm.api_key = %v, want masked", values["llm.api_key"])
	}
}

func TestGetSetValue(t *testing.T) {
	path := tempConfigPath(t)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := SetValue(path, "llm.model", "llama-3.3-70b-versatile"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	val, err := GetValue(path, "llm.model")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if val != "llama-3.3-70b-versatile" {
		t.Errorf("llm.model = %v", val)
	}

	if err := SetValue(path, "max_concurrent", "8"); err != nil {
		t.Fatalf("SetValue numeric: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.MaxConcurrent)
	}
}

func TestGetValueUnknownKey(t *testing.T) {
	path := tempConfigPath(t)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := GetValue(path, "no.such.key"); err == nil {
		t.Error("expected an error for an unknown key")
	}
}
