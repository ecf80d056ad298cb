package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != DefaultModel {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.Backend != "file" {
		t.Fatalf("backend = %q", cfg.Backend)
	}
	if cfg.BaseURL == "" || cfg.StorageRoot == "" {
		t.Fatalf("defaults not filled: %+v", cfg)
	}
	if cfg.APIKey != "" {
		t.Fatalf("api key should be empty without env or file")
	}
}

func TestLoadConfigEnvKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "env-secret" {
		t.Fatalf("api key = %q", cfg.APIKey)
	}
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")

	in := Config{
		APIKey:      "file-secret",
		BaseURL:     "http://localhost:8080/v1beta",
		Model:       "gemini-3-pro-preview",
		StorageRoot: "/tmp/integen-test",
		Backend:     "sqlite",
	}
	if err := SaveConfig(in, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config perms = %v, want 0600 (holds the api key)", info.Mode().Perm())
	}
}

func TestLoadConfigMalformedYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n\t bad"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
