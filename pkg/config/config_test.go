package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
oracle:
  endpoint: https://oracle.example.com/v1/chat/completions
  model: planner-large
  api_key_env: ORACLE_KEY
tool: execute
context:
  project:
    alpha:
      path: /srv/alpha
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Oracle.Model != "planner-large" {
		t.Errorf("model = %q", cfg.Oracle.Model)
	}

	ctx := cfg.PlaceholderContext()
	val, ok := ctx.Lookup("project.alpha.path")
	if !ok || val != "/srv/alpha" {
		t.Errorf("Lookup = %q, %v", val, ok)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "oracel:\n  model: typo\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tool != "execute" || cfg.Oracle.Model == "" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("PLANRUN_TEST_KEY", "sk-123")
	cfg := Default()
	cfg.Oracle.APIKeyEnv = "PLANRUN_TEST_KEY"
	if got := cfg.APIKey(); got != "sk-123" {
		t.Errorf("APIKey = %q", got)
	}

	cfg.Oracle.APIKeyEnv = ""
	if got := cfg.APIKey(); got != "" {
		t.Errorf("APIKey with no env var = %q, want empty", got)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "tool: answer\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tool != "answer" {
		t.Errorf("tool = %q", cfg.Tool)
	}
	if cfg.Oracle.Endpoint == "" {
		t.Error("default endpoint lost")
	}
}
