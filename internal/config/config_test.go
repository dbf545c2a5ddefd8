package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sindri.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
ollama_host: http://localhost:11434
extra_field: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
ollama_host: http://gpu-box:11434
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OllamaHost != "http://gpu-box:11434" {
		t.Errorf("OllamaHost = %q, want override honored", cfg.OllamaHost)
	}
	if cfg.DefaultModel != "qwen2.5-coder:14b" {
		t.Errorf("DefaultModel default not applied: %q", cfg.DefaultModel)
	}
	if cfg.MaxIterations != 50 {
		t.Errorf("MaxIterations default not applied: %d", cfg.MaxIterations)
	}
	if cfg.DBPath != filepath.Join(cfg.DataDir, "sindri.db") {
		t.Errorf("DBPath not derived from DataDir: %q", cfg.DBPath)
	}
}

func TestLoadRejectsReserveAboveTotal(t *testing.T) {
	path := writeConfig(t, `
total_vram_gb: 8
reserve_vram_gb: 8
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when reserve_vram_gb >= total_vram_gb")
	}
}

func TestLoadRejectsModelOverridesExceedingBudget(t *testing.T) {
	path := writeConfig(t, `
total_vram_gb: 10
reserve_vram_gb: 2
models:
  big-model:
    vram_gb: 9
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when model overrides exceed available VRAM")
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(basePath, []byte("default_model: llama3.1:8b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mainPath := filepath.Join(dir, "sindri.yaml")
	if err := os.WriteFile(mainPath, []byte("$include: base.yaml\nollama_host: http://localhost:11434\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultModel != "llama3.1:8b" {
		t.Errorf("included default_model not merged: %q", cfg.DefaultModel)
	}
}

func TestDefaultReturnsUsableConfig(t *testing.T) {
	cfg := Default()
	if cfg.CompletionMarker != "<sindri:complete/>" {
		t.Errorf("CompletionMarker = %q", cfg.CompletionMarker)
	}
	if cfg.StuckThreshold != 3 || cfg.CheckpointInterval != 5 {
		t.Errorf("unexpected loop tuning defaults: %+v", cfg)
	}
}
