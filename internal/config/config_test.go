package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Annotator.Tolerance != 5 {
		t.Errorf("Expected tolerance 5, got %f", cfg.Annotator.Tolerance)
	}
	if cfg.Annotator.ClassOrdering != "sorted" {
		t.Errorf("Expected sorted ordering, got %q", cfg.Annotator.ClassOrdering)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Export.Format = "json"
	cfg.Annotator.Classes = []string{"cat", "dog"}
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Export.Format != "json" {
		t.Errorf("Expected json format, got %q", loaded.Export.Format)
	}
	if len(loaded.Annotator.Classes) != 2 || loaded.Annotator.Classes[1] != "dog" {
		t.Errorf("Unexpected classes %v", loaded.Annotator.Classes)
	}
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("export:\n  format: parquet\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Export.Format != "parquet" {
		t.Errorf("Expected parquet, got %q", cfg.Export.Format)
	}
	if cfg.Export.Concurrency != 4 || cfg.Vision.SendQuality != 85 {
		t.Errorf("Defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Vision.Backend == "" {
		t.Error("Expected default backend")
	}
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("export: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"ANNOTATOR_TOLERANCE":      "7.5",
		"ANNOTATOR_CLASS_ORDERING": "insertion",
		"ANNOTATOR_CLASSES":        "cat, dog,,bird",
		"ANNOTATOR_CONCURRENCY":    "2",
		"ANNOTATOR_VISION_BACKEND": "saliency",
		"ANNOTATOR_OUTPUT_DIR":     "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Annotator.Tolerance != 7.5 {
		t.Errorf("Expected tolerance 7.5, got %f", cfg.Annotator.Tolerance)
	}
	if cfg.Annotator.ClassOrdering != "insertion" {
		t.Errorf("Expected insertion, got %q", cfg.Annotator.ClassOrdering)
	}
	if strings.Join(cfg.Annotator.Classes, "|") != "cat|dog|bird" {
		t.Errorf("Unexpected classes %v", cfg.Annotator.Classes)
	}
	if cfg.Export.Concurrency != 2 || cfg.Vision.Backend != "saliency" {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.Export.OutputDir != "./annotations" {
		t.Errorf("Empty variable should not override, got %q", cfg.Export.OutputDir)
	}
}

func TestApplyEnvBadNumber(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyEnv(envMap(map[string]string{"ANNOTATOR_CONCURRENCY": "many"})); err == nil {
		t.Error("Expected error for non-numeric concurrency")
	}
	if err := cfg.ApplyEnv(envMap(map[string]string{"ANNOTATOR_TOLERANCE": "wide"})); err == nil {
		t.Error("Expected error for non-numeric tolerance")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative tolerance", func(c *Config) { c.Annotator.Tolerance = -1 }},
		{"bad ordering", func(c *Config) { c.Annotator.ClassOrdering = "random" }},
		{"bad format", func(c *Config) { c.Export.Format = "xml" }},
		{"zero concurrency", func(c *Config) { c.Export.Concurrency = 0 }},
		{"bad backend", func(c *Config) { c.Vision.Backend = "openai" }},
		{"bad send format", func(c *Config) { c.Vision.SendFormat = "gif" }},
		{"negative send size", func(c *Config) { c.Vision.SendSize = -1 }},
		{"send quality", func(c *Config) { c.Vision.SendQuality = 101 }},
		{"overlay format", func(c *Config) { c.Overlay.Format = "bmp" }},
		{"overlay quality", func(c *Config) { c.Overlay.Quality = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	if !strings.HasSuffix(GetConfigPath(), "config.yaml") {
		t.Errorf("Unexpected config path %q", GetConfigPath())
	}
}
