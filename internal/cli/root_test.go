package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/roi-annotator/internal/config"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspectCmd(t *testing.T) {
	dir := imageDir(t)

	got, err := execute(t, "", "inspect", dir)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(got, "a.png\t800x600") || !strings.Contains(got, "2 images") {
		t.Errorf("Unexpected output %q", got)
	}

	got, err = execute(t, "", "inspect", "--json", dir)
	if err != nil {
		t.Fatalf("inspect --json failed: %v", err)
	}
	if !strings.Contains(got, `"id": "b.png"`) {
		t.Errorf("Unexpected JSON output %q", got)
	}

	if _, err := execute(t, "", "inspect", filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for a missing directory")
	}
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := execute(t, "", "config", "init", "--config", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := execute(t, "", "config", "init", "--config", path); err == nil {
		t.Error("Expected config init to refuse overwriting")
	}
	if _, err := execute(t, "", "config", "init", "--force", "--config", path); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}

	got, err := execute(t, "", "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(got, "class_ordering: sorted") || !strings.Contains(got, "format: yolo") {
		t.Errorf("Unexpected config output %q", got)
	}
}

func TestSessionCmd(t *testing.T) {
	dir := imageDir(t)
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "absent.yaml")
	labels := filepath.Join(tmp, "labels")

	script := filepath.Join(tmp, "script.txt")
	body := "class person\ndraw 0 0 400 300\nexport json " + labels + "\n"
	if err := os.WriteFile(script, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := execute(t, "", "session", dir, "--script", script, "--no-vision", "--config", cfgPath)
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if !strings.Contains(got, "wrote 2 of 2 files") {
		t.Errorf("Unexpected output %q", got)
	}
	data, err := os.ReadFile(filepath.Join(labels, "a_annotations.json"))
	if err != nil {
		t.Fatalf("JSON export missing: %v", err)
	}
	if !strings.Contains(string(data), `"label": "person"`) {
		t.Errorf("Unexpected JSON export %s", data)
	}
}

func TestSessionCmdStdin(t *testing.T) {
	dir := imageDir(t)
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	got, err := execute(t, "current\nnext\nnext\nquit\n", "session", dir, "--config", cfgPath)
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if strings.Count(got, "b.png 400x200 (2/2)") != 2 {
		t.Errorf("Expected navigation to stop at the last image, got %q", got)
	}
}

func TestNewVisionClient(t *testing.T) {
	cfg := config.Default().Vision
	for _, backend := range []string{"ollama", "llamacpp", "saliency"} {
		cfg.Backend = backend
		if _, err := newVisionClient(cfg); err != nil {
			t.Errorf("backend %s: %v", backend, err)
		}
	}
	cfg.Backend = "other"
	if _, err := newVisionClient(cfg); err == nil {
		t.Error("Expected error for an unknown backend")
	}
}
