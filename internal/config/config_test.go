package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Index.Exclude.Dirs) == 0 {
		t.Error("expected default excluded dirs")
	}
	if cfg.Index.Workers < 1 {
		t.Errorf("expected positive default workers, got %d", cfg.Index.Workers)
	}
	if cfg.Index.DataDir != ".symgraph" {
		t.Errorf("expected .symgraph data dir, got %q", cfg.Index.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for nonexistent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
index:
  data_dir: /var/lib/symgraph
  workers: 2
  exclude:
    dirs:
      - build
      - custom_exclude

log:
  format: json

server:
  port: 9000
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Index.Exclude.Dirs) != 2 {
		t.Errorf("expected 2 excluded dirs, got %d", len(cfg.Index.Exclude.Dirs))
	}
	if cfg.Index.Exclude.Dirs[1] != "custom_exclude" {
		t.Errorf("expected custom_exclude, got %s", cfg.Index.Exclude.Dirs[1])
	}
	if cfg.Index.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Index.Workers)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Log.Format)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default level to survive, got %q", cfg.Log.Level)
	}
	if len(cfg.Index.EventsGlob) != 1 || cfg.Index.EventsGlob[0] != "*.jsonl" {
		t.Errorf("expected default events glob, got %v", cfg.Index.EventsGlob)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if got := cfg.DataDirFor("/src"); got != "/var/lib/symgraph" {
		t.Errorf("absolute data dir should be kept, got %q", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative workers", "index:\n  workers: -1\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad yaml", "index: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadUncappedDiagnostics(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("index:\n  max_diagnostics: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("negative max_diagnostics should load: %v", err)
	}
	if cfg.Index.MaxDiagnostics != -1 {
		t.Errorf("expected -1, got %d", cfg.Index.MaxDiagnostics)
	}
}

func TestLoadTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := "trace:\n  enabled: true\n  output: spans.json\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Trace.Enabled || cfg.Trace.Output != "spans.json" {
		t.Errorf("unexpected trace config %+v", cfg.Trace)
	}
	if Default().Trace.Enabled {
		t.Error("tracing should be off by default")
	}
}

func TestIsExcludedDir(t *testing.T) {
	cfg := Default()

	tests := []struct {
		dir      string
		excluded bool
	}{
		{".git", true},
		{"/path/to/node_modules", true},
		{"third_party", true},
		{"src", false},
		{"events", false},
	}

	for _, tt := range tests {
		got := cfg.IsExcludedDir(tt.dir)
		if got != tt.excluded {
			t.Errorf("IsExcludedDir(%q) = %v, want %v", tt.dir, got, tt.excluded)
		}
	}
}

func TestIsEventLog(t *testing.T) {
	cfg := Default()
	cfg.Index.Exclude.FilesGlob = append(cfg.Index.Exclude.FilesGlob, "**/skip/**")

	tests := []struct {
		path string
		want bool
	}{
		{"unit.jsonl", true},
		{"out/lib/unit.jsonl", true},
		{"out/unit.json", false},
		{"out/unit.tmp.jsonl", false},
		{"out/skip/unit.jsonl", false},
		{"skip/unit.jsonl", false},
	}

	for _, tt := range tests {
		got := cfg.IsEventLog(tt.path)
		if got != tt.want {
			t.Errorf("IsEventLog(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDataDirFor(t *testing.T) {
	cfg := Default()
	if got, want := cfg.DataDirFor("/src"), filepath.Join("/src", ".symgraph"); got != want {
		t.Errorf("DataDirFor = %q, want %q", got, want)
	}
}
