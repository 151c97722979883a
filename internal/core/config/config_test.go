package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symscope.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
watch_paths = ["./src"]

[languages.cpp]
extensions = [".cpp", ".hpp"]

[languages.c]
enabled = false

[exclude]
dirs = [".git", "third_party"]
files = ["*_generated.h"]
symbols = ["__builtin_*"]

[analysis]
workers = 3
report_ambiguous = false
max_file_bytes = 1024

[db]
enabled = true
path = "history.db"
project_key = "engine"

[watch]
debounce = "1s"
rate_per_second = 0.5
burst = 2

[observability]
metrics_address = "127.0.0.1:9464"

[output]
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.WatchPaths) != 1 || cfg.WatchPaths[0] != "./src" {
		t.Errorf("unexpected watch_paths: %v", cfg.WatchPaths)
	}
	if cfg.Analysis.Workers != 3 || cfg.Analysis.MaxFileBytes != 1024 {
		t.Errorf("unexpected analysis settings: %+v", cfg.Analysis)
	}
	if !cfg.Analysis.UnresolvedEnabled() || cfg.Analysis.AmbiguousEnabled() {
		t.Errorf("unexpected report flags: unresolved=%v ambiguous=%v",
			cfg.Analysis.UnresolvedEnabled(), cfg.Analysis.AmbiguousEnabled())
	}
	if !cfg.DB.Enabled || cfg.DB.ProjectKey != "engine" || cfg.DB.BusyTimeout != 2*time.Second {
		t.Errorf("unexpected db settings: %+v", cfg.DB)
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.RatePerSecond != 0.5 || cfg.Watch.Burst != 2 {
		t.Errorf("unexpected watch settings: %+v", cfg.Watch)
	}
	if cfg.Observability.ServiceName != "symscope" {
		t.Errorf("expected default service name, got %q", cfg.Observability.ServiceName)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected json output, got %q", cfg.Output.Format)
	}

	exts := cfg.ExtensionMap()
	if exts[".cpp"] != "cpp" || exts[".hpp"] != "cpp" {
		t.Errorf("expected cpp extensions, got %v", exts)
	}
	if _, ok := exts[".c"]; ok {
		t.Errorf("expected disabled c language to contribute no extensions, got %v", exts)
	}
	if _, ok := exts[".h"]; ok {
		t.Errorf("expected configured extensions to replace the defaults, got %v", exts)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if len(cfg.WatchPaths) != 1 || cfg.WatchPaths[0] != "." {
		t.Errorf("unexpected default watch_paths: %v", cfg.WatchPaths)
	}
	if cfg.DB.Enabled {
		t.Error("expected history to be disabled by default")
	}
	if cfg.Analysis.Workers < 1 {
		t.Errorf("expected at least one worker, got %d", cfg.Analysis.Workers)
	}
	exts := cfg.ExtensionMap()
	if exts[".c"] != "c" || exts[".h"] != "cpp" || exts[".cc"] != "cpp" {
		t.Errorf("unexpected default extension map: %v", exts)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("expected defaults to validate, got %v", errs)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"version", "version = 7", "unsupported config version 7"},
		{"language", "[languages.rust]\nextensions = [\".rs\"]", "languages.rust is not supported"},
		{"glob", "[exclude]\nsymbols = [\"[unclosed\"]", "exclude.symbols[0]"},
		{"format", "[output]\nformat = \"xml\"", "output.format must be one of"},
		{"burst", "[watch]\nburst = -1", "watch.burst must be >= 1"},
		{"keep runs", "[db]\nkeep_runs = -3", "db.keep_runs must be >= 0"},
		{"extension clash", "[languages.c]\nextensions = [\".h\"]", "is claimed by both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "[output]\nformat = \"text\"\n")

	got := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case got <- cfg:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[output]\nformat = \"json\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-got:
		if cfg.Output.Format != "json" {
			t.Fatalf("expected reloaded format json, got %q", cfg.Output.Format)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
