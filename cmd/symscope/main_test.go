package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"symscope/internal/core/app"
	"symscope/internal/data/history"
	"symscope/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	cfgPath = filepath.Join(t.TempDir(), "symscope.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version = 1\n"), 0o644))
	return dir, cfgPath
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(*testing.T, options)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, o options) {
				assert.Equal(t, defaultConfigPath, o.configPath)
				assert.False(t, o.watch)
				assert.Empty(t, o.paths)
			},
		},
		{
			name: "paths and switches",
			args: []string{"-json", "-verbose", "-history", "5", "src", "include"},
			check: func(t *testing.T, o options) {
				assert.True(t, o.json)
				assert.True(t, o.verbose)
				assert.Equal(t, 5, o.history)
				assert.Equal(t, []string{"src", "include"}, o.paths)
			},
		},
		{name: "once with watch", args: []string{"-once", "-watch"}, wantErr: "cannot be used together"},
		{name: "negative history", args: []string{"-history", "-1"}, wantErr: "must not be negative"},
		{name: "unknown flag", args: []string{"-bogus"}, wantErr: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, &bytes.Buffer{})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"-version"}, &stdout, &stderr))
	assert.Equal(t, "symscope v"+VERSION+"\n", stdout.String())
}

func TestRun_CleanProject(t *testing.T) {
	dir, cfgPath := writeProject(t, map[string]string{
		"add.c": "int add(int a, int b) { return a + b; }\n",
	})
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfgPath, "-once", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "No diagnostics")
	assert.Contains(t, stdout.String(), "Files: 1")
}

func TestRun_JSONReportWithDiagnostics(t *testing.T) {
	dir, cfgPath := writeProject(t, map[string]string{
		"diamond.cpp": "struct L { int x; };\nstruct R { int x; };\nstruct D : L, R { int f() { return x; } };\n",
	})
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfgPath, "-json", dir}, &stdout, &stderr)
	require.Equal(t, 3, code, stderr.String())

	var report app.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, 1, report.FileCount)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "AMBIGUOUS", report.Diagnostics[0].Code)
	assert.Len(t, report.Diagnostics[0].Candidates, 2)
}

func TestRun_BadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version = 9\n"), 0o644))
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-config", cfgPath}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "failed to load config")
}

func TestRun_HistoryRequiresDatabase(t *testing.T) {
	_, cfgPath := writeProject(t, nil)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-config", cfgPath, "-history", "3"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "run history is disabled")
}

func TestFormatReport(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := &app.Report{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		FileCount:  2,
		Diagnostics: []parser.Diagnostic{
			{Code: "NOT_FOUND", Symbol: "y", Message: "y not found", Location: parser.Location{File: "a.c", Line: 3, Column: 9}},
			{Code: "AMBIGUOUS", Symbol: "x", Message: "x is ambiguous", Candidates: []string{"variable L::x", "variable R::x"},
				Location: parser.Location{File: "b.cpp", Line: 4, Column: 36}},
		},
		Suppressed: 2,
		Skipped:    []string{"huge.cpp"},
	}
	out := formatReport(report)
	for _, want := range []string{
		"run run-1, 1.5s",
		"AMBIGUOUS 1",
		"NOT_FOUND 1",
		"a.c:3:9",
		"candidate variable R::x",
		"2 diagnostics suppressed",
		"skipped (too large) huge.cpp",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "No diagnostics")
}

func TestFormatTrend(t *testing.T) {
	points := []history.TrendPoint{
		{RunID: "a", StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Diagnostics: 4, ResolvedPct: 90},
		{RunID: "b", StartedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Diagnostics: 2, DeltaDiagnostics: -2, ResolvedPct: 95.5},
	}
	out := formatTrend(points)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "diagnostics 4 (+0)")
	assert.Contains(t, lines[2], "-2")
	assert.Contains(t, lines[2], "95.50%")
}
