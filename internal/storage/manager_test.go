package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loomworks/loom/internal/context"
)

func setupTestDir(t *testing.T) string {
	tmpDir, err := os.MkdirTemp("", "loom-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})
	return tmpDir
}

// Test directory layout creation
func TestManagerCreatesDirectories(t *testing.T) {
	dir := setupTestDir(t)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	if m.GetRootDir() != filepath.Join(dir, ".loom") {
		t.Errorf("unexpected root dir: %s", m.GetRootDir())
	}

	for _, sub := range []string{"context", filepath.Join("context", "summaries"), "state"} {
		path := filepath.Join(m.GetRootDir(), sub)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", path)
		}
	}
}

// Test usage recording and persistence
func TestRecordUsage(t *testing.T) {
	dir := setupTestDir(t)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	if err := m.RecordUsage("qwen", TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}); err != nil {
		t.Fatalf("RecordUsage error: %v", err)
	}
	if err := m.RecordUsage("qwen", TokenUsage{PromptTokens: 50, CompletionTokens: 10, TotalTokens: 60}); err != nil {
		t.Fatalf("RecordUsage error: %v", err)
	}

	usage := m.GetUsage()
	if usage.Total.PromptTokens != 150 || usage.Total.CompletionTokens != 30 || usage.Total.TotalTokens != 180 {
		t.Errorf("unexpected total: %+v", usage.Total)
	}
	if len(usage.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(usage.Entries))
	}
	if usage.Entries[0].ID == "" || usage.Entries[0].Model != "qwen" {
		t.Errorf("unexpected entry: %+v", usage.Entries[0])
	}

	// A fresh manager sees the persisted log
	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m2.GetUsage().Total.TotalTokens != 180 {
		t.Errorf("usage not persisted: %+v", m2.GetUsage().Total)
	}
}

// Test that the entry list stays bounded while the total keeps counting
func TestUsageEntriesTrimmed(t *testing.T) {
	dir := setupTestDir(t)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	for i := 0; i < maxUsageEntries+5; i++ {
		if err := m.RecordUsage("qwen", TokenUsage{TotalTokens: 1}); err != nil {
			t.Fatalf("RecordUsage error: %v", err)
		}
	}

	usage := m.GetUsage()
	if len(usage.Entries) != maxUsageEntries {
		t.Errorf("expected %d entries, got %d", maxUsageEntries, len(usage.Entries))
	}
	if usage.Total.TotalTokens != maxUsageEntries+5 {
		t.Errorf("total should count trimmed entries, got %d", usage.Total.TotalTokens)
	}
}

// Test preferences defaults and round-trip
func TestPreferences(t *testing.T) {
	dir := setupTestDir(t)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	prefs := m.GetPreferences()
	if !prefs.AutoLoadContext {
		t.Error("expected AutoLoadContext default true")
	}

	prefs.PreferredModel = "llama3"
	prefs.ExcludeDirs = []string{"vendor"}
	if err := m.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences error: %v", err)
	}

	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	loaded := m2.GetPreferences()
	if loaded.PreferredModel != "llama3" || len(loaded.ExcludeDirs) != 1 {
		t.Errorf("preferences not persisted: %+v", loaded)
	}
}

// Test project context round-trip
func TestProjectContext(t *testing.T) {
	dir := setupTestDir(t)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	// Missing context is not an error
	loaded, err := m.LoadProjectContext()
	if err != nil || loaded != nil {
		t.Errorf("expected nil, nil for missing context, got %v, %v", loaded, err)
	}

	ctx := &context.ProjectContext{
		RootPath:    dir,
		ProjectType: "go",
		ModuleName:  "example.com/demo",
	}
	if err := m.SaveProjectContext(ctx); err != nil {
		t.Fatalf("SaveProjectContext error: %v", err)
	}

	loaded, err = m.LoadProjectContext()
	if err != nil {
		t.Fatalf("LoadProjectContext error: %v", err)
	}
	if loaded == nil || loaded.ProjectType != "go" || loaded.ModuleName != "example.com/demo" {
		t.Errorf("unexpected loaded context: %+v", loaded)
	}
}

// Test file summary naming
func TestSaveFileSummary(t *testing.T) {
	dir := setupTestDir(t)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	analysis := &context.FileAnalysis{Path: "cmd/server/main.go", Language: "go"}
	if err := m.SaveFileSummary("cmd/server/main.go", analysis); err != nil {
		t.Fatalf("SaveFileSummary error: %v", err)
	}

	expected := filepath.Join(m.GetRootDir(), "context", "summaries", "cmd_server_main.go.json")
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("expected summary file at %s: %v", expected, err)
	}
}
