package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loomworks/loom/internal/context"
)

// maxUsageEntries bounds the persisted per-turn usage records
const maxUsageEntries = 200

// Manager handles all persistence operations for the .loom directory
type Manager struct {
	rootDir     string // .loom directory path
	mu          sync.RWMutex
	preferences *Preferences
	usage       *UsageLog
}

// NewManager creates a new storage manager for the given project root
func NewManager(projectRoot string) (*Manager, error) {
	m := &Manager{
		rootDir: filepath.Join(projectRoot, ".loom"),
	}

	// Ensure directory structure exists
	if err := m.ensureDirectories(); err != nil {
		return nil, err
	}

	// Load existing data
	if err := m.loadAll(); err != nil {
		return nil, err
	}

	return m, nil
}

// GetRootDir returns the .loom directory path
func (m *Manager) GetRootDir() string {
	return m.rootDir
}

func (m *Manager) ensureDirectories() error {
	dirs := []string{
		m.rootDir,
		filepath.Join(m.rootDir, "context"),
		filepath.Join(m.rootDir, "context", "summaries"),
		filepath.Join(m.rootDir, "state"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func (m *Manager) loadAll() error {
	// Load preferences; a corrupt file falls back to defaults
	m.preferences = DefaultPreferences()
	prefsPath := filepath.Join(m.rootDir, "state", "preferences.json")
	if data, err := os.ReadFile(prefsPath); err == nil {
		json.Unmarshal(data, m.preferences)
	}

	// Load usage log
	m.usage = &UsageLog{}
	usagePath := filepath.Join(m.rootDir, "state", "usage.json")
	if data, err := os.ReadFile(usagePath); err == nil {
		json.Unmarshal(data, m.usage)
	}

	return nil
}

// ============= Usage Accounting =============

// RecordUsage appends one turn's token accounting and updates the total
func (m *Manager) RecordUsage(model string, usage TokenUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage.Total.Add(usage)
	m.usage.Entries = append(m.usage.Entries, UsageEntry{
		ID:        uuid.New().String(),
		Model:     model,
		Timestamp: time.Now(),
		Usage:     usage,
	})

	// Trim if exceeding max entries
	if len(m.usage.Entries) > maxUsageEntries {
		m.usage.Entries = m.usage.Entries[len(m.usage.Entries)-maxUsageEntries:]
	}

	return m.saveUsage()
}

// GetUsage returns a copy of the aggregate usage log
func (m *Manager) GetUsage() *UsageLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usageLog := UsageLog{Total: m.usage.Total}
	usageLog.Entries = make([]UsageEntry, len(m.usage.Entries))
	copy(usageLog.Entries, m.usage.Entries)
	return &usageLog
}

func (m *Manager) saveUsage() error {
	usagePath := filepath.Join(m.rootDir, "state", "usage.json")
	data, err := json.MarshalIndent(m.usage, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage log: %w", err)
	}
	return os.WriteFile(usagePath, data, 0644)
}

// ============= Context Management =============

// SaveProjectContext saves the project context to disk
func (m *Manager) SaveProjectContext(ctx *context.ProjectContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	contextPath := filepath.Join(m.rootDir, "context", "project.json")
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project context: %w", err)
	}
	return os.WriteFile(contextPath, data, 0644)
}

// LoadProjectContext loads the project context from disk
func (m *Manager) LoadProjectContext() (*context.ProjectContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contextPath := filepath.Join(m.rootDir, "context", "project.json")
	data, err := os.ReadFile(contextPath)
	if err != nil {
		return nil, nil // Not found is not an error
	}

	var ctx context.ProjectContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("failed to parse project context: %w", err)
	}

	return &ctx, nil
}

// SaveFileSummary saves an individual file analysis to disk
func (m *Manager) SaveFileSummary(path string, analysis *context.FileAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	safeName := sanitizeFilename(path)
	summaryPath := filepath.Join(m.rootDir, "context", "summaries", safeName+".json")

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file analysis: %w", err)
	}
	return os.WriteFile(summaryPath, data, 0644)
}

// ============= Preferences =============

// GetPreferences returns the current preferences
func (m *Manager) GetPreferences() *Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy
	prefs := *m.preferences
	return &prefs
}

// SavePreferences saves the preferences to disk
func (m *Manager) SavePreferences(prefs *Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.preferences = prefs
	prefsPath := filepath.Join(m.rootDir, "state", "preferences.json")
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	return os.WriteFile(prefsPath, data, 0644)
}

// filenameSanitizer maps path characters that cannot appear in a filename
var filenameSanitizer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// sanitizeFilename creates a safe filename from a path
func sanitizeFilename(path string) string {
	return filenameSanitizer.Replace(filepath.ToSlash(path))
}
