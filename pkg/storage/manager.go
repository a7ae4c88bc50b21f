package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// maxNameRunes bounds the length of a sanitized file name stem
const maxNameRunes = 80

// Manager writes downloaded media and note metadata into one directory
type Manager struct {
	outputDir string
	overwrite bool
	saved     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates the output directory if needed. With overwrite unset
// existing files are kept and reported as already downloaded.
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
		saved:     make(map[string]bool),
	}, nil
}

// Path returns the full path for file name
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// IsDownloaded reports whether name exists and must not be written again
func (m *Manager) IsDownloaded(name string) bool {
	if m.overwrite {
		return false
	}

	m.mu.RLock()
	cached := m.saved[name]
	m.mu.RUnlock()
	if cached {
		return true
	}

	if _, err := os.Stat(m.Path(name)); err == nil {
		m.mu.Lock()
		m.saved[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save writes r to name atomically and returns the number of bytes written
func (m *Manager) Save(r io.Reader, name string) (int64, error) {
	filename := m.Path(name)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[name] = true
	m.mu.Unlock()
	return n, nil
}

// SaveMetadata writes v as indented JSON to <noteID>.json
func (m *Manager) SaveMetadata(noteID string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	name := SanitizeFileName(noteID, "note") + ".json"
	if _, err := m.Save(bytes.NewReader(data), name); err != nil {
		return "", err
	}
	return m.Path(name), nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// SavedCount returns how many files are known to exist
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

// SanitizeFileName turns a note title into a safe file name stem. Path
// separators, reserved characters and control characters become '_'.
// fallback is used when nothing printable is left.
func SanitizeFileName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == utf8.RuneError:
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.Trim(strings.Join(strings.Fields(b.String()), " "), ". ")
	if utf8.RuneCountInString(out) > maxNameRunes {
		out = strings.TrimRight(string([]rune(out)[:maxNameRunes]), ". ")
	}
	if strings.Trim(out, "_") == "" {
		return fallback
	}
	return out
}
