package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	m, err := NewManager(dir, false)
	require.NoError(t, err)
	assert.Equal(t, dir, m.OutputDir())
	assert.Equal(t, 0, m.SavedCount())
	assert.False(t, m.IsDownloaded("clip.mp4"))

	n, err := m.Save(bytes.NewReader([]byte("video bytes")), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	content, err := os.ReadFile(filepath.Join(dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(content))
	assert.True(t, m.IsDownloaded("clip.mp4"))
	assert.Equal(t, 1, m.SavedCount())

	_, err = os.Stat(filepath.Join(dir, "clip.mp4.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestManagerDetectsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old_1.jpg"), []byte("x"), 0644))

	m, err := NewManager(dir, false)
	require.NoError(t, err)
	assert.True(t, m.IsDownloaded("old_1.jpg"))

	overwriting, err := NewManager(dir, true)
	require.NoError(t, err)
	assert.False(t, overwriting.IsDownloaded("old_1.jpg"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestManagerSaveFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, false)
	require.NoError(t, err)

	_, err = m.Save(failingReader{}, "broken.jpg")
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, m.IsDownloaded("broken.jpg"))
}

func TestSaveMetadata(t *testing.T) {
	m, err := NewManager(t.TempDir(), false)
	require.NoError(t, err)

	path, err := m.SaveMetadata("64f0c2a1000000001f03a1b2", map[string]string{"title": "春天"})
	require.NoError(t, err)
	assert.Equal(t, "64f0c2a1000000001f03a1b2.json", filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(content, &got))
	assert.Equal(t, "春天", got["title"])
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"春天的穿搭", "春天的穿搭"},
		{"Hello/World", "Hello_World"},
		{`a\b:c*d?e"f<g>h|i`, "a_b_c_d_e_f_g_h_i"},
		{"  spaced    title  ", "spaced title"},
		{"line\nbreak\ttab", "line_break_tab"},
		{"../../etc/passwd", "_.._etc_passwd"},
		{"...", "image"},
		{"", "image"},
		{"///", "image"},
		{strings.Repeat("a", 200), strings.Repeat("a", maxNameRunes)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in, "image"))
		})
	}
}
