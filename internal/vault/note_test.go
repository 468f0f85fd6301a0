package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadNoteFile_FullFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "note-one.md", `---
title: Note One
id: n1
aliases: [First, Uno]
---

Body with [[links]].
`)

	nf, err := LoadNoteFile(path, "note-one.md")
	require.NoError(t, err)

	assert.Equal(t, "Note One", nf.Meta.Title)
	assert.Equal(t, "n1", nf.Meta.ID)
	assert.Equal(t, "note-one", nf.Basename)
	assert.Equal(t, []string{"First", "Uno"}, nf.Meta.Aliases)
	assert.Equal(t, "Body with [[links]].\n", nf.Body)
}

func TestLoadNoteFile_NoFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "plain.md", "Just a body.\n")

	nf, err := LoadNoteFile(path, "plain.md")
	require.NoError(t, err)

	assert.Equal(t, "plain", nf.Meta.Title)
	assert.Equal(t, "plain", nf.Meta.ID)
	assert.Empty(t, nf.Meta.Aliases)
	assert.Equal(t, "Just a body.\n", nf.Body)
}

func TestLoadNoteFile_MalformedFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "broken.md", "---\ntitle: [unclosed\n---\nBody.\n")

	nf, err := LoadNoteFile(path, "broken.md")
	require.NoError(t, err)

	// Fields fall back to filename-derived defaults
	assert.Equal(t, "broken", nf.Meta.Title)
	assert.Equal(t, "broken", nf.Meta.ID)
	assert.Contains(t, nf.Body, "Body.")
}

func TestLoadNoteFile_UnterminatedFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "open.md", "---\ntitle: Open\nno closing delimiter\n")

	nf, err := LoadNoteFile(path, "open.md")
	require.NoError(t, err)

	assert.Equal(t, "open", nf.Meta.Title)
	assert.Contains(t, nf.Body, "no closing delimiter")
}

func TestLoadNoteFile_AliasHandling(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "aliases list filters non-strings and blanks",
			content:  "---\ntitle: T\naliases: [Good, 42, '  ', Other]\n---\n",
			expected: []string{"Good", "Other"},
		},
		{
			name:     "aliases list preferred over singular alias",
			content:  "---\ntitle: T\naliases: [FromList]\nalias: FromSingular\n---\n",
			expected: []string{"FromList"},
		},
		{
			name:     "singular alias taken as-is",
			content:  "---\ntitle: T\nalias: Solo\n---\n",
			expected: []string{"Solo"},
		},
		{
			name:     "aliases of wrong type dropped",
			content:  "---\ntitle: T\naliases: not-a-list\n---\n",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeNote(t, dir, "a.md", tt.content)

			nf, err := LoadNoteFile(path, "a.md")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, nf.Meta.Aliases)
		})
	}
}

func TestLoadNoteFile_Missing(t *testing.T) {
	_, err := LoadNoteFile(filepath.Join(t.TempDir(), "absent.md"), "absent.md")
	assert.Error(t, err)
}
