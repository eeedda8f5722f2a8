package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointMissingFileStartsAtOne(t *testing.T) {
	cp := NewFileCheckpoint(filepath.Join(t.TempDir(), "last_page.txt"))
	assert.Equal(t, 1, cp.Load(context.Background()))
}

func TestCheckpointResumesAfterLastCompletedPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_page.txt")
	cp := NewFileCheckpoint(path)
	ctx := context.Background()

	require.NoError(t, cp.Save(ctx, 7))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7", string(data))

	assert.Equal(t, 8, cp.Load(ctx))
}

func TestCheckpointInvalidContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "whitespace", content: "  \n"},
		{name: "not_a_number", content: "seven"},
		{name: "zero", content: "0"},
		{name: "negative", content: "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "last_page.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			assert.Equal(t, 1, NewFileCheckpoint(path).Load(context.Background()))
		})
	}
}

func TestCheckpointToleratesTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_page.txt")
	require.NoError(t, os.WriteFile(path, []byte("12\n"), 0o644))

	assert.Equal(t, 13, NewFileCheckpoint(path).Load(context.Background()))
}

func TestCheckpointSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	cp := NewFileCheckpoint(filepath.Join(dir, "last_page.txt"))
	ctx := context.Background()

	require.NoError(t, cp.Save(ctx, 3))
	require.NoError(t, cp.Save(ctx, 4))
	assert.Equal(t, 5, cp.Load(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCheckpointSaveErrors(t *testing.T) {
	ctx := context.Background()

	cp := NewFileCheckpoint(filepath.Join(t.TempDir(), "last_page.txt"))
	assert.Error(t, cp.Save(ctx, 0))

	missingDir := NewFileCheckpoint(filepath.Join(t.TempDir(), "missing", "last_page.txt"))
	assert.Error(t, missingDir.Save(ctx, 2))
}
