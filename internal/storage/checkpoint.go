// Package storage persists crawl progress: the resume checkpoint, the
// incremental CSV dataset and the optional export of that dataset.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// FileCheckpoint stores the last fully processed index page as a single integer
type FileCheckpoint struct {
	path string
}

// NewFileCheckpoint returns a checkpoint backed by path
func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

// Path returns the checkpoint file location
func (c *FileCheckpoint) Path() string {
	return c.path
}

// Load returns the page to resume from: the last completed page plus one.
// Any problem with the file means starting from page 1.
func (c *FileCheckpoint) Load(ctx context.Context) int {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", c.path).Msg("No checkpoint found, starting from page 1")
		} else {
			log.Warn().Err(err).Str("path", c.path).Msg("Failed to read checkpoint, starting from page 1")
		}
		return 1
	}

	raw := strings.TrimSpace(string(data))
	last, err := strconv.Atoi(raw)
	if err != nil || last < 1 {
		log.Warn().
			Str("path", c.path).
			Str("content", raw).
			Msg("Invalid checkpoint, starting from page 1")
		return 1
	}

	log.Info().
		Str("path", c.path).
		Int("last_page", last).
		Int("resume_page", last+1).
		Msg("Resuming from checkpoint")

	return last + 1
}

// Save records page as the last completed page
func (c *FileCheckpoint) Save(ctx context.Context, page int) error {
	if page < 1 {
		return fmt.Errorf("invalid checkpoint page %d", page)
	}
	if err := writeFileAtomic(c.path, []byte(strconv.Itoa(page))); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file beside path and renames it
// into place so readers never see a partial file
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
