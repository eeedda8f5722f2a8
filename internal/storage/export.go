package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Exporter uploads finished dataset files to a Supabase Storage bucket
type Exporter struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// NewExporter creates an exporter. It returns nil when any setting is
// missing; a nil Exporter skips exports.
func NewExporter(supabaseURL, serviceKey, bucket string) *Exporter {
	if supabaseURL == "" || serviceKey == "" || bucket == "" {
		return nil
	}
	return &Exporter{
		baseURL:    strings.TrimSuffix(supabaseURL, "/") + "/storage/v1",
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ExportFile uploads the file at localPath under prefix/<name> and returns
// the object path. A nil exporter does nothing.
func (e *Exporter) ExportFile(ctx context.Context, localPath, prefix string) (string, error) {
	if e == nil {
		return "", nil
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read export file: %w", err)
	}

	objectPath := filepath.Base(localPath)
	if prefix != "" {
		objectPath = strings.Trim(prefix, "/") + "/" + objectPath
	}

	stored, err := e.upload(ctx, objectPath, data, "text/csv; charset=utf-8")
	if err != nil {
		return "", err
	}

	log.Info().
		Str("bucket", e.bucket).
		Str("object", objectPath).
		Int("bytes", len(data)).
		Msg("Exported dataset")

	return stored, nil
}

// upload stores data at path in the bucket, overwriting any existing object
func (e *Exporter) upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", e.baseURL, e.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+e.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Sprintf("%s/%s", e.bucket, path), nil
}
