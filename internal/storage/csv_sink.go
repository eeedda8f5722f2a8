package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSink keeps the dataset in memory and rewrites the CSV file after every
// change. The in-memory dataset is authoritative; a failed write is caught
// up by the next successful one.
type CSVSink struct {
	path string

	mu      sync.Mutex
	dataset *listing.Dataset
}

// NewCSVSink returns an empty sink writing to path
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{
		path:    path,
		dataset: listing.NewDataset(),
	}
}

// Path returns the dataset file location
func (s *CSVSink) Path() string {
	return s.path
}

// Load reads any existing dataset into memory and returns the record count.
// Rows sharing a link are merged. A missing file is an empty dataset.
// Malformed rows are skipped; when any row is lost, or the file cannot be
// read at all, the original is moved aside so the next write cannot
// overwrite it.
func (s *CSVSink) Load(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dataset = listing.NewDataset()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", s.path).Msg("No existing dataset, starting empty")
			return 0, nil
		}
		s.moveAside(err)
		return 0, fmt.Errorf("failed to open dataset: %w", err)
	}

	dataset, skipped, err := readDataset(f, s.path)
	f.Close()
	if err != nil {
		s.moveAside(err)
		return 0, fmt.Errorf("failed to read dataset: %w", err)
	}
	s.dataset = dataset

	if skipped > 0 {
		s.moveAside(fmt.Errorf("%d malformed rows skipped", skipped))
		if err := s.write(ctx); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("Failed to rewrite dataset after skipping rows")
		}
	}

	log.Info().
		Str("path", s.path).
		Int("records", dataset.Len()).
		Int("skipped_rows", skipped).
		Msg("Loaded existing dataset")

	return dataset.Len(), nil
}

// moveAside renames the dataset file to <path>.corrupt-<timestamp>
func (s *CSVSink) moveAside(cause error) {
	aside := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.Rename(s.path, aside); err != nil {
		sentry.CaptureException(err)
		log.Error().Err(err).Str("path", s.path).Msg("Failed to move damaged dataset aside")
		return
	}
	log.Warn().
		Err(cause).
		Str("path", s.path).
		Str("moved_to", aside).
		Msg("Damaged dataset preserved")
}

// readDataset parses a dataset, skipping rows the CSV reader rejects. A
// header that cannot be parsed is an error.
func readDataset(r io.Reader, path string) (*listing.Dataset, int, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	dataset := listing.NewDataset()

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return dataset, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			log.Warn().Err(err).Str("path", path).Int("line", parseErr.StartLine).Msg("Skipping malformed dataset row")
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		rec := listing.FromRow(header, row)
		if rec.SourceLink == "" {
			continue
		}
		dataset.Upsert(rec)
	}

	return dataset, skipped, nil
}

// Append merges rec into the dataset by link and rewrites the file
func (s *CSVSink) Append(ctx context.Context, rec listing.PropertyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset.Upsert(rec) {
		log.Debug().Str("url", rec.SourceLink).Msg("Added listing")
	} else {
		log.Debug().Str("url", rec.SourceLink).Msg("Replaced listing")
	}

	return s.write(ctx)
}

// Flush rewrites the file from memory
func (s *CSVSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(ctx)
}

// Len returns the number of records held
func (s *CSVSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset.Len()
}

// Records returns a copy of the records in dataset order
func (s *CSVSink) Records() []listing.PropertyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset.Records()
}

// Contains reports whether a record for link is held
func (s *CSVSink) Contains(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset.Contains(link)
}

func (s *CSVSink) write(ctx context.Context) error {
	span := sentry.StartSpan(ctx, "storage.write_dataset")
	defer span.Finish()

	span.SetData("records", s.dataset.Len())

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(listing.Columns); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	if err := w.WriteAll(s.dataset.Rows()); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		span.SetTag("error", "true")
		sentry.CaptureException(err)
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	return nil
}
