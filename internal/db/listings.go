package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

// Listing is a mirrored row
type Listing struct {
	Record    listing.PropertyRecord
	RunID     string
	ScrapedAt time.Time
}

// UpsertListing writes rec keyed by its link. Rows identical to the last
// write in this process are skipped.
func (db *DB) UpsertListing(ctx context.Context, runID string, rec listing.PropertyRecord) error {
	if rec.SourceLink == "" {
		return fmt.Errorf("listing has no source link")
	}

	fingerprint := strings.Join(rec.Row(), "\x1f")
	if db.written.Unchanged(rec.SourceLink, fingerprint) {
		return nil
	}

	span := sentry.StartSpan(ctx, "db.upsert_listing")
	defer span.Finish()
	span.SetTag("run_id", runID)

	err := withBackoff(ctx, WriteRetryConfig(), "upsert_listing", func() error {
		_, err := db.client.ExecContext(ctx, `
			INSERT INTO listings (
				source_link, title, address, price, description, contact,
				photo_count, bedrooms, bathrooms, toilets, parking_spaces,
				run_id, scraped_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
			ON CONFLICT (source_link) DO UPDATE SET
				title = EXCLUDED.title,
				address = EXCLUDED.address,
				price = EXCLUDED.price,
				description = EXCLUDED.description,
				contact = EXCLUDED.contact,
				photo_count = EXCLUDED.photo_count,
				bedrooms = EXCLUDED.bedrooms,
				bathrooms = EXCLUDED.bathrooms,
				toilets = EXCLUDED.toilets,
				parking_spaces = EXCLUDED.parking_spaces,
				run_id = EXCLUDED.run_id,
				scraped_at = NOW()
		`,
			rec.SourceLink, textValue(rec.Title), textValue(rec.Address), textValue(rec.Price),
			textValue(rec.Description), textValue(rec.Contact),
			countValue(rec.PhotoCount), countValue(rec.Bedrooms), countValue(rec.Bathrooms),
			countValue(rec.Toilets), countValue(rec.ParkingSpaces),
			nullString(runID),
		)
		return err
	})
	if err != nil {
		span.SetTag("error", "true")
		span.SetData("error.message", err.Error())
		sentry.CaptureException(err)
		return fmt.Errorf("failed to upsert listing %s: %w", rec.SourceLink, err)
	}

	db.written.Set(rec.SourceLink, fingerprint)

	log.Debug().
		Str("url", rec.SourceLink).
		Str("run_id", runID).
		Msg("Mirrored listing")

	return nil
}

// ListListings returns every mirrored listing, oldest first
func (db *DB) ListListings(ctx context.Context) ([]Listing, error) {
	rows, err := db.client.QueryContext(ctx, `
		SELECT source_link, title, address, price, description, contact,
			photo_count, bedrooms, bathrooms, toilets, parking_spaces,
			run_id, scraped_at
		FROM listings
		ORDER BY scraped_at, source_link
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		var photos, bedrooms, bathrooms, toilets, parking sql.NullInt64
		var runID sql.NullString

		err := rows.Scan(
			&l.Record.SourceLink, &l.Record.Title, &l.Record.Address, &l.Record.Price,
			&l.Record.Description, &l.Record.Contact,
			&photos, &bedrooms, &bathrooms, &toilets, &parking,
			&runID, &l.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}

		l.Record.PhotoCount = countFrom(photos)
		l.Record.Bedrooms = countFrom(bedrooms)
		l.Record.Bathrooms = countFrom(bathrooms)
		l.Record.Toilets = countFrom(toilets)
		l.Record.ParkingSpaces = countFrom(parking)
		l.RunID = runID.String

		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	return listings, nil
}

// CountListings returns the number of mirrored listings
func (db *DB) CountListings(ctx context.Context) (int, error) {
	var n int
	if err := db.client.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

func textValue(s string) string {
	if !listing.IsKnown(s) {
		return listing.Unknown
	}
	return s
}

func countValue(c listing.Count) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(c.Value), Valid: c.Known}
}

func countFrom(n sql.NullInt64) listing.Count {
	if !n.Valid {
		return listing.Count{}
	}
	return listing.CountOf(int(n.Int64))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
