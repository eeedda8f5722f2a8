package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/cache"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// ApplicationName identifies crawler sessions in pg_stat_activity
const ApplicationName = "property-crawler"

// DB represents a PostgreSQL database connection
type DB struct {
	client *sql.DB
	config *Config
	// written holds a fingerprint of the last row upserted per listing
	written *cache.Fingerprints
}

// GetConfig returns the original DB connection settings
func (d *DB) GetConfig() *Config {
	return d.config
}

// Config holds PostgreSQL connection configuration
type Config struct {
	Host         string        // Database host
	Port         string        // Database port
	User         string        // Database user
	Password     string        // Database password
	Database     string        // Database name
	SSLMode      string        // SSL mode (disable, require, verify-ca, verify-full)
	MaxIdleConns int           // Maximum number of idle connections
	MaxOpenConns int           // Maximum number of open connections
	MaxLifetime  time.Duration // Maximum lifetime of a connection
	DatabaseURL  string        // Original DATABASE_URL if used
}

// ConnectionString returns the PostgreSQL connection string
func (c *Config) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// New creates a new PostgreSQL database connection
func New(config *Config) (*DB, error) {
	if config.DatabaseURL == "" {
		if config.Host == "" {
			return nil, fmt.Errorf("database host is required")
		}
		if config.Port == "" {
			return nil, fmt.Errorf("database port is required")
		}
		if config.User == "" {
			return nil, fmt.Errorf("database user is required")
		}
		if config.Database == "" {
			return nil, fmt.Errorf("database name is required")
		}
		if config.SSLMode == "" {
			config.SSLMode = "disable"
		}
	}

	// The crawl writes one row at a time, a small pool is plenty
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 2
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 4
	}
	if config.MaxLifetime == 0 {
		config.MaxLifetime = 20 * time.Minute
	}

	dsn := AugmentDSN(config.ConnectionString(), DSNOptions{ApplicationName: ApplicationName})
	client, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	client.SetMaxOpenConns(config.MaxOpenConns)
	client.SetMaxIdleConns(config.MaxIdleConns)
	client.SetConnMaxLifetime(config.MaxLifetime)

	if err := client.Ping(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if err := setupSchema(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to setup schema: %w", err)
	}

	log.Info().
		Str("database", config.Database).
		Bool("from_url", config.DatabaseURL != "").
		Msg("Connected to PostgreSQL")

	return NewWithClient(client, config), nil
}

// NewWithClient wraps an already open connection. The schema is assumed to exist.
func NewWithClient(client *sql.DB, config *Config) *DB {
	if config == nil {
		config = &Config{}
	}
	return &DB{client: client, config: config, written: cache.NewFingerprints()}
}

// InitFromEnv creates a PostgreSQL connection using environment variables.
// DATABASE_URL wins over the individual POSTGRES_* settings.
func InitFromEnv() (*DB, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return New(&Config{DatabaseURL: url})
	}

	config := &Config{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Database: os.Getenv("POSTGRES_DB"),
		SSLMode:  os.Getenv("POSTGRES_SSL_MODE"),
	}

	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == "" {
		config.Port = "5432"
	}
	if config.User == "" {
		config.User = "postgres"
	}
	if config.Database == "" {
		config.Database = "property_crawler"
	}

	return New(config)
}

// setupSchema creates the listings table
func setupSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			source_link TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			address TEXT NOT NULL,
			price TEXT NOT NULL,
			description TEXT NOT NULL,
			contact TEXT NOT NULL,
			photo_count INTEGER,
			bedrooms INTEGER,
			bathrooms INTEGER,
			toilets INTEGER,
			parking_spaces INTEGER,
			run_id TEXT,
			scraped_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create listings table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings(scraped_at)`)
	if err != nil {
		return fmt.Errorf("failed to create listings index: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.client.Close()
}

// GetDB returns the underlying database connection
func (db *DB) GetDB() *sql.DB {
	return db.client
}
