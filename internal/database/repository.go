package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-jobpost-automation/internal/models"
)

type Repository struct {
	db *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS job_listings (
	id            BIGSERIAL PRIMARY KEY,
	source        TEXT NOT NULL,
	listing_key   TEXT NOT NULL,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL,
	location      TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL,
	seo_content   TEXT NOT NULL,
	focus_keyword TEXT,
	posted_at     TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, listing_key)
)`

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Transaction-mode poolers (PgBouncer, Supabase) reject prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create job_listings: %w", err)
	}
	return nil
}

func (r *Repository) Name() string {
	return "postgres"
}

// SaveListing inserts a listing or refreshes the stored copy (based on source + key).
func (r *Repository) SaveListing(ctx context.Context, l models.JobListing) (int64, error) {
	query := `
		INSERT INTO job_listings (source, listing_key, title, company, location, url, description, seo_content, focus_keyword, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source, listing_key)
		DO UPDATE SET title = EXCLUDED.title, company = EXCLUDED.company, location = EXCLUDED.location,
			description = EXCLUDED.description, seo_content = EXCLUDED.seo_content, updated_at = now()
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query, l.Source, l.Key(), l.Title, l.Company, l.Location, l.URL,
		l.Description, l.SEOContent, l.FocusKeyword, l.PostedDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save listing: %w", err)
	}
	return id, nil
}

// Publish satisfies the publishing contract by persisting the listing.
func (r *Repository) Publish(ctx context.Context, l models.JobListing) (bool, error) {
	id, err := r.SaveListing(ctx, l)
	if err != nil {
		return false, err
	}
	return id > 0, nil
}

// CountBySource returns how many listings are stored for source.
func (r *Repository) CountBySource(ctx context.Context, source string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT count(*) FROM job_listings WHERE source = $1", source).Scan(&n)
	return n, err
}
