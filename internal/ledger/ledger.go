// Package ledger records what happened to every emitted listing in a local
// SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"go-jobpost-automation/internal/models"
)

type Status string

const (
	Published Status = "published"
	Failed    Status = "failed"
	Duplicate Status = "duplicate"
	Excluded  Status = "excluded"
)

type Entry struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	URL        string    `json:"url"`
	Source     string    `json:"source"`
	Status     Status    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	key         TEXT NOT NULL,
	title       TEXT NOT NULL,
	company     TEXT NOT NULL,
	url         TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_run ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS outcomes_key ON outcomes(key);
`

type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) Record(ctx context.Context, runID string, listing models.JobListing, status Status, detail string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO outcomes (id, run_id, key, title, company, url, source, status, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), runID, listing.Key(), listing.Title, listing.Company, listing.URL, listing.Source,
		string(status), detail, l.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Counts tallies outcomes per status for one run.
func (l *Ledger) Counts(ctx context.Context, runID string) (map[Status]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Recent returns the latest entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, run_id, key, title, company, url, source, status, detail, recorded_at
		FROM outcomes ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var status, recorded string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Key, &e.Title, &e.Company, &e.URL, &e.Source, &status, &e.Detail, &recorded); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
		out = append(out, e)
	}
	return out, rows.Err()
}
