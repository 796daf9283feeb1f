// Package catalog indexes recording roots in a local SQLite database so
// pipelines that own many experiments can find recordings by modality or
// time coverage without re-reading every meta.yml.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/timealign/pkg/interp"
)

// Entry is one indexed recording root.
type Entry struct {
	ID           string    `json:"id"`
	Root         string    `json:"root"`
	Modality     string    `json:"modality"`
	StartTime    float64   `json:"start_time"`
	EndTime      float64   `json:"end_time"`
	SamplingRate float64   `json:"sampling_rate,omitempty"`
	Channels     int       `json:"channels,omitempty"`
	Frames       int       `json:"frames,omitempty"`
	IndexedAt    time.Time `json:"indexed_at"`
}

// Filter narrows List results.
type Filter struct {
	Modality string
	// Overlaps keeps entries whose [start, end) intersects the interval.
	Overlaps *interp.TimeInterval
	Limit    int
}

// Catalog is a SQLite-backed recordings index.
type Catalog struct {
	db      *sql.DB
	entropy *rand.Rand
}

// Open opens or creates the catalog database at dbPath.
func Open(dbPath string) (*Catalog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	c := &Catalog{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return c, nil
}

func (c *Catalog) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recordings (
		id            TEXT PRIMARY KEY,
		root          TEXT NOT NULL UNIQUE,
		modality      TEXT NOT NULL,
		start_time    REAL NOT NULL,
		end_time      REAL NOT NULL,
		sampling_rate REAL NOT NULL DEFAULT 0,
		channels      INTEGER NOT NULL DEFAULT 0,
		frames        INTEGER NOT NULL DEFAULT 0,
		indexed_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recordings_modality ON recordings(modality);
	CREATE INDEX IF NOT EXISTS idx_recordings_times ON recordings(start_time, end_time);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Put upserts an entry keyed by its root path. Re-indexing an existing
// root refreshes the fields and keeps the original id.
func (c *Catalog) Put(ctx context.Context, e Entry) (*Entry, error) {
	if e.Root == "" {
		return nil, fmt.Errorf("catalog: entry root is required")
	}
	if e.ID == "" {
		e.ID = c.newID()
	}
	if e.IndexedAt.IsZero() {
		e.IndexedAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO recordings (id, root, modality, start_time, end_time, sampling_rate, channels, frames, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(root) DO UPDATE SET
			modality = excluded.modality,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			sampling_rate = excluded.sampling_rate,
			channels = excluded.channels,
			frames = excluded.frames,
			indexed_at = excluded.indexed_at`,
		e.ID, e.Root, e.Modality, e.StartTime, e.EndTime, e.SamplingRate, e.Channels, e.Frames,
		e.IndexedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("catalog: put %s: %w", e.Root, err)
	}

	return c.byRoot(ctx, e.Root)
}

// Get returns the entry indexed for root.
func (c *Catalog) Get(ctx context.Context, root string) (*Entry, error) {
	return c.byRoot(ctx, root)
}

func (c *Catalog) byRoot(ctx context.Context, root string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, root, modality, start_time, end_time, sampling_rate, channels, frames, indexed_at
		 FROM recordings WHERE root = ?`, root)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog: recording not found: %s", root)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns entries matching the filter, most recently indexed first.
func (c *Catalog) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, root, modality, start_time, end_time, sampling_rate, channels, frames, indexed_at
		 FROM recordings WHERE 1=1`
	var args []interface{}
	if f.Modality != "" {
		query += ` AND modality = ?`
		args = append(args, f.Modality)
	}
	if f.Overlaps != nil {
		query += ` AND start_time < ? AND end_time > ?`
		args = append(args, f.Overlaps.End, f.Overlaps.Start)
	}
	query += ` ORDER BY indexed_at DESC, root LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var indexedAt string
	err := row.Scan(&e.ID, &e.Root, &e.Modality, &e.StartTime, &e.EndTime,
		&e.SamplingRate, &e.Channels, &e.Frames, &indexedAt)
	if err != nil {
		return nil, err
	}
	e.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return &e, nil
}
