package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lukman83/listing-miner/internal/aggregate"
	"github.com/lukman83/listing-miner/internal/models"

	_ "modernc.org/sqlite"
)

// Schema holds every archive of every phrase in one database.
const Schema = `
CREATE TABLE IF NOT EXISTS archives (
    name        TEXT PRIMARY KEY,
    phrase      TEXT NOT NULL,
    mode        TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archives_phrase ON archives(phrase, created_at DESC);

CREATE TABLE IF NOT EXISTS listings (
    archive       TEXT NOT NULL REFERENCES archives(name) ON DELETE CASCADE,
    pos           INTEGER NOT NULL,
    id            TEXT NOT NULL,
    name          TEXT NOT NULL,
    delivery_cost REAL NOT NULL,
    cost          REAL NOT NULL,
    stock         INTEGER NOT NULL,
    category_id   INTEGER NOT NULL,
    PRIMARY KEY (archive, id)
);
CREATE INDEX IF NOT EXISTS idx_listings_pos ON listings(archive, pos);
`

// SQLiteStore keeps archives in a single SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	// A single connection serializes writers inside this process.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: apply schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func load(ctx context.Context, q queryer, name string) ([]models.Listing, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM archives WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: lookup %s: %w", name, err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, delivery_cost, cost, stock, category_id
		FROM listings WHERE archive = ? ORDER BY pos`, name)
	if err != nil {
		return nil, fmt.Errorf("archive: query %s: %w", name, err)
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.Name, &l.DeliveryCost, &l.Cost, &l.Stock, &l.CategoryID); err != nil {
			return nil, fmt.Errorf("archive: scan %s: %w", name, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *SQLiteStore) Load(ctx context.Context, name string) ([]models.Listing, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return load(ctx, s.db, name)
}

func (s *SQLiteStore) Save(ctx context.Context, phrase string, listings []models.Listing, mode Mode) (string, error) {
	base, err := BaseName(phrase)
	if err != nil {
		return "", err
	}
	if mode != ModeAppend && mode != ModeNewFile {
		return "", fmt.Errorf("archive: unknown save mode %q", mode)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	name := base
	if mode == ModeAppend {
		existing, err := load(ctx, tx, base)
		switch {
		case errors.Is(err, ErrNotFound):
			if err := insertArchive(ctx, tx, base, phrase, mode, now); err != nil {
				return "", err
			}
		case err != nil:
			return "", err
		default:
			listings = aggregate.MergeLatest(existing, listings)
			if _, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE archive = ?`, base); err != nil {
				return "", fmt.Errorf("archive: clear %s: %w", base, err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE archives SET updated_at = ? WHERE name = ?`, now.UnixMilli(), base); err != nil {
				return "", fmt.Errorf("archive: touch %s: %w", base, err)
			}
		}
	} else {
		listings = aggregate.MergeLatest(listings)
		for attempt := 0; ; attempt++ {
			name = snapshotName(base, now, attempt)
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM archives WHERE name = ?`, name).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				break
			}
			if err != nil {
				return "", fmt.Errorf("archive: lookup %s: %w", name, err)
			}
		}
		if err := insertArchive(ctx, tx, name, phrase, mode, now); err != nil {
			return "", err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (archive, pos, id, name, delivery_cost, cost, stock, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("archive: prepare insert: %w", err)
	}
	defer stmt.Close()

	for pos, l := range listings {
		if _, err := stmt.ExecContext(ctx, name, pos, l.ID, l.Name, l.DeliveryCost, l.Cost, l.Stock, int64(l.CategoryID)); err != nil {
			return "", fmt.Errorf("archive: insert %s/%s: %w", name, l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("archive: commit %s: %w", name, err)
	}
	return name, nil
}

func insertArchive(ctx context.Context, tx *sql.Tx, name, phrase string, mode Mode, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO archives (name, phrase, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`, name, phrase, string(mode), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, phrase string) ([]string, error) {
	base, err := BaseName(phrase)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM archives WHERE phrase = ? OR name = ?`, phrase, base)
	if err != nil {
		return nil, fmt.Errorf("archive: list %s: %w", phrase, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if isArchiveOf(name, base) {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortArchives(names, base)
	return names, nil
}
