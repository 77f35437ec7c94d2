// Package sqlitestore implements store.Store on a single SQLite file.
// Entries are stored as JSON bodies in one table; queries never need SQL
// ordering because the index owns ordering.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id   TEXT PRIMARY KEY,
    body TEXT NOT NULL
);`

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and enables WAL journal
// mode for read-heavy workloads.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.Entry, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM entries WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", id, err)
	}
	var e model.Entry
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("sqlite: decode %s: %w", id, err)
	}
	return &e, nil
}

func (s *Store) Put(ctx context.Context, e *model.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", e.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (id, body) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
		e.ID, string(body))
	if err != nil {
		return fmt.Errorf("sqlite: put %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) All(ctx context.Context) iter.Seq2[*model.Entry, error] {
	return func(yield func(*model.Entry, error) bool) {
		rows, err := s.db.QueryContext(ctx, `SELECT body FROM entries ORDER BY id`)
		if err != nil {
			yield(nil, fmt.Errorf("sqlite: scan: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var body string
			if err := rows.Scan(&body); err != nil {
				yield(nil, fmt.Errorf("sqlite: scan row: %w", err))
				return
			}
			var e model.Entry
			if err := json.Unmarshal([]byte(body), &e); err != nil {
				yield(nil, fmt.Errorf("sqlite: decode: %w", err))
				return
			}
			if !yield(&e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("sqlite: scan: %w", err))
		}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
