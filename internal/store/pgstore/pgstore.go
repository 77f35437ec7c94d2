// Package pgstore implements store.Store on PostgreSQL via the pgx stdlib
// driver. Used when several devices share one diary backend; the schema
// mirrors the sqlite driver's single KV table.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id   TEXT PRIMARY KEY,
    body JSONB NOT NULL
);`

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open connects, verifies connectivity and ensures the schema.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.Entry, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM entries WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", id, err)
	}
	var e model.Entry
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("postgres: decode %s: %w", id, err)
	}
	return &e, nil
}

func (s *Store) Put(ctx context.Context, e *model.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("postgres: encode %s: %w", e.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO entries (id, body) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body
    `, e.ID, body)
	if err != nil {
		return fmt.Errorf("postgres: put %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) All(ctx context.Context) iter.Seq2[*model.Entry, error] {
	return func(yield func(*model.Entry, error) bool) {
		rows, err := s.db.QueryContext(ctx, `SELECT body FROM entries ORDER BY id`)
		if err != nil {
			yield(nil, fmt.Errorf("postgres: scan: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var body []byte
			if err := rows.Scan(&body); err != nil {
				yield(nil, fmt.Errorf("postgres: scan row: %w", err))
				return
			}
			var e model.Entry
			if err := json.Unmarshal(body, &e); err != nil {
				yield(nil, fmt.Errorf("postgres: decode: %w", err))
				return
			}
			if !yield(&e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("postgres: scan: %w", err))
		}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
