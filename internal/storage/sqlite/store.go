// Package sqlite keeps the durable review snapshot in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"flex_reviews/internal/domain"
)

type Store struct {
	db   *sql.DB
	name string
}

// SaveRecord is one row of the save log.
type SaveRecord struct {
	Bytes   int
	SavedAt time.Time
}

func Open(path, name string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; SQLite serializes anyway
	db.SetMaxOpenConns(1)
	s := &Store{db: db, name: name}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Backend() string { return "sqlite" }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS review_snapshots (
            name TEXT PRIMARY KEY,
            body BLOB NOT NULL,
            byte_size INTEGER NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS review_snapshot_saves (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            byte_size INTEGER NOT NULL,
            saved_at TEXT NOT NULL
        );`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	q, args, err := sq.Select("body").
		From("review_snapshots").
		Where(sq.Eq{"name": s.name}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var body []byte
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sqlite %s", domain.ErrSnapshotNotFound, s.name)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Save replaces the snapshot body and logs the save in one transaction.
func (s *Store) Save(ctx context.Context, body []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	upsert, uargs, err := sq.Insert("review_snapshots").
		Columns("name", "body", "byte_size", "updated_at").
		Values(s.name, body, len(body), now).
		Suffix("ON CONFLICT(name) DO UPDATE SET body = excluded.body, byte_size = excluded.byte_size, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	logq, largs, err := sq.Insert("review_snapshot_saves").
		Columns("name", "byte_size", "saved_at").
		Values(s.name, len(body), now).
		ToSql()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsert, uargs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert snapshot %s: %w", s.name, err)
	}
	if _, err := tx.ExecContext(ctx, logq, largs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("log snapshot save %s: %w", s.name, err)
	}
	return tx.Commit()
}

// History returns the most recent saves, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]SaveRecord, error) {
	q, args, err := sq.Select("byte_size", "saved_at").
		From("review_snapshot_saves").
		Where(sq.Eq{"name": s.name}).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaveRecord
	for rows.Next() {
		var rec SaveRecord
		var at string
		if err := rows.Scan(&rec.Bytes, &at); err != nil {
			return nil, err
		}
		rec.SavedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, rec)
	}
	return out, rows.Err()
}
