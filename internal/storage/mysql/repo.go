package mysql

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"flex_reviews/internal/domain"
)

// Repo keeps a named review snapshot in MySQL. Each save replaces the body
// and appends a row to the save log inside one transaction.
type Repo struct {
	db   *sql.DB
	name string
}

func New(db *sql.DB, name string) *Repo { return &Repo{db: db, name: name} }

func (r *Repo) Backend() string { return "mysql" }

func (r *Repo) Load(ctx context.Context) ([]byte, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, getSnapshotSQL, r.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mysql %s", domain.ErrSnapshotNotFound, r.name)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (r *Repo) Save(ctx context.Context, body []byte) error {
	sum := sha1.Sum(body)
	digest := hex.EncodeToString(sum[:])

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertSnapshotSQL, r.name, string(body), len(body), digest); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert snapshot %s: %w", r.name, err)
	}
	if _, err := tx.ExecContext(ctx, insertSaveLogSQL, r.name, len(body), digest); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("log snapshot save %s: %w", r.name, err)
	}
	return tx.Commit()
}

// SaveCount reports how many times this snapshot has been written.
func (r *Repo) SaveCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countSavesSQL, r.name).Scan(&n)
	return n, err
}
