package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/interview-insights/internal/core/ports"
)

// blobLockKey serializes Update transactions. Row locks alone cannot cover
// keys that do not exist yet.
const blobLockKey int64 = 2026030102

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BlobStore keeps named JSON documents in kv_blobs.
type BlobStore struct {
	db *sql.DB
}

func NewBlobStore(db *sql.DB) *BlobStore {
	return &BlobStore{db: db}
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getBlob(ctx, s.db, key, false)
}

func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	return setBlob(ctx, s.db, key, value)
}

func (s *BlobStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("remove blob %s: %w", key, err)
	}
	return nil
}

// Update runs fn inside a transaction holding the blob advisory lock. Reads
// inside fn also lock the rows they return. Any error from fn rolls back.
func (s *BlobStore) Update(ctx context.Context, fn func(tx ports.BlobReadWriter) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin blob update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, blobLockKey); err != nil {
		return fmt.Errorf("lock blobs: %w", err)
	}
	if err = fn(blobTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit blob update: %w", err)
	}
	return nil
}

type blobTx struct {
	tx *sql.Tx
}

func (b blobTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getBlob(ctx, b.tx, key, true)
}

func (b blobTx) Set(ctx context.Context, key string, value []byte) error {
	return setBlob(ctx, b.tx, key, value)
}

func getBlob(ctx context.Context, q execQuerier, key string, forUpdate bool) ([]byte, bool, error) {
	query := `SELECT value FROM kv_blobs WHERE key = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var raw []byte
	if err := q.QueryRowContext(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return raw, true, nil
}

func setBlob(ctx context.Context, q execQuerier, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO kv_blobs (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}
	return nil
}
