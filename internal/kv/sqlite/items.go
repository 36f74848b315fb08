package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/chefconnect/internal/kv"
)

// GetItem returns the value stored at key.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item %q: %w", key, err)
	}
	return value, true, nil
}

// SetItem upserts key. When a capacity is configured the write is rejected
// with kv.ErrQuotaExceeded if total estimated usage would exceed it.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	size := kv.EntrySize(key, value)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set item %q: begin: %w", key, err)
	}
	defer tx.Rollback()

	if s.opts.Capacity > 0 {
		var others int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size), 0) FROM items WHERE key != ?`, key).Scan(&others)
		if err != nil {
			return fmt.Errorf("set item %q: usage: %w", key, err)
		}
		if others+size > s.opts.Capacity {
			return fmt.Errorf("set item %q: %w", key, kv.ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (key, value, size, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, key, value, size, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set item %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set item %q: commit: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove item %q: %w", key, err)
	}
	return nil
}

// Clear deletes every item. The change log is kept.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	return nil
}

// Keys returns all keys ordered by key.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Used returns the total estimated usage in bytes.
func (s *Store) Used(ctx context.Context) (int64, error) {
	var used int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM items`).Scan(&used); err != nil {
		return 0, fmt.Errorf("usage: %w", err)
	}
	return used, nil
}
