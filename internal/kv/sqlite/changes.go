package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/chefconnect/internal/kv"
)

// Publish appends c to the change log and prunes rows beyond ChangeLogMax.
func (s *Store) Publish(ctx context.Context, c kv.Change) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO changes (key, old_value, new_value, origin) VALUES (?, ?, ?, ?)`,
		c.Key, nullable(c.OldValue), nullable(c.NewValue), c.Origin)
	if err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	if seq > int64(s.opts.ChangeLogMax) {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM changes WHERE seq <= ?`, seq-int64(s.opts.ChangeLogMax)); err != nil {
			return fmt.Errorf("prune changes: %w", err)
		}
	}
	return nil
}

// Listen delivers changes appended after the call returns. It polls the
// change log every PollInterval on its own goroutine.
func (s *Store) Listen(ctx context.Context, fn func(kv.Change)) (func(), error) {
	var cursor int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM changes`).Scan(&cursor); err != nil {
		return nil, fmt.Errorf("listen: read cursor: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			next, err := s.poll(ctx, cursor, fn)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("sqlite: poll change log failed", "error", err)
				}
				continue
			}
			cursor = next
		}
	}()

	stop := func() {
		cancel()
		wg.Wait()
	}
	return stop, nil
}

func (s *Store) poll(ctx context.Context, cursor int64, fn func(kv.Change)) (int64, error) {
	start := cursor
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, key, old_value, new_value, origin FROM changes WHERE seq > ? ORDER BY seq`, cursor)
	if err != nil {
		return start, err
	}

	var batch []kv.Change
	for rows.Next() {
		var (
			seq            int64
			c              kv.Change
			oldVal, newVal sql.NullString
		)
		if err := rows.Scan(&seq, &c.Key, &oldVal, &newVal, &c.Origin); err != nil {
			rows.Close()
			return start, err
		}
		if oldVal.Valid {
			c.OldValue = &oldVal.String
		}
		if newVal.Valid {
			c.NewValue = &newVal.String
		}
		batch = append(batch, c)
		cursor = seq
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return start, err
	}

	// Deliver after the rows are closed so fn may use the database.
	for _, c := range batch {
		fn(c)
	}
	return cursor, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
