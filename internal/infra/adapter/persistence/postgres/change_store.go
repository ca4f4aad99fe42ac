// Package postgres stores known sets in PostgreSQL, one row per item id.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/metrics"
	"deltawatch/internal/repository"
	"deltawatch/internal/resilience/circuitbreaker"
)

const (
	backend = "postgres"

	// batchSize bounds the placeholders of one statement.
	batchSize = 500
)

// ChangeStore keeps the known set of one job in the known_items table,
// partitioned by store key. Save computes the difference with the stored
// rows inside one transaction, so concurrent readers see the old or the new
// set and first_seen_at survives for ids that stay.
type ChangeStore struct {
	cb  *circuitbreaker.DBCircuitBreaker
	key string
}

// NewChangeStore returns a store for key guarded by the default DB breaker.
func NewChangeStore(db *sql.DB, key string) repository.ChangeStore {
	return NewChangeStoreWithBreaker(circuitbreaker.NewDBCircuitBreaker(db), key)
}

// NewChangeStoreWithBreaker returns a store using an existing breaker.
func NewChangeStoreWithBreaker(cb *circuitbreaker.DBCircuitBreaker, key string) repository.ChangeStore {
	return &ChangeStore{cb: cb, key: key}
}

func (s *ChangeStore) location() string {
	return "postgres:known_items/" + s.key
}

// Load implements repository.ChangeStore.
func (s *ChangeStore) Load(ctx context.Context) (known *entity.KnownSet, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOperation(backend, "load", time.Since(start), err) }()

	const query = `SELECT item_id FROM known_items WHERE store_key = $1`
	rows, err := s.cb.QueryContext(ctx, query, s.key)
	if err != nil {
		return nil, s.storageErr(entity.StorageUnreadable, fmt.Errorf("Load: %w", err))
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, s.storageErr(entity.StorageUnreadable, fmt.Errorf("Load: %w", err))
	}
	return entity.NewKnownSet(ids...), nil
}

// Save implements repository.ChangeStore.
func (s *ChangeStore) Save(ctx context.Context, known *entity.KnownSet) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOperation(backend, "save", time.Since(start), err) }()

	if err := s.save(ctx, known); err != nil {
		return s.storageErr(entity.StorageUnwritable, fmt.Errorf("Save: %w", err))
	}
	return nil
}

func (s *ChangeStore) save(ctx context.Context, known *entity.KnownSet) (err error) {
	tx, err := s.cb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT item_id FROM known_items WHERE store_key = $1 FOR UPDATE`, s.key)
	if err != nil {
		return fmt.Errorf("lock rows: %w", err)
	}
	stored, err := scanIDs(rows)
	if err != nil {
		return fmt.Errorf("lock rows: %w", err)
	}

	storedSet := entity.NewKnownSet(stored...)
	var stale []string
	for _, id := range stored {
		if !known.Contains(id) {
			stale = append(stale, id)
		}
	}
	var added []string
	for _, id := range known.IDs() {
		if !storedSet.Contains(id) {
			added = append(added, id)
		}
	}

	for _, chunk := range chunks(stale, batchSize) {
		query := `DELETE FROM known_items WHERE store_key = $1 AND item_id IN (` + placeholders(len(chunk), 2) + `)`
		if _, err = tx.ExecContext(ctx, query, args(s.key, chunk)...); err != nil {
			return fmt.Errorf("delete stale ids: %w", err)
		}
	}

	for _, chunk := range chunks(added, batchSize) {
		values := make([]string, len(chunk))
		for i := range chunk {
			values[i] = fmt.Sprintf("($1, $%d)", i+2)
		}
		query := `INSERT INTO known_items (store_key, item_id) VALUES ` +
			strings.Join(values, ", ") + ` ON CONFLICT DO NOTHING`
		if _, err = tx.ExecContext(ctx, query, args(s.key, chunk)...); err != nil {
			return fmt.Errorf("insert ids: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *ChangeStore) storageErr(kind entity.StorageErrorKind, err error) error {
	return &entity.StorageError{Kind: kind, Location: s.location(), Err: err}
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// placeholders returns "$from, $from+1, ..." for n arguments.
func placeholders(n, from int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

func args(key string, ids []string) []interface{} {
	out := make([]interface{}, 0, len(ids)+1)
	out = append(out, key)
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}
