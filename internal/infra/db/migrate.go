package db

import (
	"context"
	"database/sql"
	"fmt"
)

// MigrateUp creates the change store schema. It is idempotent.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS known_items (
    store_key     TEXT        NOT NULL,
    item_id       TEXT        NOT NULL,
    first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (store_key, item_id)
)`); err != nil {
		return fmt.Errorf("create known_items: %w", err)
	}

	return nil
}

// MigrateDown drops the change store schema.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS known_items`); err != nil {
		return fmt.Errorf("drop known_items: %w", err)
	}
	return nil
}
