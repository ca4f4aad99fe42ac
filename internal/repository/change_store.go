// Package repository declares the persistence ports of deltawatch.
package repository

import (
	"context"

	"deltawatch/internal/domain/entity"
)

// ChangeStore persists the set of item ids seen by previous runs.
//
// Load returns an empty set when nothing has been stored yet and a
// *entity.StorageError of kind StorageUnreadable when stored data exists but
// cannot be read. Save replaces the stored set atomically: afterwards either
// the old or the new contents are observable, never a mix. It fails with a
// *entity.StorageError of kind StorageUnwritable.
type ChangeStore interface {
	Load(ctx context.Context) (*entity.KnownSet, error)
	Save(ctx context.Context, known *entity.KnownSet) error
}
