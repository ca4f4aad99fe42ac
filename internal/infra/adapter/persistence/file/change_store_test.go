package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/infra/adapter/persistence/file"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeStore_LoadMissingFileIsEmpty(t *testing.T) {
	store := file.NewChangeStore(filepath.Join(t.TempDir(), "known_items.json"))

	known, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, known.Len())
}

func TestChangeStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{name: "empty set", ids: nil},
		{name: "single id", ids: []string{"https://www.pararius.nl/a"}},
		{name: "several ids", ids: []string{"C", "A", "B"}},
		{name: "unicode and quotes", ids: []string{`he said "hi"`, "Kruiskade ü", "line\nbreak"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			store := file.NewChangeStore(filepath.Join(t.TempDir(), "known_items.json"))
			want := entity.NewKnownSet(tt.ids...)

			// Act
			require.NoError(t, store.Save(context.Background(), want))
			got, err := store.Load(context.Background())

			// Assert
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "want %v, got %v", want.IDs(), got.IDs())
		})
	}
}

func TestChangeStore_SaveWritesSortedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_items.json")
	store := file.NewChangeStore(path)

	require.NoError(t, store.Save(context.Background(), entity.NewKnownSet("b", "c", "a")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b","c"]`, string(data))
	assert.Equal(t, `["a","b","c"]`, string(data))
}

func TestChangeStore_SaveEmptyWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_items.json")
	store := file.NewChangeStore(path)

	require.NoError(t, store.Save(context.Background(), entity.NewKnownSet()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestChangeStore_ReadsExistingFileWithDuplicates(t *testing.T) {
	// Files written by earlier tooling are unsorted and may repeat ids.
	path := filepath.Join(t.TempDir(), "known_postings.json")
	require.NoError(t, os.WriteFile(path, []byte(`["https://x/2", "https://x/1", "https://x/2"]`), 0o644))

	known, err := file.NewChangeStore(path).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/1", "https://x/2"}, known.IDs())
}

func TestChangeStore_LoadUnreadable(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "not json"},
		{name: "object instead of array", content: `{"ids":["a"]}`},
		{name: "array of numbers", content: `[1,2,3]`},
		{name: "empty file", content: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "known_items.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := file.NewChangeStore(path).Load(context.Background())

			var storageErr *entity.StorageError
			require.True(t, errors.As(err, &storageErr), "got %v", err)
			assert.Equal(t, entity.StorageUnreadable, storageErr.Kind)
			assert.Equal(t, path, storageErr.Location)
		})
	}
}

func TestChangeStore_SaveUnwritable(t *testing.T) {
	// A regular file where the parent directory should be makes every write fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	store := file.NewChangeStore(filepath.Join(blocker, "known_items.json"))

	err := store.Save(context.Background(), entity.NewKnownSet("a"))

	var storageErr *entity.StorageError
	require.True(t, errors.As(err, &storageErr), "got %v", err)
	assert.Equal(t, entity.StorageUnwritable, storageErr.Kind)
}

func TestChangeStore_SaveReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_items.json")
	store := file.NewChangeStore(path)

	require.NoError(t, store.Save(context.Background(), entity.NewKnownSet("a", "b")))
	require.NoError(t, store.Save(context.Background(), entity.NewKnownSet("a", "b", "c")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "known_items.json", entries[0].Name())

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.IDs())
}

func TestChangeStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "known_items.json")
	store := file.NewChangeStore(path)

	require.NoError(t, store.Save(context.Background(), entity.NewKnownSet("a")))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestChangeStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := file.NewChangeStore(filepath.Join(t.TempDir(), "known_items.json"))

	_, loadErr := store.Load(ctx)
	saveErr := store.Save(ctx, entity.NewKnownSet("a"))

	assert.ErrorIs(t, loadErr, context.Canceled)
	assert.ErrorIs(t, saveErr, context.Canceled)
}
