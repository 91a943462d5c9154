//go:build integration

package badger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock/pkg/table"
	"github.com/filedock/filedock/pkg/table/badger"
)

// TestBadgerTableStore_Integration exercises the BadgerDB table backend
// against a real on-disk database.
//
// Prerequisites:
//   - None (BadgerDB is embedded, no external services needed)
//   - Run with: go test -tags=integration ./test/integration/badger/...
func TestBadgerTableStore_Integration(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "table.db")

	open := func(t *testing.T) *badger.Store {
		t.Helper()
		store, err := badger.New(ctx, badger.Config{Path: dbPath})
		require.NoError(t, err)
		return store
	}

	item := table.Item{
		Key: table.Key{Partition: "FOLDER#f1", Sort: "FOLDER#f1"},
		Indexes: map[string]table.Key{
			table.IndexGSI1: {Partition: "FOLDERS", Sort: "FOLDER#f1"},
		},
		Value: []byte(`{"folderId":"f1"}`),
	}

	t.Run("WriteAndRead", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, item))

		got, err := store.Get(ctx, item.Key)
		require.NoError(t, err)
		assert.Equal(t, item.Value, got.Value)
		assert.Equal(t, item.Indexes, got.Indexes)
	})

	t.Run("PersistsAcrossRestart", func(t *testing.T) {
		store := open(t)
		got, err := store.Get(ctx, item.Key)
		require.NoError(t, err)
		assert.Equal(t, item.Value, got.Value)

		results, err := store.QueryIndex(ctx, table.IndexGSI1, "FOLDERS")
		require.NoError(t, err)
		assert.Len(t, results, 1)
		require.NoError(t, store.Close())
	})

	t.Run("ReplaceMovesIndexRows", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		moved := item
		moved.Indexes = map[string]table.Key{
			table.IndexGSI1: {Partition: "ARCHIVED", Sort: "FOLDER#f1"},
		}
		require.NoError(t, store.Put(ctx, moved))

		results, err := store.QueryIndex(ctx, table.IndexGSI1, "FOLDERS")
		require.NoError(t, err)
		assert.Empty(t, results, "stale projection removed")

		results, err = store.QueryIndex(ctx, table.IndexGSI1, "ARCHIVED")
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("DeleteRemovesIndexRows", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		require.NoError(t, store.Delete(ctx, item.Key))

		_, err := store.Get(ctx, item.Key)
		assert.ErrorIs(t, err, table.ErrItemNotFound)

		results, err := store.QueryIndex(ctx, table.IndexGSI1, "ARCHIVED")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("PutIf", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		key := table.Key{Partition: "FOLDER#f2", Sort: "FILE#a"}
		first := table.Item{Key: key, Value: []byte(`{"latestVersion":1}`)}
		require.NoError(t, store.PutIf(ctx, first, func(current *table.Item) bool {
			return current == nil
		}))

		err := store.PutIf(ctx, first, func(current *table.Item) bool {
			return current == nil
		})
		assert.ErrorIs(t, err, table.ErrConditionFailed)
	})

	t.Run("QueryPrefixAndScan", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		rows := []table.Item{
			{Key: table.Key{Partition: "FOLDER#f3", Sort: "FILE#a"}, Value: []byte("a")},
			{Key: table.Key{Partition: "FOLDER#f3", Sort: "FILE#a#VERSION#1"}, Value: []byte("a1")},
			{Key: table.Key{Partition: "FOLDER#f3", Sort: "FOLDER#f3"}, Value: []byte("meta")},
			{Key: table.Key{Partition: "SESSION#x", Sort: "SESSION#x"}, Value: []byte("s")},
		}
		for _, row := range rows {
			require.NoError(t, store.Put(ctx, row))
		}

		files, err := store.QueryPrefix(ctx, "FOLDER#f3", "FILE#")
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "FILE#a", files[0].Key.Sort)

		sessions, err := store.Scan(ctx, "SESSION#")
		require.NoError(t, err)
		assert.Len(t, sessions, 1)
	})
}

// TestBadgerTableStore_InMemory verifies the diskless mode used by tests.
func TestBadgerTableStore_InMemory(t *testing.T) {
	ctx := context.Background()
	store, err := badger.New(ctx, badger.Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	key := table.Key{Partition: "P", Sort: "S"}
	require.NoError(t, store.Put(ctx, table.Item{Key: key, Value: []byte("v")}))
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got.Value)
}
