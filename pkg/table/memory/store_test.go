package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock/pkg/table"
)

func item(partition, sort, value string) table.Item {
	return table.Item{
		Key:   table.Key{Partition: partition, Sort: sort},
		Value: []byte(value),
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
	assert.ErrorIs(t, err, table.ErrItemNotFound)

	require.NoError(t, store.Put(ctx, item("P", "S", "v1")))
	got, err := store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got.Value)

	// Put replaces.
	require.NoError(t, store.Put(ctx, item("P", "S", "v2")))
	got, err = store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Value)

	require.NoError(t, store.Delete(ctx, table.Key{Partition: "P", Sort: "S"}))
	_, err = store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
	assert.ErrorIs(t, err, table.ErrItemNotFound)

	// Deleting an absent key is fine.
	assert.NoError(t, store.Delete(ctx, table.Key{Partition: "P", Sort: "S"}))
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Put(ctx, item("P", "S", "original")))

	got, err := store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
	require.NoError(t, err)
	got.Value[0] = 'X'

	again, err := store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again.Value)
}

func TestPutIf(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateWhenAbsent", func(t *testing.T) {
		store := New()
		err := store.PutIf(ctx, item("P", "S", "v1"), func(current *table.Item) bool {
			return current == nil
		})
		require.NoError(t, err)
	})

	t.Run("FailsWhenConditionRejects", func(t *testing.T) {
		store := New()
		require.NoError(t, store.Put(ctx, item("P", "S", "v1")))

		err := store.PutIf(ctx, item("P", "S", "v2"), func(current *table.Item) bool {
			return current == nil
		})
		assert.ErrorIs(t, err, table.ErrConditionFailed)

		got, err := store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got.Value, "failed PutIf must not modify the row")
	})

	t.Run("ConditionSeesCurrentValue", func(t *testing.T) {
		store := New()
		require.NoError(t, store.Put(ctx, item("P", "S", "v1")))

		err := store.PutIf(ctx, item("P", "S", "v2"), func(current *table.Item) bool {
			return current != nil && string(current.Value) == "v1"
		})
		require.NoError(t, err)
	})
}

func TestQueryPrefix(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Put(ctx, item("P", "FILE#b", "b")))
	require.NoError(t, store.Put(ctx, item("P", "FILE#a", "a")))
	require.NoError(t, store.Put(ctx, item("P", "FOLDER#x", "folder")))
	require.NoError(t, store.Put(ctx, item("Q", "FILE#c", "other partition")))

	items, err := store.QueryPrefix(ctx, "P", "FILE#")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "FILE#a", items[0].Key.Sort)
	assert.Equal(t, "FILE#b", items[1].Key.Sort)
}

func TestQueryIndex(t *testing.T) {
	ctx := context.Background()
	store := New()

	indexed := func(partition, sort, indexPartition, indexSort string) table.Item {
		it := item(partition, sort, sort)
		it.Indexes = map[string]table.Key{
			table.IndexGSI1: {Partition: indexPartition, Sort: indexSort},
		}
		return it
	}

	require.NoError(t, store.Put(ctx, indexed("P1", "S1", "ALL", "b")))
	require.NoError(t, store.Put(ctx, indexed("P2", "S2", "ALL", "a")))
	require.NoError(t, store.Put(ctx, indexed("P3", "S3", "OTHER", "c")))
	require.NoError(t, store.Put(ctx, item("P4", "S4", "unindexed")))

	items, err := store.QueryIndex(ctx, table.IndexGSI1, "ALL")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "S2", items[0].Key.Sort, "results ordered by index sort key")
	assert.Equal(t, "S1", items[1].Key.Sort)

	// Replacing an item moves its projection.
	moved := indexed("P1", "S1", "ELSEWHERE", "b")
	require.NoError(t, store.Put(ctx, moved))
	items, err = store.QueryIndex(ctx, table.IndexGSI1, "ALL")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestScan(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Put(ctx, item("SESSION#a", "SESSION#a", "1")))
	require.NoError(t, store.Put(ctx, item("SESSION#b", "SESSION#b", "2")))
	require.NoError(t, store.Put(ctx, item("USER#c", "USER#c", "3")))

	items, err := store.Scan(ctx, "SESSION#")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "SESSION#a", items[0].Key.Partition)
	assert.Equal(t, "SESSION#b", items[1].Key.Partition)
}

func TestContextCancellation(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Put(ctx, item("P", "S", "v")))
	_, err := store.Get(ctx, table.Key{Partition: "P", Sort: "S"})
	assert.Error(t, err)
}
