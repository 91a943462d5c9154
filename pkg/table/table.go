// Package table defines the narrow sorted key-value table contract that the
// FileDock metadata layer is built on.
//
// Every entity (user, session, folder, assignment, file version, latest
// pointer) lives in a single logical table addressed by a two-part
// (partition, sort) key, with up to four secondary index projections per
// item. Access patterns are fixed: point lookups, sort-prefix range scans
// within a partition, index lookups by index partition value, and a
// partition-prefix scan used only for the sessions-of-a-user sweep.
//
// Implementations must be safe for concurrent use. The interface guarantees
// single-item atomicity only; there are no multi-item transactions, and
// callers must not assume any ordering between a primary write and a
// subsequent index read.
package table

import "context"

// Index names for the four secondary projections. The numbering follows the
// original table layout: GSI1 enumerates users and folders, GSI2 maps parent
// folders to children, GSI3 maps folders to assigned users, GSI4 enumerates
// latest file pointers for cross-folder search.
const (
	IndexGSI1 = "gsi1"
	IndexGSI2 = "gsi2"
	IndexGSI3 = "gsi3"
	IndexGSI4 = "gsi4"
)

// Key is the two-part primary address of an item. Items sharing a partition
// are colocated and range-scannable by sort key.
type Key struct {
	Partition string
	Sort      string
}

// Item is a single table row: its primary key, its secondary index
// projections (by index name, absent entries mean the item is not projected
// into that index), and its serialized value.
type Item struct {
	Key     Key
	Indexes map[string]Key
	Value   []byte
}

// Condition inspects the current stored item under a key during a
// conditional put. It receives nil when no item exists. Returning false
// aborts the write with ErrConditionFailed.
//
// The check and the write are atomic with respect to other writers of the
// same key.
type Condition func(current *Item) bool

// Store is the storage contract consumed by every FileDock component.
//
// Query results are returned in ascending sort-key order; for index queries
// the order is ascending by index sort key. The order is stable for a given
// implementation but callers needing a specific domain ordering must sort
// themselves.
type Store interface {
	// Get returns the item stored under key, or ErrItemNotFound.
	Get(ctx context.Context, key Key) (Item, error)

	// Put writes an item unconditionally, replacing any existing item and
	// its index projections.
	Put(ctx context.Context, item Item) error

	// PutIf writes an item only if cond accepts the currently stored item
	// (nil if absent). Returns ErrConditionFailed when the condition
	// rejects.
	PutIf(ctx context.Context, item Item, cond Condition) error

	// Delete removes an item and its index projections. Deleting an absent
	// key is not an error.
	Delete(ctx context.Context, key Key) error

	// QueryPrefix returns all items in partition whose sort key begins with
	// sortPrefix. An empty prefix returns the whole partition.
	QueryPrefix(ctx context.Context, partition, sortPrefix string) ([]Item, error)

	// QueryIndex returns all items whose projection into the named index has
	// the given index partition value.
	QueryIndex(ctx context.Context, index, partition string) ([]Item, error)

	// Scan returns all items whose primary partition begins with
	// partitionPrefix. This is a full-table walk and exists only for the
	// sessions-of-a-user sweep; it does not scale and must not grow new
	// callers.
	Scan(ctx context.Context, partitionPrefix string) ([]Item, error)

	// Close releases the underlying storage.
	Close() error
}
