// Package badger implements the table.Store contract on BadgerDB.
//
// This is the persistent production store. Each table item is written as one
// primary row plus one row per secondary index projection, all inside a
// single Badger transaction, so unlike the hosted key-value service this
// layer was modeled on, index rows here are never behind the primary row.
// Callers still must not rely on that: the table contract only promises
// single-item atomicity.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/filedock/filedock/pkg/table"
)

// conflictRetries bounds transaction retries under optimistic concurrency
// conflicts before the error is surfaced to the caller.
const conflictRetries = 3

// storedItem is the JSON document kept under the primary key. The index
// projections are stored alongside the value so that a replacement or
// deletion can locate and remove stale index rows without a second lookup
// structure.
type storedItem struct {
	Indexes map[string]table.Key `json:"indexes,omitempty"`
	Value   []byte               `json:"value"`
}

// Store is a BadgerDB-backed table.
type Store struct {
	db *badger.DB
}

var _ table.Store = (*Store)(nil)

// Config holds BadgerDB store options.
type Config struct {
	// Path is the directory where BadgerDB keeps its files.
	Path string

	// InMemory runs Badger without touching disk. Used by integration tests.
	InMemory bool
}

// New opens (or creates) a BadgerDB table at the configured path.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger table: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts = opts.WithLoggingLevel(badger.WARNING)
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.Path, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key table.Key) (table.Item, error) {
	if err := ctx.Err(); err != nil {
		return table.Item{}, err
	}

	var out table.Item
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := getItem(txn, key)
		if err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return table.Item{}, err
	}
	return out, nil
}

// getItem reads and decodes one primary row inside a transaction.
func getItem(txn *badger.Txn, key table.Key) (table.Item, error) {
	entry, err := txn.Get(keyPrimary(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return table.Item{}, table.ErrItemNotFound
	}
	if err != nil {
		return table.Item{}, fmt.Errorf("badger get: %w", err)
	}

	var stored storedItem
	if err := entry.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	}); err != nil {
		return table.Item{}, fmt.Errorf("badger decode %q/%q: %w", key.Partition, key.Sort, err)
	}

	return table.Item{Key: key, Indexes: stored.Indexes, Value: stored.Value}, nil
}

// writeItem writes the primary row and index rows for an item, removing any
// index rows left over from a previous generation of the same key.
func writeItem(txn *badger.Txn, item table.Item) error {
	if current, err := getItem(txn, item.Key); err == nil {
		for name, projection := range current.Indexes {
			if err := txn.Delete(keyIndex(name, projection, item.Key)); err != nil {
				return fmt.Errorf("badger delete stale index row: %w", err)
			}
		}
	} else if !errors.Is(err, table.ErrItemNotFound) {
		return err
	}

	encoded, err := json.Marshal(storedItem{Indexes: item.Indexes, Value: item.Value})
	if err != nil {
		return fmt.Errorf("badger encode %q/%q: %w", item.Key.Partition, item.Key.Sort, err)
	}
	if err := txn.Set(keyPrimary(item.Key), encoded); err != nil {
		return fmt.Errorf("badger set: %w", err)
	}

	for name, projection := range item.Indexes {
		ref, err := json.Marshal(item.Key)
		if err != nil {
			return fmt.Errorf("badger encode index ref: %w", err)
		}
		if err := txn.Set(keyIndex(name, projection, item.Key), ref); err != nil {
			return fmt.Errorf("badger set index row: %w", err)
		}
	}
	return nil
}

// update runs fn in a read-write transaction, retrying a bounded number of
// times on optimistic-concurrency conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) Put(ctx context.Context, item table.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		return writeItem(txn, item)
	})
}

func (s *Store) PutIf(ctx context.Context, item table.Item, cond table.Condition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		var current *table.Item
		existing, err := getItem(txn, item.Key)
		switch {
		case err == nil:
			current = &existing
		case errors.Is(err, table.ErrItemNotFound):
			// condition sees nil
		default:
			return err
		}

		if !cond(current) {
			return table.ErrConditionFailed
		}
		return writeItem(txn, item)
	})
}

func (s *Store) Delete(ctx context.Context, key table.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		current, err := getItem(txn, key)
		if errors.Is(err, table.ErrItemNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		for name, projection := range current.Indexes {
			if err := txn.Delete(keyIndex(name, projection, key)); err != nil {
				return fmt.Errorf("badger delete index row: %w", err)
			}
		}
		if err := txn.Delete(keyPrimary(key)); err != nil {
			return fmt.Errorf("badger delete: %w", err)
		}
		return nil
	})
}

// collectPrimary iterates a primary-namespace prefix and decodes every row.
func collectPrimary(txn *badger.Txn, prefix []byte) ([]table.Item, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []table.Item
	for it.Rewind(); it.Valid(); it.Next() {
		entry := it.Item()

		key, ok := decodePrimaryKey(entry.Key())
		if !ok {
			return nil, fmt.Errorf("badger scan: malformed primary key %q", entry.Key())
		}

		var stored storedItem
		if err := entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return nil, fmt.Errorf("badger scan decode: %w", err)
		}
		out = append(out, table.Item{Key: key, Indexes: stored.Indexes, Value: stored.Value})
	}
	return out, nil
}

func (s *Store) QueryPrefix(ctx context.Context, partition, sortPrefix string) ([]table.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []table.Item
	err := s.db.View(func(txn *badger.Txn) error {
		items, err := collectPrimary(txn, keyPrimaryPrefix(partition, sortPrefix))
		if err != nil {
			return err
		}
		// A partition prefix like "p\0A\0B" also matches partition "AX" when
		// its sort key happens to start with the right bytes only if the
		// partition itself contains a NUL, which the codec rejects. Filter
		// exact partitions anyway.
		for _, item := range items {
			if item.Key.Partition == partition {
				out = append(out, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) QueryIndex(ctx context.Context, index, partition string) ([]table.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []table.Item
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyIndexPrefix(index, partition)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var primary table.Key
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &primary)
			}); err != nil {
				return fmt.Errorf("badger index decode: %w", err)
			}

			item, err := getItem(txn, primary)
			if errors.Is(err, table.ErrItemNotFound) {
				// Dangling index row; skip rather than fail the query.
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Scan(ctx context.Context, partitionPrefix string) ([]table.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []table.Item
	err := s.db.View(func(txn *badger.Txn) error {
		items, err := collectPrimary(txn, keyPartitionPrefix(partitionPrefix))
		if err != nil {
			return err
		}
		out = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// decodePrimaryKey splits a primary-namespace badger key back into the
// (partition, sort) pair. Identifiers never contain NUL, so the first two
// separators are unambiguous.
func decodePrimaryKey(raw []byte) (table.Key, bool) {
	rest, ok := cutPrefix(raw, prefixPrimary+sep)
	if !ok {
		return table.Key{}, false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] == 0 {
			return table.Key{Partition: string(rest[:i]), Sort: string(rest[i+1:])}, true
		}
	}
	return table.Key{}, false
}

func cutPrefix(raw []byte, prefix string) ([]byte, bool) {
	if len(raw) < len(prefix) || string(raw[:len(prefix)]) != prefix {
		return nil, false
	}
	return raw[len(prefix):], true
}
