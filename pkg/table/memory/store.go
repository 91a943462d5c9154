// Package memory implements the table.Store contract with in-memory maps.
//
// This implementation is suitable for tests and development environments
// where persistence is not required. All operations are protected by a
// single read-write mutex; this coarse-grained locking is simple and
// correct, and the fixed access patterns of the metadata layer do not need
// anything finer.
//
// Query results are sorted, so scan order is fully deterministic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/filedock/filedock/pkg/table"
)

// Store is an in-memory table.
type Store struct {
	mu    sync.RWMutex
	items map[table.Key]table.Item
}

var _ table.Store = (*Store)(nil)

// New creates an empty in-memory table.
func New() *Store {
	return &Store{items: make(map[table.Key]table.Item)}
}

// clone deep-copies an item so callers can never alias stored state.
func clone(item table.Item) table.Item {
	out := table.Item{Key: item.Key}
	if item.Indexes != nil {
		out.Indexes = make(map[string]table.Key, len(item.Indexes))
		for name, key := range item.Indexes {
			out.Indexes[name] = key
		}
	}
	if item.Value != nil {
		out.Value = make([]byte, len(item.Value))
		copy(out.Value, item.Value)
	}
	return out
}

func (s *Store) Get(ctx context.Context, key table.Key) (table.Item, error) {
	if err := ctx.Err(); err != nil {
		return table.Item{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return table.Item{}, table.ErrItemNotFound
	}
	return clone(item), nil
}

func (s *Store) Put(ctx context.Context, item table.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.Key] = clone(item)
	return nil
}

func (s *Store) PutIf(ctx context.Context, item table.Item, cond table.Condition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current *table.Item
	if existing, ok := s.items[item.Key]; ok {
		c := clone(existing)
		current = &c
	}
	if !cond(current) {
		return table.ErrConditionFailed
	}

	s.items[item.Key] = clone(item)
	return nil
}

func (s *Store) Delete(ctx context.Context, key table.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *Store) QueryPrefix(ctx context.Context, partition, sortPrefix string) ([]table.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []table.Item
	for key, item := range s.items {
		if key.Partition == partition && strings.HasPrefix(key.Sort, sortPrefix) {
			out = append(out, clone(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.Sort < out[j].Key.Sort
	})
	return out, nil
}

func (s *Store) QueryIndex(ctx context.Context, index, partition string) ([]table.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []table.Item
	for _, item := range s.items {
		projection, ok := item.Indexes[index]
		if ok && projection.Partition == partition {
			out = append(out, clone(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Indexes[index].Sort < out[j].Indexes[index].Sort
	})
	return out, nil
}

func (s *Store) Scan(ctx context.Context, partitionPrefix string) ([]table.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []table.Item
	for key, item := range s.items {
		if strings.HasPrefix(key.Partition, partitionPrefix) {
			out = append(out, clone(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Partition != out[j].Key.Partition {
			return out[i].Key.Partition < out[j].Key.Partition
		}
		return out[i].Key.Sort < out[j].Key.Sort
	})
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
