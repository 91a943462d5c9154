// Package memory is a stub object store for tests and local development. It
// fabricates deterministic URLs and records prefix deletions instead of
// talking to real storage.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/filedock/filedock/pkg/objectstore"
)

// Store is an in-memory objectstore.Store.
type Store struct {
	mu sync.Mutex

	// DeletedPrefixes records every DeletePrefix call, in order.
	deletedPrefixes []string
}

var _ objectstore.Store = (*Store)(nil)

// New creates a stub object store.
func New() *Store {
	return &Store{}
}

func (s *Store) PresignPut(ctx context.Context, key string, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "memory://put/" + key, nil
}

func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "memory://get/" + key, nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedPrefixes = append(s.deletedPrefixes, prefix)
	return nil
}

// DeletedPrefixes returns a copy of the recorded DeletePrefix calls.
func (s *Store) DeletedPrefixes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedPrefixes...)
}

// Deleted reports whether a prefix (or a parent of it) was deleted.
func (s *Store) Deleted(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.deletedPrefixes {
		if strings.HasPrefix(prefix, p) {
			return true
		}
	}
	return false
}
