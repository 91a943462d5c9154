// Package objectstore defines the object-storage collaborator contract.
//
// The metadata layer decides which storage key an operation targets; this
// package turns those keys into short-lived access URLs and cleans objects
// up when a folder cascade removes their metadata. Object content itself
// never flows through the metadata service.
package objectstore

import (
	"context"
	"time"
)

// URLTTL is the lifetime of presigned access URLs.
const URLTTL = time.Hour

// Store issues access URLs for object keys and removes objects.
type Store interface {
	// PresignPut returns a URL that allows a single upload of size bytes to
	// the given key, valid for URLTTL.
	PresignPut(ctx context.Context, key string, size int64) (string, error)

	// PresignGet returns a URL that allows downloading the given key, valid
	// for URLTTL.
	PresignGet(ctx context.Context, key string) (string, error)

	// DeletePrefix removes every object whose key begins with prefix. Used
	// by the folder-deletion cascade; best effort, idempotent.
	DeletePrefix(ctx context.Context, prefix string) error
}
