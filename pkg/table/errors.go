package table

import "errors"

var (
	// ErrItemNotFound is returned by Get when no item exists under the key.
	ErrItemNotFound = errors.New("table: item not found")

	// ErrConditionFailed is returned by PutIf when the condition rejects
	// the currently stored item.
	ErrConditionFailed = errors.New("table: condition failed")
)
