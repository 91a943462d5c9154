// Package access resolves "can principal P see folder F" using the role and
// folder-assignment relation. Every other component funnels its folder
// checks through these two predicates.
package access

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/schema"
	"github.com/filedock/filedock/pkg/table"
)

// Evaluator answers folder-access questions.
type Evaluator struct {
	table  table.Store
	logger *zap.Logger
}

// NewEvaluator creates an access evaluator on the given table.
func NewEvaluator(t table.Store, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{table: t, logger: logger}
}

// AccessibleFolderIDs returns the set of folder IDs the principal may see:
// every folder in the system for admin, otherwise the explicitly assigned
// ones.
func (e *Evaluator) AccessibleFolderIDs(ctx context.Context, principal model.Principal) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	if principal.Role == model.RoleAdmin {
		items, err := e.table.QueryIndex(ctx, table.IndexGSI1, schema.AllFolders)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		for _, item := range items {
			folder, err := schema.DecodeFolder(item)
			if err != nil {
				return nil, apperr.Storage(err)
			}
			ids[folder.FolderID] = struct{}{}
		}
		return ids, nil
	}

	items, err := e.table.QueryPrefix(ctx, schema.UserPartition(principal.Username), schema.AssignmentSortPrefix)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	for _, item := range items {
		assignment, err := schema.DecodeAssignment(item)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		ids[assignment.FolderID] = struct{}{}
	}
	return ids, nil
}

// HasFolderAccess reports whether the principal may see one folder: true
// unconditionally for admin, otherwise true iff an assignment edge exists.
func (e *Evaluator) HasFolderAccess(ctx context.Context, principal model.Principal, folderID string) (bool, error) {
	if principal.Role == model.RoleAdmin {
		return true, nil
	}

	_, err := e.table.Get(ctx, schema.AssignmentKey(principal.Username, folderID))
	if errors.Is(err, table.ErrItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage(err)
	}
	return true, nil
}

// RequireFolderAccess is HasFolderAccess raised to an error: it returns
// ErrUnauthorized when the principal cannot see the folder.
func (e *Evaluator) RequireFolderAccess(ctx context.Context, principal model.Principal, folderID string) error {
	ok, err := e.HasFolderAccess(ctx, principal, folderID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no access to folder %s", apperr.ErrUnauthorized, folderID)
	}
	return nil
}
