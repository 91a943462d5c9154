// Package folder manages the folder tree and the user-folder assignment
// relation: creation with sibling uniqueness, role-scoped listing, and the
// recursive cascade deletion that removes a subtree's folders, files, and
// assignments.
package folder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/schema"
	"github.com/filedock/filedock/pkg/objectstore"
	"github.com/filedock/filedock/pkg/table"
)

// Service implements folder operations.
type Service struct {
	table   table.Store
	objects objectstore.Store
	logger  *zap.Logger

	now func() time.Time
}

// NewService creates a folder service.
func NewService(t table.Store, objects objectstore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{table: t, objects: objects, logger: logger, now: time.Now}
}

func requireAdmin(principal model.Principal) error {
	if principal.Role != model.RoleAdmin {
		return fmt.Errorf("%w: admin role required", apperr.ErrUnauthorized)
	}
	return nil
}

// Create allocates a new folder under parentFolderID (the root sentinel when
// empty). Sibling names must be unique, case-sensitive exact match.
func (s *Service) Create(ctx context.Context, principal model.Principal, folderName, parentFolderID string) (model.Folder, error) {
	if err := requireAdmin(principal); err != nil {
		return model.Folder{}, err
	}
	if err := schema.ValidateIdentifier("folderName", folderName); err != nil {
		return model.Folder{}, err
	}
	if parentFolderID == "" {
		parentFolderID = model.RootFolderID
	}

	siblings, err := s.table.QueryIndex(ctx, table.IndexGSI2, schema.ChildrenOf(parentFolderID))
	if err != nil {
		return model.Folder{}, apperr.Storage(err)
	}
	for _, item := range siblings {
		sibling, err := schema.DecodeFolder(item)
		if err != nil {
			return model.Folder{}, apperr.Storage(err)
		}
		if sibling.FolderName == folderName {
			return model.Folder{}, fmt.Errorf("%w: folder name already exists in this location", apperr.ErrConflict)
		}
	}

	folder := model.Folder{
		FolderID:       uuid.NewString(),
		FolderName:     folderName,
		ParentFolderID: parentFolderID,
		CreatedAt:      s.now().Unix(),
	}
	if err := s.table.Put(ctx, schema.FolderItem(folder)); err != nil {
		return model.Folder{}, apperr.Storage(err)
	}

	s.logger.Info("folder created",
		zap.String("folderId", folder.FolderID),
		zap.String("folderName", folderName),
		zap.String("parentFolderId", parentFolderID))
	return folder, nil
}

// Info is one listing entry. AssignedUsers is populated only for admin
// listings.
type Info struct {
	model.Folder
	AssignedUsers []string `json:"assignedUsers,omitempty"`
}

// List returns the folders visible to the principal. Admin sees every folder
// together with the usernames assigned to it; everyone else sees only their
// assigned folders, resolved to current metadata.
func (s *Service) List(ctx context.Context, principal model.Principal) ([]Info, error) {
	if principal.Role == model.RoleAdmin {
		items, err := s.table.QueryIndex(ctx, table.IndexGSI1, schema.AllFolders)
		if err != nil {
			return nil, apperr.Storage(err)
		}

		out := make([]Info, 0, len(items))
		for _, item := range items {
			folder, err := schema.DecodeFolder(item)
			if err != nil {
				return nil, apperr.Storage(err)
			}
			usernames, err := s.assignedUsernames(ctx, folder.FolderID)
			if err != nil {
				return nil, err
			}
			out = append(out, Info{Folder: folder, AssignedUsers: usernames})
		}
		return out, nil
	}

	assignments, err := s.table.QueryPrefix(ctx, schema.UserPartition(principal.Username), schema.AssignmentSortPrefix)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	out := make([]Info, 0, len(assignments))
	for _, item := range assignments {
		assignment, err := schema.DecodeAssignment(item)
		if err != nil {
			return nil, apperr.Storage(err)
		}

		folderItem, err := s.table.Get(ctx, schema.FolderKey(assignment.FolderID))
		if errors.Is(err, table.ErrItemNotFound) {
			// Assignment to a folder that no longer exists (or never did);
			// skip rather than surface a phantom entry.
			continue
		}
		if err != nil {
			return nil, apperr.Storage(err)
		}
		folder, err := schema.DecodeFolder(folderItem)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, Info{Folder: folder})
	}
	return out, nil
}

func (s *Service) assignedUsernames(ctx context.Context, folderID string) ([]string, error) {
	items, err := s.table.QueryIndex(ctx, table.IndexGSI3, schema.AssignedTo(folderID))
	if err != nil {
		return nil, apperr.Storage(err)
	}
	usernames := make([]string, 0, len(items))
	for _, item := range items {
		assignment, err := schema.DecodeAssignment(item)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		usernames = append(usernames, assignment.Username)
	}
	return usernames, nil
}

// Delete removes a folder and cascades over its entire descendant subtree:
// child folders first, then each folder's file rows, assignment rows, stored
// objects, and finally its own metadata row.
//
// The traversal is an explicit iterative walk, not self-recursion: folders
// are collected breadth-first over the children index into a visited set
// (which also guards against cycles from corrupted parent pointers), then
// purged in reverse collection order, which deletes every child before its
// parent. The cascade is not atomic; a crash mid-way leaves orphaned rows
// for subtrees whose parent metadata is already gone.
func (s *Service) Delete(ctx context.Context, principal model.Principal, folderID string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}

	if _, err := s.table.Get(ctx, schema.FolderKey(folderID)); err != nil {
		if errors.Is(err, table.ErrItemNotFound) {
			return fmt.Errorf("%w: folder %s", apperr.ErrNotFound, folderID)
		}
		return apperr.Storage(err)
	}

	order := []string{folderID}
	visited := map[string]struct{}{folderID: {}}
	for i := 0; i < len(order); i++ {
		children, err := s.table.QueryIndex(ctx, table.IndexGSI2, schema.ChildrenOf(order[i]))
		if err != nil {
			return apperr.Storage(err)
		}
		for _, item := range children {
			child, err := schema.DecodeFolder(item)
			if err != nil {
				return apperr.Storage(err)
			}
			if _, seen := visited[child.FolderID]; seen {
				s.logger.Warn("cycle detected in folder tree, skipping revisit",
					zap.String("folderId", child.FolderID))
				continue
			}
			visited[child.FolderID] = struct{}{}
			order = append(order, child.FolderID)
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		if err := s.purgeFolder(ctx, order[i]); err != nil {
			return err
		}
	}

	s.logger.Info("folder deleted",
		zap.String("folderId", folderID),
		zap.Int("foldersRemoved", len(order)))
	return nil
}

// purgeFolder removes one folder's files, assignments, objects, and metadata
// row. Callers guarantee its child folders are already gone.
func (s *Service) purgeFolder(ctx context.Context, folderID string) error {
	// Stored objects first; best effort. Losing the race here only strands
	// unreachable objects, never metadata.
	if err := s.objects.DeletePrefix(ctx, folderID+"/"); err != nil {
		s.logger.Warn("failed to delete stored objects for folder",
			zap.String("folderId", folderID), zap.Error(err))
	}

	fileRows, err := s.table.QueryPrefix(ctx, schema.FolderPartition(folderID), schema.FileSortPrefix)
	if err != nil {
		return apperr.Storage(err)
	}
	for _, item := range fileRows {
		if err := s.table.Delete(ctx, item.Key); err != nil {
			return apperr.Storage(err)
		}
	}

	assignments, err := s.table.QueryIndex(ctx, table.IndexGSI3, schema.AssignedTo(folderID))
	if err != nil {
		return apperr.Storage(err)
	}
	for _, item := range assignments {
		assignment, err := schema.DecodeAssignment(item)
		if err != nil {
			return apperr.Storage(err)
		}
		if err := s.table.Delete(ctx, schema.AssignmentKey(assignment.Username, folderID)); err != nil {
			return apperr.Storage(err)
		}
	}

	if err := s.table.Delete(ctx, schema.FolderKey(folderID)); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Assign writes one assignment edge per folder ID, denormalizing the
// folder's current name. The user must exist; a nonexistent folder is
// tolerated and yields an assignment with an empty denormalized name.
func (s *Service) Assign(ctx context.Context, principal model.Principal, username string, folderIDs []string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if username == "" || len(folderIDs) == 0 {
		return fmt.Errorf("%w: username and folderIds required", apperr.ErrValidation)
	}

	if _, err := s.table.Get(ctx, schema.UserKey(username)); err != nil {
		if errors.Is(err, table.ErrItemNotFound) {
			return fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
		}
		return apperr.Storage(err)
	}

	now := s.now().Unix()
	for _, folderID := range folderIDs {
		folderName := ""
		if item, err := s.table.Get(ctx, schema.FolderKey(folderID)); err == nil {
			folder, err := schema.DecodeFolder(item)
			if err != nil {
				return apperr.Storage(err)
			}
			folderName = folder.FolderName
		} else if !errors.Is(err, table.ErrItemNotFound) {
			return apperr.Storage(err)
		}

		assignment := model.FolderAssignment{
			Username:   username,
			FolderID:   folderID,
			FolderName: folderName,
			AssignedAt: now,
		}
		if err := s.table.Put(ctx, schema.AssignmentItem(assignment)); err != nil {
			return apperr.Storage(err)
		}
	}

	s.logger.Info("folders assigned",
		zap.String("username", username), zap.Int("count", len(folderIDs)))
	return nil
}

// Unassign removes assignment edges. Removing an absent edge is not an
// error.
func (s *Service) Unassign(ctx context.Context, principal model.Principal, username string, folderIDs []string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if username == "" || len(folderIDs) == 0 {
		return fmt.Errorf("%w: username and folderIds required", apperr.ErrValidation)
	}

	for _, folderID := range folderIDs {
		if err := s.table.Delete(ctx, schema.AssignmentKey(username, folderID)); err != nil {
			return apperr.Storage(err)
		}
	}

	s.logger.Info("folders unassigned",
		zap.String("username", username), zap.Int("count", len(folderIDs)))
	return nil
}
