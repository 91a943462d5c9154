// Package user manages account lifecycle and ties account deletion to the
// assignment and session cascades.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/auth"
	"github.com/filedock/filedock/internal/folder"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/schema"
	"github.com/filedock/filedock/internal/session"
	"github.com/filedock/filedock/pkg/table"
)

// AdminUsername is the distinguished account that cannot be deleted.
const AdminUsername = "admin"

// Service implements user operations.
type Service struct {
	table    table.Store
	folders  *folder.Service
	sessions *session.Store
	logger   *zap.Logger

	now func() time.Time
}

// NewService creates a user service.
func NewService(t table.Store, folders *folder.Service, sessions *session.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{table: t, folders: folders, sessions: sessions, logger: logger, now: time.Now}
}

func requireAdmin(principal model.Principal) error {
	if principal.Role != model.RoleAdmin {
		return fmt.Errorf("%w: admin role required", apperr.ErrUnauthorized)
	}
	return nil
}

// Create registers a new non-admin account, optionally assigning initial
// folders in the same call. Duplicate usernames are a conflict.
func (s *Service) Create(ctx context.Context, principal model.Principal, username, password string, role model.Role, folderIDs []string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if err := schema.ValidateIdentifier("username", username); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", apperr.ErrValidation)
	}
	switch role {
	case model.RoleUploader, model.RoleReader, model.RoleViewer:
	default:
		return fmt.Errorf("%w: role must be uploader, reader, or viewer", apperr.ErrValidation)
	}

	if _, err := s.table.Get(ctx, schema.UserKey(username)); err == nil {
		return fmt.Errorf("%w: username %s already exists", apperr.ErrConflict, username)
	} else if !errors.Is(err, table.ErrItemNotFound) {
		return apperr.Storage(err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Storage(err)
	}

	user := model.User{
		Username:           username,
		PasswordHash:       passwordHash,
		Role:               role,
		MustChangePassword: false,
		CreatedAt:          s.now().Unix(),
	}
	if err := s.table.Put(ctx, schema.UserItem(user)); err != nil {
		return apperr.Storage(err)
	}

	if len(folderIDs) > 0 {
		if err := s.folders.Assign(ctx, principal, username, folderIDs); err != nil {
			return err
		}
	}

	s.logger.Info("user created",
		zap.String("username", username), zap.String("role", string(role)))
	return nil
}

// Info is one user listing entry.
type Info struct {
	Username           string     `json:"username"`
	Role               model.Role `json:"role"`
	CreatedAt          int64      `json:"createdAt"`
	MustChangePassword bool       `json:"mustChangePassword"`
	AssignedFolders    []string   `json:"assignedFolders"`
}

// List returns every user with role, creation time, pending-password-change
// flag, and assigned folder IDs.
func (s *Service) List(ctx context.Context, principal model.Principal) ([]Info, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	items, err := s.table.QueryIndex(ctx, table.IndexGSI1, schema.AllUsers)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	out := make([]Info, 0, len(items))
	for _, item := range items {
		user, err := schema.DecodeUser(item)
		if err != nil {
			return nil, apperr.Storage(err)
		}

		assignments, err := s.table.QueryPrefix(ctx, schema.UserPartition(user.Username), schema.AssignmentSortPrefix)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		folderIDs := make([]string, 0, len(assignments))
		for _, assignmentItem := range assignments {
			assignment, err := schema.DecodeAssignment(assignmentItem)
			if err != nil {
				return nil, apperr.Storage(err)
			}
			folderIDs = append(folderIDs, assignment.FolderID)
		}

		out = append(out, Info{
			Username:           user.Username,
			Role:               user.Role,
			CreatedAt:          user.CreatedAt,
			MustChangePassword: user.MustChangePassword,
			AssignedFolders:    folderIDs,
		})
	}
	return out, nil
}

// Update applies a partial update of role and/or password. At least one
// field must be present; the role may be changed to any of the four roles,
// including admin.
func (s *Service) Update(ctx context.Context, principal model.Principal, username string, role model.Role, password string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if role == "" && password == "" {
		return fmt.Errorf("%w: nothing to update", apperr.ErrValidation)
	}
	if role != "" && !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", apperr.ErrValidation, role)
	}

	item, err := s.table.Get(ctx, schema.UserKey(username))
	if errors.Is(err, table.ErrItemNotFound) {
		return fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
	}
	if err != nil {
		return apperr.Storage(err)
	}
	user, err := schema.DecodeUser(item)
	if err != nil {
		return apperr.Storage(err)
	}

	if role != "" {
		user.Role = role
	}
	if password != "" {
		passwordHash, err := auth.HashPassword(password)
		if err != nil {
			return apperr.Storage(err)
		}
		user.PasswordHash = passwordHash
	}

	if err := s.table.Put(ctx, schema.UserItem(user)); err != nil {
		return apperr.Storage(err)
	}

	s.logger.Info("user updated", zap.String("username", username))
	return nil
}

// Delete removes an account together with all of its folder assignments and
// sessions. The distinguished admin account cannot be deleted.
func (s *Service) Delete(ctx context.Context, principal model.Principal, username string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if username == AdminUsername {
		return fmt.Errorf("%w: cannot delete admin account", apperr.ErrValidation)
	}

	if _, err := s.table.Get(ctx, schema.UserKey(username)); err != nil {
		if errors.Is(err, table.ErrItemNotFound) {
			return fmt.Errorf("%w: user %s", apperr.ErrNotFound, username)
		}
		return apperr.Storage(err)
	}

	if err := s.table.Delete(ctx, schema.UserKey(username)); err != nil {
		return apperr.Storage(err)
	}

	assignments, err := s.table.QueryPrefix(ctx, schema.UserPartition(username), schema.AssignmentSortPrefix)
	if err != nil {
		return apperr.Storage(err)
	}
	for _, item := range assignments {
		if err := s.table.Delete(ctx, item.Key); err != nil {
			return apperr.Storage(err)
		}
	}

	if err := s.sessions.DeleteAllForUser(ctx, username); err != nil {
		return err
	}

	s.logger.Info("user deleted", zap.String("username", username))
	return nil
}
