package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/schema"
	"github.com/filedock/filedock/pkg/table"
	"github.com/filedock/filedock/pkg/table/memory"
)

func seedFolder(t *testing.T, store table.Store, folderID string) {
	t.Helper()
	err := store.Put(context.Background(), schema.FolderItem(model.Folder{
		FolderID:       folderID,
		FolderName:     "name-" + folderID,
		ParentFolderID: model.RootFolderID,
		CreatedAt:      1700000000,
	}))
	require.NoError(t, err)
}

func seedAssignment(t *testing.T, store table.Store, username, folderID string) {
	t.Helper()
	err := store.Put(context.Background(), schema.AssignmentItem(model.FolderAssignment{
		Username:   username,
		FolderID:   folderID,
		AssignedAt: 1700000000,
	}))
	require.NoError(t, err)
}

func TestAccessibleFolderIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	eval := NewEvaluator(store, nil)

	seedFolder(t, store, "f1")
	seedFolder(t, store, "f2")
	seedFolder(t, store, "f3")
	seedAssignment(t, store, "alice", "f1")
	seedAssignment(t, store, "alice", "f3")

	t.Run("AdminSeesAllFolders", func(t *testing.T) {
		ids, err := eval.AccessibleFolderIDs(ctx, model.Principal{Username: "root", Role: model.RoleAdmin})
		require.NoError(t, err)
		assert.Len(t, ids, 3)
	})

	t.Run("UserSeesAssignedFolders", func(t *testing.T) {
		ids, err := eval.AccessibleFolderIDs(ctx, model.Principal{Username: "alice", Role: model.RoleReader})
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"f1": {}, "f3": {}}, ids)
	})

	t.Run("UnassignedUserSeesNothing", func(t *testing.T) {
		ids, err := eval.AccessibleFolderIDs(ctx, model.Principal{Username: "bob", Role: model.RoleViewer})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestHasFolderAccess(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	eval := NewEvaluator(store, nil)

	seedFolder(t, store, "f1")
	seedAssignment(t, store, "alice", "f1")

	t.Run("AdminBypassesAssignments", func(t *testing.T) {
		ok, err := eval.HasFolderAccess(ctx, model.Principal{Username: "root", Role: model.RoleAdmin}, "f1")
		require.NoError(t, err)
		assert.True(t, ok)

		// Even for folders that do not exist.
		ok, err = eval.HasFolderAccess(ctx, model.Principal{Username: "root", Role: model.RoleAdmin}, "ghost")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("AssignedUser", func(t *testing.T) {
		ok, err := eval.HasFolderAccess(ctx, model.Principal{Username: "alice", Role: model.RoleReader}, "f1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("UnassignedUser", func(t *testing.T) {
		ok, err := eval.HasFolderAccess(ctx, model.Principal{Username: "bob", Role: model.RoleReader}, "f1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRequireFolderAccess(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	eval := NewEvaluator(store, nil)

	seedFolder(t, store, "f1")
	seedAssignment(t, store, "alice", "f1")

	assert.NoError(t, eval.RequireFolderAccess(ctx, model.Principal{Username: "alice", Role: model.RoleReader}, "f1"))

	err := eval.RequireFolderAccess(ctx, model.Principal{Username: "bob", Role: model.RoleReader}, "f1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
