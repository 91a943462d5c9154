// Package model defines the entity types stored in the FileDock table.
//
// Timestamps are Unix seconds throughout, matching the wire format of the
// item attributes. Several types carry a denormalized folderName captured at
// write time; no rename operation exists in this layer, so the copies cannot
// go stale, but any future rename feature must either drop the
// denormalization or fan out an update.
package model

// Role is a user's access level. There is no hierarchy beyond admin's
// blanket bypass of folder assignments.
type Role string

const (
	// RoleAdmin has full access to all folders and all administrative
	// operations (user/folder CRUD, assignments).
	RoleAdmin Role = "admin"

	// RoleUploader may create new file versions in assigned folders.
	RoleUploader Role = "uploader"

	// RoleReader may generate download access for assigned folders.
	RoleReader Role = "reader"

	// RoleViewer may list folder and file metadata for assigned folders but
	// may neither upload nor download.
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUploader, RoleReader, RoleViewer:
		return true
	}
	return false
}

// RootFolderID is the parent sentinel for top-level folders.
const RootFolderID = "ROOT"

// User is an account. The username is the primary identity and is immutable
// once created.
type User struct {
	Username           string `json:"username"`
	PasswordHash       string `json:"passwordHash"`
	Role               Role   `json:"role"`
	MustChangePassword bool   `json:"mustChangePassword"`
	CreatedAt          int64  `json:"createdAt"`
}

// Session is an ephemeral login. Sessions self-expire by timestamp with no
// background sweep; a reader seeing ExpiresAt in the past treats the row as
// absent.
type Session struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Principal is the authenticated identity attached to an in-progress
// operation.
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Token    string `json:"token"`
}

// Folder is one node of the folder tree. ParentFolderID is either
// RootFolderID or the ID of an existing folder. Folder names are unique
// among siblings (case-sensitive).
type Folder struct {
	FolderID       string `json:"folderId"`
	FolderName     string `json:"folderName"`
	ParentFolderID string `json:"parentFolderId"`
	CreatedAt      int64  `json:"createdAt"`
}

// FolderAssignment is one edge of the many-to-many user-folder relation. It
// exists iff the (non-admin) user may see the folder. FolderName is
// denormalized at assignment time.
type FolderAssignment struct {
	Username   string `json:"username"`
	FolderID   string `json:"folderId"`
	FolderName string `json:"folderName"`
	AssignedAt int64  `json:"assignedAt"`
}

// FileVersion is one immutable version of a file. Versions are never
// mutated or individually deleted; only a folder cascade removes them.
type FileVersion struct {
	FileID        string `json:"fileId"`
	FileName      string `json:"fileName"`
	FolderID      string `json:"folderId"`
	FolderName    string `json:"folderName"`
	StorageKey    string `json:"storageKey"`
	FileSize      int64  `json:"fileSize"`
	UploadedBy    string `json:"uploadedBy"`
	UploadedAt    int64  `json:"uploadedAt"`
	VersionNumber int    `json:"versionNumber"`
}

// FilePointer is the latest-version summary for one (folder, fileName),
// overwritten on every upload so listings never scan version history.
type FilePointer struct {
	FileName      string `json:"fileName"`
	FolderID      string `json:"folderId"`
	FolderName    string `json:"folderName"`
	LatestVersion int    `json:"latestVersion"`
	FileSize      int64  `json:"fileSize"`
	UploadedBy    string `json:"uploadedBy"`
	UploadedAt    int64  `json:"uploadedAt"`
}
