// Package file is the file version engine: monotonic per-file version
// assignment, latest-pointer maintenance, version history, and folder- or
// search-scoped listing of latest pointers.
package file

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/access"
	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/schema"
	"github.com/filedock/filedock/pkg/objectstore"
	"github.com/filedock/filedock/pkg/table"
)

// MaxFileSize is the fixed upload ceiling (1 GiB).
const MaxFileSize int64 = 1073741824

// Sort fields accepted by ListFiles.
const (
	SortByName       = "name"
	SortByUploadedAt = "uploadedAt"
	SortByFileSize   = "fileSize"
)

// Service implements file operations.
type Service struct {
	table   table.Store
	access  *access.Evaluator
	objects objectstore.Store
	logger  *zap.Logger

	now func() time.Time
}

// NewService creates a file service.
func NewService(t table.Store, eval *access.Evaluator, objects objectstore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{table: t, access: eval, objects: objects, logger: logger, now: time.Now}
}

// StorageKey is the object key for one file version.
func StorageKey(folderID, fileName string, version int) string {
	return folderID + "/" + fileName + "/v" + strconv.Itoa(version)
}

// UploadGrant is the result of a successful upload initiation: the assigned
// version and where the caller must put the bytes.
type UploadGrant struct {
	VersionNumber int    `json:"versionNumber"`
	StorageKey    string `json:"storageKey"`
	UploadURL     string `json:"uploadUrl"`
}

// InitiateUpload assigns the next version number for (folderID, fileName),
// records the new version, and returns a presigned upload URL for it.
// Requires role admin or uploader plus folder access; sizes above
// MaxFileSize are rejected.
//
// The next version is claimed by writing the latest pointer conditionally on
// the previously observed state (absent for version 1, latestVersion == n-1
// otherwise). Two concurrent uploads of the same file therefore cannot both
// win: the loser gets a conflict instead of silently orphaning a version.
// The immutable version row is written after the claim; a crash between the
// two leaves a pointer whose version row is missing until the next upload,
// which is the documented non-atomicity of multi-item operations here.
func (s *Service) InitiateUpload(ctx context.Context, principal model.Principal, folderID, fileName string, fileSize int64) (UploadGrant, error) {
	if principal.Role != model.RoleAdmin && principal.Role != model.RoleUploader {
		return UploadGrant{}, fmt.Errorf("%w: role %s cannot upload", apperr.ErrUnauthorized, principal.Role)
	}
	if folderID == "" {
		return UploadGrant{}, fmt.Errorf("%w: folderId is required", apperr.ErrValidation)
	}
	if err := schema.ValidateIdentifier("fileName", fileName); err != nil {
		return UploadGrant{}, err
	}
	if fileSize < 0 {
		return UploadGrant{}, fmt.Errorf("%w: fileSize must not be negative", apperr.ErrValidation)
	}
	if fileSize > MaxFileSize {
		return UploadGrant{}, fmt.Errorf("%w: file size exceeds maximum of 1GiB", apperr.ErrCapacity)
	}
	if err := s.access.RequireFolderAccess(ctx, principal, folderID); err != nil {
		return UploadGrant{}, err
	}

	previous := 0
	pointerItem, err := s.table.Get(ctx, schema.FilePointerKey(folderID, fileName))
	switch {
	case err == nil:
		pointer, err := schema.DecodeFilePointer(pointerItem)
		if err != nil {
			return UploadGrant{}, apperr.Storage(err)
		}
		previous = pointer.LatestVersion
	case errors.Is(err, table.ErrItemNotFound):
		// first version
	default:
		return UploadGrant{}, apperr.Storage(err)
	}
	version := previous + 1

	// Folder name is denormalized into file rows at write time. A missing
	// folder row (admin uploading into an unknown folder id) degrades to an
	// empty name rather than an error.
	folderName := ""
	if folderItem, err := s.table.Get(ctx, schema.FolderKey(folderID)); err == nil {
		folder, err := schema.DecodeFolder(folderItem)
		if err != nil {
			return UploadGrant{}, apperr.Storage(err)
		}
		folderName = folder.FolderName
	} else if !errors.Is(err, table.ErrItemNotFound) {
		return UploadGrant{}, apperr.Storage(err)
	}

	now := s.now().Unix()
	storageKey := StorageKey(folderID, fileName, version)
	pointer := model.FilePointer{
		FileName:      fileName,
		FolderID:      folderID,
		FolderName:    folderName,
		LatestVersion: version,
		FileSize:      fileSize,
		UploadedBy:    principal.Username,
		UploadedAt:    now,
	}

	err = s.table.PutIf(ctx, schema.FilePointerItem(pointer), func(current *table.Item) bool {
		if current == nil {
			return previous == 0
		}
		observed, err := schema.DecodeFilePointer(*current)
		if err != nil {
			return false
		}
		return observed.LatestVersion == previous
	})
	if errors.Is(err, table.ErrConditionFailed) {
		return UploadGrant{}, fmt.Errorf("%w: concurrent upload of %s, retry", apperr.ErrConflict, fileName)
	}
	if err != nil {
		return UploadGrant{}, apperr.Storage(err)
	}

	fileVersion := model.FileVersion{
		FileID:        uuid.NewString(),
		FileName:      fileName,
		FolderID:      folderID,
		FolderName:    folderName,
		StorageKey:    storageKey,
		FileSize:      fileSize,
		UploadedBy:    principal.Username,
		UploadedAt:    now,
		VersionNumber: version,
	}
	if err := s.table.Put(ctx, schema.FileVersionItem(fileVersion)); err != nil {
		return UploadGrant{}, apperr.Storage(err)
	}

	uploadURL, err := s.objects.PresignPut(ctx, storageKey, fileSize)
	if err != nil {
		return UploadGrant{}, apperr.Storage(err)
	}

	s.logger.Info("upload initiated",
		zap.String("folderId", folderID),
		zap.String("fileName", fileName),
		zap.Int("version", version),
		zap.Int64("fileSize", fileSize),
		zap.String("uploadedBy", principal.Username))

	return UploadGrant{VersionNumber: version, StorageKey: storageKey, UploadURL: uploadURL}, nil
}

// Download is the result of resolving a download request.
type Download struct {
	FileName      string `json:"fileName"`
	VersionNumber int    `json:"versionNumber"`
	FileSize      int64  `json:"fileSize"`
	StorageKey    string `json:"storageKey"`
	DownloadURL   string `json:"downloadUrl"`
}

// ResolveDownload resolves a file (a specific version, or the latest when
// versionNumber is 0) to a presigned download URL. Requires role admin or
// reader plus folder access.
func (s *Service) ResolveDownload(ctx context.Context, principal model.Principal, folderID, fileName string, versionNumber int) (Download, error) {
	if principal.Role != model.RoleAdmin && principal.Role != model.RoleReader {
		return Download{}, fmt.Errorf("%w: role %s cannot download", apperr.ErrUnauthorized, principal.Role)
	}
	if folderID == "" || fileName == "" {
		return Download{}, fmt.Errorf("%w: folderId and fileName required", apperr.ErrValidation)
	}
	if versionNumber < 0 {
		return Download{}, fmt.Errorf("%w: versionNumber must not be negative", apperr.ErrValidation)
	}
	if err := s.access.RequireFolderAccess(ctx, principal, folderID); err != nil {
		return Download{}, err
	}

	if versionNumber == 0 {
		pointerItem, err := s.table.Get(ctx, schema.FilePointerKey(folderID, fileName))
		if errors.Is(err, table.ErrItemNotFound) {
			return Download{}, fmt.Errorf("%w: file %s", apperr.ErrNotFound, fileName)
		}
		if err != nil {
			return Download{}, apperr.Storage(err)
		}
		pointer, err := schema.DecodeFilePointer(pointerItem)
		if err != nil {
			return Download{}, apperr.Storage(err)
		}
		versionNumber = pointer.LatestVersion
	}

	versionItem, err := s.table.Get(ctx, schema.FileVersionKey(folderID, fileName, versionNumber))
	if errors.Is(err, table.ErrItemNotFound) {
		return Download{}, fmt.Errorf("%w: version %d of %s", apperr.ErrNotFound, versionNumber, fileName)
	}
	if err != nil {
		return Download{}, apperr.Storage(err)
	}
	version, err := schema.DecodeFileVersion(versionItem)
	if err != nil {
		return Download{}, apperr.Storage(err)
	}

	downloadURL, err := s.objects.PresignGet(ctx, version.StorageKey)
	if err != nil {
		return Download{}, apperr.Storage(err)
	}

	return Download{
		FileName:      fileName,
		VersionNumber: version.VersionNumber,
		FileSize:      version.FileSize,
		StorageKey:    version.StorageKey,
		DownloadURL:   downloadURL,
	}, nil
}

// ListQuery selects and orders a file listing. Exactly one of FolderID or
// Search applies; a non-empty Search wins, matching latest pointers across
// all accessible folders by case-insensitive substring.
type ListQuery struct {
	FolderID  string
	Search    string
	SortBy    string // name (default), uploadedAt, fileSize
	SortOrder string // asc (default), desc
}

// ListFiles lists latest-pointer rows, folder-scoped or search-scoped.
// Version rows never appear in listings.
func (s *Service) ListFiles(ctx context.Context, principal model.Principal, query ListQuery) ([]model.FilePointer, error) {
	var pointers []model.FilePointer

	if search := strings.TrimSpace(query.Search); search != "" {
		accessible, err := s.access.AccessibleFolderIDs(ctx, principal)
		if err != nil {
			return nil, err
		}
		if len(accessible) == 0 {
			return []model.FilePointer{}, nil
		}

		items, err := s.table.QueryIndex(ctx, table.IndexGSI4, schema.AllFiles)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		needle := strings.ToLower(search)
		for _, item := range items {
			pointer, err := schema.DecodeFilePointer(item)
			if err != nil {
				return nil, apperr.Storage(err)
			}
			if _, ok := accessible[pointer.FolderID]; !ok {
				continue
			}
			if !strings.Contains(strings.ToLower(pointer.FileName), needle) {
				continue
			}
			pointers = append(pointers, pointer)
		}
	} else {
		if query.FolderID == "" {
			return nil, fmt.Errorf("%w: folderId or search required", apperr.ErrValidation)
		}
		if err := s.access.RequireFolderAccess(ctx, principal, query.FolderID); err != nil {
			return nil, err
		}

		items, err := s.table.QueryPrefix(ctx, schema.FolderPartition(query.FolderID), schema.FileSortPrefix)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		for _, item := range items {
			fileSort, err := schema.ParseFileSort(item.Key.Sort)
			if err != nil {
				return nil, apperr.Storage(err)
			}
			if !fileSort.IsPointer() {
				continue
			}
			pointer, err := schema.DecodeFilePointer(item)
			if err != nil {
				return nil, apperr.Storage(err)
			}
			pointers = append(pointers, pointer)
		}
	}

	if err := sortPointers(pointers, query.SortBy, query.SortOrder); err != nil {
		return nil, err
	}
	if pointers == nil {
		pointers = []model.FilePointer{}
	}
	return pointers, nil
}

// sortPointers orders a listing by the requested field and direction. Ties
// keep the underlying scan order (stable sort).
func sortPointers(pointers []model.FilePointer, sortBy, sortOrder string) error {
	if sortBy == "" {
		sortBy = SortByName
	}
	if sortOrder == "" {
		sortOrder = "asc"
	}

	var less func(a, b model.FilePointer) bool
	switch sortBy {
	case SortByName:
		less = func(a, b model.FilePointer) bool { return a.FileName < b.FileName }
	case SortByUploadedAt:
		less = func(a, b model.FilePointer) bool { return a.UploadedAt < b.UploadedAt }
	case SortByFileSize:
		less = func(a, b model.FilePointer) bool { return a.FileSize < b.FileSize }
	default:
		return fmt.Errorf("%w: unknown sortBy %q", apperr.ErrValidation, sortBy)
	}

	switch sortOrder {
	case "asc":
	case "desc":
		asc := less
		less = func(a, b model.FilePointer) bool { return asc(b, a) }
	default:
		return fmt.Errorf("%w: unknown sortOrder %q", apperr.ErrValidation, sortOrder)
	}

	sort.SliceStable(pointers, func(i, j int) bool { return less(pointers[i], pointers[j]) })
	return nil
}

// ListVersions returns the full version history of a file, newest first.
// Requires folder access with any valid role.
func (s *Service) ListVersions(ctx context.Context, principal model.Principal, folderID, fileName string) ([]model.FileVersion, error) {
	if folderID == "" || fileName == "" {
		return nil, fmt.Errorf("%w: folderId and fileName required", apperr.ErrValidation)
	}
	if err := s.access.RequireFolderAccess(ctx, principal, folderID); err != nil {
		return nil, err
	}

	items, err := s.table.QueryPrefix(ctx, schema.FolderPartition(folderID), schema.VersionSortPrefix(fileName))
	if err != nil {
		return nil, apperr.Storage(err)
	}

	versions := make([]model.FileVersion, 0, len(items))
	for _, item := range items {
		version, err := schema.DecodeFileVersion(item)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		versions = append(versions, version)
	}

	// The sort key renders versions in unpadded decimal, so lexicographic
	// scan order is not numeric order past version 9. Sort numerically.
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	return versions, nil
}
