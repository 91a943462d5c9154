// Package schema is the key schema codec for the FileDock table.
//
// Five entity relationships are overloaded into one (partition, sort) table
// plus four secondary index projections. A literal type tag prefixes every
// key segment so row subtypes sharing a partition stay distinguishable and
// range-scannable:
//
// Entity           PK                  SK                          Indexes
// ---------------------------------------------------------------------------
// User             USER#<name>         USER#<name>                 GSI1 USERS / USER#<name>
// Session          SESSION#<token>     SESSION#<token>             (none)
// Folder           FOLDER#<id>         FOLDER#<id>                 GSI1 FOLDERS / FOLDER#<id>
//                                                                  GSI2 PARENT#<parent> / FOLDER#<id>
// FolderAssignment USER#<name>         FOLDER#<id>                 GSI3 FOLDER#<id> / USER#<name>
// FileVersion      FOLDER#<id>         FILE#<file>#VERSION#<n>     (none)
// FilePointer      FOLDER#<id>         FILE#<file>                 GSI4 FILES / FILE#<file>
//
// Co-location consequences: a folder's own metadata row and every file row
// under it share one partition; a user's record and every folder assigned to
// that user share one partition. All versions of one file sort contiguously
// behind its pointer row.
//
// `#` is the tag delimiter, so identifiers that flow into sort keys
// (usernames, folder names are not in keys, but file names are) must not
// contain it; ValidateIdentifier enforces that, which keeps encoding
// reversible and collision-free: a file literally named "a#VERSION#2" would
// otherwise collide with version 2 of file "a".
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/pkg/table"
)

// Entity tag prefixes.
const (
	tagUser    = "USER#"
	tagSession = "SESSION#"
	tagFolder  = "FOLDER#"
	tagFile    = "FILE#"
	tagVersion = "#VERSION#"
	tagParent  = "PARENT#"
)

// Index partition values for the full-enumeration projections.
const (
	AllUsers   = "USERS"
	AllFolders = "FOLDERS"
	AllFiles   = "FILES"
)

// ValidateIdentifier rejects identifiers that would break key encoding: the
// empty string, the tag delimiter `#`, and control bytes the underlying
// stores use as separators.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", apperr.ErrValidation, field)
	}
	if strings.ContainsAny(value, "#\x00") {
		return fmt.Errorf("%w: %s must not contain '#'", apperr.ErrValidation, field)
	}
	return nil
}

// UserKey addresses a user record.
func UserKey(username string) table.Key {
	return table.Key{Partition: tagUser + username, Sort: tagUser + username}
}

// UserPartition is the primary partition holding a user record and all of
// the user's folder assignments.
func UserPartition(username string) string {
	return tagUser + username
}

// SessionKey addresses a session record.
func SessionKey(token string) table.Key {
	return table.Key{Partition: tagSession + token, Sort: tagSession + token}
}

// SessionPartitionPrefix is the partition prefix covering every session row,
// used only by the sessions-of-a-user scan.
const SessionPartitionPrefix = tagSession

// FolderKey addresses a folder metadata record.
func FolderKey(folderID string) table.Key {
	return table.Key{Partition: tagFolder + folderID, Sort: tagFolder + folderID}
}

// FolderPartition is the primary partition holding a folder's metadata row
// and every file row scoped to it.
func FolderPartition(folderID string) string {
	return tagFolder + folderID
}

// ChildrenOf is the GSI2 partition value enumerating the direct children of
// a parent folder (or of the root sentinel).
func ChildrenOf(parentFolderID string) string {
	return tagParent + parentFolderID
}

// AssignmentKey addresses one user-folder assignment edge. It lives in the
// user's partition so one prefix query answers "folders this user can see".
func AssignmentKey(username, folderID string) table.Key {
	return table.Key{Partition: tagUser + username, Sort: tagFolder + folderID}
}

// AssignmentSortPrefix is the sort prefix selecting all assignment rows
// within a user partition.
const AssignmentSortPrefix = tagFolder

// AssignedTo is the GSI3 partition value enumerating the users assigned to a
// folder.
func AssignedTo(folderID string) string {
	return tagFolder + folderID
}

// FilePointerKey addresses the latest-version pointer for a file.
func FilePointerKey(folderID, fileName string) table.Key {
	return table.Key{Partition: tagFolder + folderID, Sort: tagFile + fileName}
}

// FileVersionKey addresses one immutable version row. Version numbers are
// rendered in decimal without padding; version history ordering is resolved
// numerically after the range scan, never lexicographically.
func FileVersionKey(folderID, fileName string, version int) table.Key {
	return table.Key{
		Partition: tagFolder + folderID,
		Sort:      tagFile + fileName + tagVersion + strconv.Itoa(version),
	}
}

// FileSortPrefix is the sort prefix selecting every file row (pointers and
// versions) within a folder partition.
const FileSortPrefix = tagFile

// VersionSortPrefix is the sort prefix selecting all version rows of one
// file within a folder partition.
func VersionSortPrefix(fileName string) string {
	return tagFile + fileName + tagVersion
}

// FileSort is the decoded form of a file-row sort key.
type FileSort struct {
	FileName string
	// Version is 0 for a latest-pointer row, >= 1 for a version row.
	Version int
}

// IsPointer reports whether the sort key addressed a latest-pointer row.
func (f FileSort) IsPointer() bool {
	return f.Version == 0
}

// ParseFileSort decodes a file-row sort key back into its identifying
// fields. Because file names cannot contain `#`, the split is unambiguous.
func ParseFileSort(sort string) (FileSort, error) {
	rest, ok := strings.CutPrefix(sort, tagFile)
	if !ok {
		return FileSort{}, fmt.Errorf("not a file sort key: %q", sort)
	}
	name, versionPart, found := strings.Cut(rest, tagVersion)
	if !found {
		return FileSort{FileName: rest}, nil
	}
	version, err := strconv.Atoi(versionPart)
	if err != nil || version < 1 {
		return FileSort{}, fmt.Errorf("malformed version in sort key %q", sort)
	}
	return FileSort{FileName: name, Version: version}, nil
}
