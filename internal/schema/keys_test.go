package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/pkg/table"
)

func folderFixture() model.Folder {
	return model.Folder{
		FolderID:       "f1",
		FolderName:     "Documents",
		ParentFolderID: model.RootFolderID,
		CreatedAt:      1700000000,
	}
}

func sessionFixture() model.Session {
	return model.Session{
		Token:     "tok",
		Username:  "alice",
		Role:      model.RoleReader,
		CreatedAt: 1700000000,
		ExpiresAt: 1700086400,
	}
}

func versionFixture() model.FileVersion {
	return model.FileVersion{
		FileID:        "id-1",
		FileName:      "report.pdf",
		FolderID:      "f1",
		FolderName:    "Documents",
		StorageKey:    "f1/report.pdf/v1",
		FileSize:      42,
		UploadedBy:    "alice",
		UploadedAt:    1700000000,
		VersionNumber: 1,
	}
}

func pointerFixture() model.FilePointer {
	return model.FilePointer{
		FileName:      "report.pdf",
		FolderID:      "f1",
		FolderName:    "Documents",
		LatestVersion: 1,
		FileSize:      42,
		UploadedBy:    "alice",
		UploadedAt:    1700000000,
	}
}

func TestValidateIdentifier(t *testing.T) {
	t.Run("AcceptsPlainNames", func(t *testing.T) {
		assert.NoError(t, ValidateIdentifier("fileName", "report.pdf"))
		assert.NoError(t, ValidateIdentifier("username", "alice"))
		assert.NoError(t, ValidateIdentifier("fileName", "name with spaces"))
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		err := ValidateIdentifier("fileName", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("RejectsTagDelimiter", func(t *testing.T) {
		err := ValidateIdentifier("fileName", "a#VERSION#2")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("RejectsNulByte", func(t *testing.T) {
		err := ValidateIdentifier("username", "bob\x00evil")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})
}

func TestKeyConstruction(t *testing.T) {
	t.Run("UserAndAssignmentShareAPartition", func(t *testing.T) {
		userKey := UserKey("alice")
		assignmentKey := AssignmentKey("alice", "f1")
		assert.Equal(t, userKey.Partition, assignmentKey.Partition)
		assert.Equal(t, "USER#alice", userKey.Sort)
		assert.Equal(t, "FOLDER#f1", assignmentKey.Sort)
	})

	t.Run("FolderAndFilesShareAPartition", func(t *testing.T) {
		folderKey := FolderKey("f1")
		pointerKey := FilePointerKey("f1", "report.pdf")
		versionKey := FileVersionKey("f1", "report.pdf", 3)
		assert.Equal(t, folderKey.Partition, pointerKey.Partition)
		assert.Equal(t, folderKey.Partition, versionKey.Partition)
		assert.Equal(t, "FILE#report.pdf", pointerKey.Sort)
		assert.Equal(t, "FILE#report.pdf#VERSION#3", versionKey.Sort)
	})

	t.Run("VersionRowsSortBehindTheirPointer", func(t *testing.T) {
		pointer := FilePointerKey("f1", "report.pdf")
		version := FileVersionKey("f1", "report.pdf", 1)
		assert.True(t, pointer.Sort < version.Sort)

		prefix := VersionSortPrefix("report.pdf")
		assert.Contains(t, version.Sort, prefix)
		assert.NotContains(t, pointer.Sort, prefix)
	})

	t.Run("DistinctFilesNeverCollide", func(t *testing.T) {
		// "report" version 2 vs a file literally named "report#VERSION#2" is
		// the collision ValidateIdentifier exists to prevent; the codec
		// itself keeps distinct legal names apart.
		a := FileVersionKey("f1", "report", 2)
		b := FilePointerKey("f1", "report2")
		assert.NotEqual(t, a, b)
	})
}

func TestParseFileSort(t *testing.T) {
	t.Run("PointerRow", func(t *testing.T) {
		parsed, err := ParseFileSort("FILE#report.pdf")
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", parsed.FileName)
		assert.True(t, parsed.IsPointer())
	})

	t.Run("VersionRow", func(t *testing.T) {
		parsed, err := ParseFileSort("FILE#report.pdf#VERSION#12")
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", parsed.FileName)
		assert.Equal(t, 12, parsed.Version)
		assert.False(t, parsed.IsPointer())
	})

	t.Run("RoundTripsConstructedKeys", func(t *testing.T) {
		key := FileVersionKey("f1", "notes.txt", 7)
		parsed, err := ParseFileSort(key.Sort)
		require.NoError(t, err)
		assert.Equal(t, FileSort{FileName: "notes.txt", Version: 7}, parsed)
	})

	t.Run("RejectsForeignKeys", func(t *testing.T) {
		_, err := ParseFileSort("FOLDER#f1")
		assert.Error(t, err)
	})

	t.Run("RejectsMalformedVersion", func(t *testing.T) {
		_, err := ParseFileSort("FILE#a#VERSION#zero")
		assert.Error(t, err)
		_, err = ParseFileSort("FILE#a#VERSION#0")
		assert.Error(t, err)
	})
}

func TestIndexProjections(t *testing.T) {
	t.Run("Folder", func(t *testing.T) {
		item := FolderItem(folderFixture())
		assert.Equal(t, table.Key{Partition: AllFolders, Sort: "FOLDER#f1"}, item.Indexes[table.IndexGSI1])
		assert.Equal(t, table.Key{Partition: "PARENT#ROOT", Sort: "FOLDER#f1"}, item.Indexes[table.IndexGSI2])
	})

	t.Run("SessionHasNoProjections", func(t *testing.T) {
		item := SessionItem(sessionFixture())
		assert.Empty(t, item.Indexes)
	})

	t.Run("VersionRowHasNoProjections", func(t *testing.T) {
		item := FileVersionItem(versionFixture())
		assert.Empty(t, item.Indexes)
	})

	t.Run("PointerProjectsIntoSearchIndex", func(t *testing.T) {
		item := FilePointerItem(pointerFixture())
		assert.Equal(t, table.Key{Partition: AllFiles, Sort: "FILE#report.pdf"}, item.Indexes[table.IndexGSI4])
	})
}

func TestCodecRoundTrip(t *testing.T) {
	folder := folderFixture()
	decoded, err := DecodeFolder(FolderItem(folder))
	require.NoError(t, err)
	assert.Equal(t, folder, decoded)

	pointer := pointerFixture()
	decodedPointer, err := DecodeFilePointer(FilePointerItem(pointer))
	require.NoError(t, err)
	assert.Equal(t, pointer, decodedPointer)
}
