package schema

import (
	"encoding/json"
	"fmt"

	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/pkg/table"
)

// Values are serialized as JSON documents. The table only ever needs the
// identifying fields in key position; everything else rides along in the
// value, which keeps the row format debuggable and lets attributes evolve
// without a key migration.

func marshal(v any) []byte {
	encoded, err := json.Marshal(v)
	if err != nil {
		// All entity types are plain data; this cannot fail at runtime.
		panic(fmt.Sprintf("schema: marshal %T: %v", v, err))
	}
	return encoded
}

// UserItem encodes a user record with its GSI1 enumeration projection.
func UserItem(u model.User) table.Item {
	return table.Item{
		Key: UserKey(u.Username),
		Indexes: map[string]table.Key{
			table.IndexGSI1: {Partition: AllUsers, Sort: tagUser + u.Username},
		},
		Value: marshal(u),
	}
}

// DecodeUser decodes a user record.
func DecodeUser(item table.Item) (model.User, error) {
	var u model.User
	if err := json.Unmarshal(item.Value, &u); err != nil {
		return model.User{}, fmt.Errorf("decode user %q: %w", item.Key.Partition, err)
	}
	return u, nil
}

// SessionItem encodes a session record. Sessions are looked up by token
// only, so they carry no index projections.
func SessionItem(s model.Session) table.Item {
	return table.Item{
		Key:   SessionKey(s.Token),
		Value: marshal(s),
	}
}

// DecodeSession decodes a session record.
func DecodeSession(item table.Item) (model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(item.Value, &s); err != nil {
		return model.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// FolderItem encodes a folder record with its GSI1 enumeration and GSI2
// children-of-parent projections.
func FolderItem(f model.Folder) table.Item {
	return table.Item{
		Key: FolderKey(f.FolderID),
		Indexes: map[string]table.Key{
			table.IndexGSI1: {Partition: AllFolders, Sort: tagFolder + f.FolderID},
			table.IndexGSI2: {Partition: ChildrenOf(f.ParentFolderID), Sort: tagFolder + f.FolderID},
		},
		Value: marshal(f),
	}
}

// DecodeFolder decodes a folder record.
func DecodeFolder(item table.Item) (model.Folder, error) {
	var f model.Folder
	if err := json.Unmarshal(item.Value, &f); err != nil {
		return model.Folder{}, fmt.Errorf("decode folder %q: %w", item.Key.Partition, err)
	}
	return f, nil
}

// AssignmentItem encodes a user-folder assignment edge with its GSI3
// users-of-folder projection.
func AssignmentItem(a model.FolderAssignment) table.Item {
	return table.Item{
		Key: AssignmentKey(a.Username, a.FolderID),
		Indexes: map[string]table.Key{
			table.IndexGSI3: {Partition: AssignedTo(a.FolderID), Sort: tagUser + a.Username},
		},
		Value: marshal(a),
	}
}

// DecodeAssignment decodes an assignment edge.
func DecodeAssignment(item table.Item) (model.FolderAssignment, error) {
	var a model.FolderAssignment
	if err := json.Unmarshal(item.Value, &a); err != nil {
		return model.FolderAssignment{}, fmt.Errorf("decode assignment %q/%q: %w",
			item.Key.Partition, item.Key.Sort, err)
	}
	return a, nil
}

// FileVersionItem encodes one immutable version row. Version rows are not
// projected into any index; cross-folder search sees only latest pointers.
func FileVersionItem(v model.FileVersion) table.Item {
	return table.Item{
		Key:   FileVersionKey(v.FolderID, v.FileName, v.VersionNumber),
		Value: marshal(v),
	}
}

// DecodeFileVersion decodes a version row.
func DecodeFileVersion(item table.Item) (model.FileVersion, error) {
	var v model.FileVersion
	if err := json.Unmarshal(item.Value, &v); err != nil {
		return model.FileVersion{}, fmt.Errorf("decode file version %q/%q: %w",
			item.Key.Partition, item.Key.Sort, err)
	}
	return v, nil
}

// FilePointerItem encodes the latest-version pointer with its GSI4
// cross-folder search projection.
func FilePointerItem(p model.FilePointer) table.Item {
	return table.Item{
		Key: FilePointerKey(p.FolderID, p.FileName),
		Indexes: map[string]table.Key{
			table.IndexGSI4: {Partition: AllFiles, Sort: tagFile + p.FileName},
		},
		Value: marshal(p),
	}
}

// DecodeFilePointer decodes a latest-pointer row.
func DecodeFilePointer(item table.Item) (model.FilePointer, error) {
	var p model.FilePointer
	if err := json.Unmarshal(item.Value, &p); err != nil {
		return model.FilePointer{}, fmt.Errorf("decode file pointer %q/%q: %w",
			item.Key.Partition, item.Key.Sort, err)
	}
	return p, nil
}
