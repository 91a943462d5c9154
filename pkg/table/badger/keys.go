package badger

import (
	"bytes"

	"github.com/filedock/filedock/pkg/table"
)

// Database key namespace
// ======================
//
// BadgerDB is a flat sorted key space, so the two-part (partition, sort)
// table address and the four secondary index projections are encoded into
// namespaced keys. A NUL byte separates segments; the domain key schema
// never produces identifiers containing NUL (the codec rejects them), so
// the encoding cannot collide two distinct addresses.
//
// Namespace   Key format                                   Value
// ---------------------------------------------------------------------------
// Primary     p \0 <partition> \0 <sort>                   storedItem (JSON)
// Index       i \0 <name> \0 <ipart> \0 <isort> \0 <partition> \0 <sort>
//                                                          primary Key (JSON)
//
// The primary key is appended to index keys so that the index namespace
// stays unique even if two items project to the same index address, and so
// prefix iteration over "i \0 <name> \0 <ipart> \0" enumerates an index
// partition in index sort order.

const (
	prefixPrimary = "p"
	prefixIndex   = "i"
	sep           = "\x00"
)

// keyPrimary encodes the badger key for an item's primary address.
func keyPrimary(key table.Key) []byte {
	return []byte(prefixPrimary + sep + key.Partition + sep + key.Sort)
}

// keyPrimaryPrefix encodes the iteration prefix for a partition and an
// optional sort-key prefix.
func keyPrimaryPrefix(partition, sortPrefix string) []byte {
	return []byte(prefixPrimary + sep + partition + sep + sortPrefix)
}

// keyPartitionPrefix encodes the iteration prefix for a partition-prefix
// scan across the whole primary namespace.
func keyPartitionPrefix(partitionPrefix string) []byte {
	return []byte(prefixPrimary + sep + partitionPrefix)
}

// keyIndex encodes the badger key for one index projection of an item.
func keyIndex(index string, projection, primary table.Key) []byte {
	var b bytes.Buffer
	b.WriteString(prefixIndex)
	b.WriteString(sep)
	b.WriteString(index)
	b.WriteString(sep)
	b.WriteString(projection.Partition)
	b.WriteString(sep)
	b.WriteString(projection.Sort)
	b.WriteString(sep)
	b.WriteString(primary.Partition)
	b.WriteString(sep)
	b.WriteString(primary.Sort)
	return b.Bytes()
}

// keyIndexPrefix encodes the iteration prefix for one index partition.
func keyIndexPrefix(index, partition string) []byte {
	return []byte(prefixIndex + sep + index + sep + partition + sep)
}
