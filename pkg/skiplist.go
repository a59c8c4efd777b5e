package statehash

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// recordSkiplist holds the loaded snapshot as an ordered, path-keyed index.
// The check engine removes entries as the walk matches them; whatever is
// left afterwards is drained, already in path order, as missing files. The
// per-entry context tracks which snapshot file a record was loaded from.
type recordSkiplist struct {
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, string, string]
}

// newRecordSkiplist creates an empty record index
func newRecordSkiplist() *recordSkiplist {
	getKeyFromItem := func(r *FileRecord) string {
		return r.RelPath
	}

	// Approximate in-memory size; only the skiplist's bookkeeping uses this
	getItemSize := func(r *FileRecord) int {
		return len(r.RelPath) + DigestSize
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &recordSkiplist{
		skiplist: zcsl.MakeZeroCopySkiplist[FileRecord, string, string](
			16,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Insert adds a record, tagged with the snapshot file it came from
func (rs *recordSkiplist) Insert(rec FileRecord, source string) bool {
	return rs.skiplist.Insert(&rec, source)
}

// Find returns the record stored for relPath, or nil
func (rs *recordSkiplist) Find(relPath string) *FileRecord {
	node, _ := rs.skiplist.Find(relPath)
	if node == nil {
		return nil
	}
	return node.Item()
}

// Take removes and returns the record stored for relPath, or nil if the
// path is untracked
func (rs *recordSkiplist) Take(relPath string) *FileRecord {
	node, _ := rs.skiplist.Find(relPath)
	if node == nil {
		return nil
	}
	rec := node.Item()
	rs.skiplist.Delete(relPath)
	return rec
}

// ForEach iterates all records in path order
func (rs *recordSkiplist) ForEach(callback func(rec *FileRecord, source string) bool) {
	for current := rs.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// Length returns the number of records in the index
func (rs *recordSkiplist) Length() int {
	return rs.skiplist.Length()
}
