// Package index orders the records of a write batch by column family, key
// and offset. Entries point into the batch buffer instead of copying keys.
package index

import (
	"cmp"
	"math"

	"wbwi/pkg/batch"
	"wbwi/pkg/comparator"
	"wbwi/pkg/skiplist"
	"wbwi/pkg/types"
)

// Index is safe for concurrent Add calls. Readers must not race with
// writers appending to the underlying batch.
type Index struct {
	batch *batch.WriteBatch
	cmp   *comparator.Table
	list  *skiplist.Skiplist[Entry]
}

func New(b *batch.WriteBatch, cmp *comparator.Table) *Index {
	x := &Index{batch: b, cmp: cmp}
	x.list = skiplist.New(x.compare)
	return x
}

func (x *Index) Comparators() *comparator.Table { return x.cmp }

func (x *Index) Len() int { return x.list.Len() }

// Clear drops every entry. It must not race with other calls.
func (x *Index) Clear() { x.list.Reset() }

// Add indexes the record at offset, whose key occupies
// [keyOffset, keyOffset+keySize) of the batch buffer.
func (x *Index) Add(cf types.ColumnFamilyID, keyOffset, keySize, offset int) *Entry {
	e, _ := x.list.Insert(Entry{
		offset:    int64(offset),
		cf:        cf,
		keyOffset: keyOffset,
		keySize:   keySize,
	})
	return e
}

// Update repoints the newest entry for key at offset, unless that entry is a
// merge. It returns false when nothing was updated and the caller should Add.
func (x *Index) Update(cf types.ColumnFamilyID, key []byte, offset int) (bool, error) {
	it := x.NewIterator(cf)
	it.SeekForPrev(key)
	if !it.MatchesKey(cf, key) {
		return false, nil
	}
	we, err := it.Entry()
	if err != nil {
		return false, err
	}
	if we.Type == batch.MergeRecord {
		return false, nil
	}
	it.Raw().repoint(offset)
	return true, nil
}

// MarkDeletedRange flags every entry of cf with a key in [begin, end). It
// returns the number of entries flagged.
func (x *Index) MarkDeletedRange(cf types.ColumnFamilyID, begin, end []byte) int {
	n := 0
	it := x.NewIterator(cf)
	for it.Seek(begin); it.Valid(); it.Next() {
		if x.cmp.CompareKey(cf, it.Key(), end) >= 0 {
			break
		}
		it.Raw().markDeleted()
		n++
	}
	return n
}

// Key returns the key of e. Seek targets yield their search key.
func (x *Index) Key(e *Entry) []byte {
	if e.searchKey != nil || e.minInCF {
		return e.searchKey
	}
	return x.batch.Data()[e.keyOffset : e.keyOffset+e.keySize]
}

func (x *Index) compare(a, b *Entry) int {
	if c := cmp.Compare(a.cf, b.cf); c != 0 {
		return c
	}
	switch {
	case a.minInCF && b.minInCF:
		return 0
	case a.minInCF:
		return -1
	case b.minInCF:
		return 1
	}
	if c := x.cmp.CompareKey(a.cf, x.Key(a), x.Key(b)); c != 0 {
		return c
	}
	return cmp.Compare(a.Offset(), b.Offset())
}

func nextColumnFamily(cf types.ColumnFamilyID) (types.ColumnFamilyID, bool) {
	if cf == math.MaxUint32 {
		return 0, false
	}
	return cf + 1, true
}
