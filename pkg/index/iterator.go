package index

import (
	"wbwi/pkg/batch"
	"wbwi/pkg/skiplist"
	"wbwi/pkg/types"
)

// Iterator walks the entries of one column family in (key, offset) order.
type Iterator struct {
	idx *Index
	cf  types.ColumnFamilyID
	it  *skiplist.Iterator[Entry]
}

func (x *Index) NewIterator(cf types.ColumnFamilyID) *Iterator {
	return &Iterator{idx: x, cf: cf, it: x.list.NewIterator()}
}

func (it *Iterator) ColumnFamily() types.ColumnFamilyID { return it.cf }

func (it *Iterator) Valid() bool {
	return it.it.Valid() && it.it.Value().cf == it.cf
}

// Seek moves to the oldest entry whose key is at or after key.
func (it *Iterator) Seek(key []byte) {
	target := seekTarget(it.cf, key)
	it.it.Seek(&target)
}

// SeekForPrev moves to the newest entry whose key is at or before key.
func (it *Iterator) SeekForPrev(key []byte) {
	target := seekForPrevTarget(it.cf, key)
	it.it.SeekForPrev(&target)
}

func (it *Iterator) SeekToFirst() {
	target := minTarget(it.cf)
	it.it.Seek(&target)
}

func (it *Iterator) SeekToLast() {
	next, ok := nextColumnFamily(it.cf)
	if !ok {
		it.it.SeekToLast()
		return
	}
	target := minTarget(next)
	it.it.Seek(&target)
	if it.it.Valid() {
		it.it.Prev()
	} else {
		it.it.SeekToLast()
	}
}

func (it *Iterator) Next() { it.it.Next() }

func (it *Iterator) Prev() { it.it.Prev() }

// Raw returns the index entry at the current position.
func (it *Iterator) Raw() *Entry { return it.it.Value() }

func (it *Iterator) Key() []byte { return it.idx.Key(it.it.Value()) }

// Entry decodes the record referenced by the current position.
func (it *Iterator) Entry() (batch.WriteEntry, error) {
	e := it.it.Value()
	rec, err := it.idx.batch.GetEntryFromDataOffset(e.Offset())
	if err != nil {
		return batch.WriteEntry{}, err
	}
	we := rec.Entry()
	we.InDeletedRange = e.InDeletedRange()
	return we, nil
}

// MatchesKey reports whether the current entry belongs to cf and has key.
func (it *Iterator) MatchesKey(cf types.ColumnFamilyID, key []byte) bool {
	if !it.it.Valid() {
		return false
	}
	e := it.it.Value()
	return e.cf == cf && it.idx.cmp.Equal(cf, it.idx.Key(e), key)
}
