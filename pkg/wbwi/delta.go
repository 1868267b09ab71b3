package wbwi

import (
	"wbwi/pkg/batch"
	"wbwi/pkg/index"
	"wbwi/pkg/iterator"
	"wbwi/pkg/types"
)

// deltaIterator shows the pending state of each key in one column family:
// the newest entry, with puts under a later range delete turned into
// deletes and merges resolved as far as the batch allows.
type deltaIterator struct {
	w   *WriteBatchWithIndex
	cf  types.ColumnFamilyID
	it  *index.Iterator
	cur batch.WriteEntry
	// unresolved merge operands when cur.Type is MergeRecord
	operands [][]byte
	err      error
}

func (w *WriteBatchWithIndex) newDeltaIterator(cf types.ColumnFamilyID) *deltaIterator {
	return &deltaIterator{w: w, cf: cf, it: w.index.NewIterator(cf)}
}

func (d *deltaIterator) Valid() bool {
	return d.err == nil && d.it.Valid()
}

func (d *deltaIterator) Error() error { return d.err }

func (d *deltaIterator) Entry() batch.WriteEntry { return d.cur }

func (d *deltaIterator) Seek(key []byte) {
	d.it.Seek(key)
	d.toNewest()
}

func (d *deltaIterator) SeekForPrev(key []byte) {
	d.it.SeekForPrev(key)
	d.load()
}

func (d *deltaIterator) SeekToFirst() {
	d.it.SeekToFirst()
	d.toNewest()
}

func (d *deltaIterator) SeekToLast() {
	d.it.SeekToLast()
	d.load()
}

func (d *deltaIterator) Next() {
	d.it.Next()
	d.toNewest()
}

func (d *deltaIterator) Prev() {
	if !d.it.Valid() {
		return
	}
	// step from the oldest entry of the current key
	d.it.Seek(d.it.Key())
	d.it.Prev()
	d.load()
}

// toNewest moves from the oldest entry of a key to its newest.
func (d *deltaIterator) toNewest() {
	if d.it.Valid() {
		d.it.SeekForPrev(d.it.Key())
	}
	d.load()
}

func (d *deltaIterator) load() {
	d.err = nil
	d.cur = batch.WriteEntry{}
	d.operands = nil
	if !d.it.Valid() {
		return
	}

	entry, err := d.it.Entry()
	if err != nil {
		d.err = err
		return
	}

	switch {
	case entry.InDeletedRange:
		entry.Type, entry.Value = batch.DeleteRecord, nil
	case entry.Type == batch.MergeRecord:
		res, err := d.w.Lookup(d.cf, entry.Key, false)
		if err != nil {
			d.err = err
			return
		}
		switch res.State {
		case Found:
			entry.Type, entry.Value = batch.PutRecord, res.Value
		case Deleted:
			entry.Type, entry.Value = batch.DeleteRecord, nil
		default:
			d.operands = res.Operands
		}
	}
	d.cur = entry
}

// rangeFilter hides the base keys covered by the batch's range deletes.
type rangeFilter struct {
	iterator.Iterator
	covered func(key []byte) bool
}

func (f *rangeFilter) Seek(k types.Key) {
	f.Iterator.Seek(k)
	f.skipForward()
}

func (f *rangeFilter) SeekForPrev(k types.Key) {
	f.Iterator.SeekForPrev(k)
	f.skipBackward()
}

func (f *rangeFilter) SeekToFirst() {
	f.Iterator.SeekToFirst()
	f.skipForward()
}

func (f *rangeFilter) SeekToLast() {
	f.Iterator.SeekToLast()
	f.skipBackward()
}

func (f *rangeFilter) Next() {
	f.Iterator.Next()
	f.skipForward()
}

func (f *rangeFilter) Prev() {
	f.Iterator.Prev()
	f.skipBackward()
}

func (f *rangeFilter) skipForward() {
	for f.Iterator.Valid() && f.covered(f.Iterator.Key()) {
		f.Iterator.Next()
	}
}

func (f *rangeFilter) skipBackward() {
	for f.Iterator.Valid() && f.covered(f.Iterator.Key()) {
		f.Iterator.Prev()
	}
}
