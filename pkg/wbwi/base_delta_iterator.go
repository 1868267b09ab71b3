package wbwi

import (
	"wbwi/pkg/batch"
	"wbwi/pkg/comparator"
	"wbwi/pkg/db"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/iterator"
	"wbwi/pkg/merge"
	"wbwi/pkg/types"
)

// BaseDeltaIterator merges a base store iterator with the pending writes of
// a batch. Pending entries shadow base entries with an equal key and
// pending deletes hide them.
type BaseDeltaIterator struct {
	forward       bool
	currentAtBase bool
	equalKeys     bool
	err           error

	base  iterator.Iterator
	delta *deltaIterator
	cmp   comparator.Comparator
	upper types.Key

	env     merge.Env
	mergeOp merge.Operator
	// merged value of the current delta entry when it needed the base
	merged []byte
}

var _ iterator.Iterator = (*BaseDeltaIterator)(nil)

// NewIteratorWithBase layers the batch's writes to cf over base. The batch
// must have been created with OverwriteKey; otherwise the iterator reports
// ErrNotSupported. The returned iterator takes ownership of base.
func (w *WriteBatchWithIndex) NewIteratorWithBase(cf types.ColumnFamilyID, base iterator.Iterator, opts db.ReadOptions) iterator.Iterator {
	if !w.opts.OverwriteKey {
		_ = base.Close()
		return iterator.NewError(dberrors.NotSupportedf("iterator with base requires overwrite key mode"))
	}
	// range deletes issued after creation must hide base keys too
	base = &rangeFilter{Iterator: base, covered: func(key []byte) bool {
		return w.deleted.Contains(cf, key)
	}}
	return &BaseDeltaIterator{
		forward:       true,
		currentAtBase: true,
		base:          base,
		delta:         w.newDeltaIterator(cf),
		cmp:           w.opts.Comparators.Get(cf),
		upper:         opts.IterateUpperBound,
		env:           w.env,
		mergeOp:       w.MergeOperator(cf),
	}
}

// NewIteratorWithDB is NewIteratorWithBase over a fresh iterator of r.
func (w *WriteBatchWithIndex) NewIteratorWithDB(r db.Reader, opts db.ReadOptions, cf types.ColumnFamilyID) iterator.Iterator {
	return w.NewIteratorWithBase(cf, r.NewIterator(opts, cf), opts)
}

// NewIterator walks the raw index entries of cf, oldest first within a key.
func (w *WriteBatchWithIndex) NewIterator(cf types.ColumnFamilyID) *IndexIterator {
	return w.index.NewIterator(cf)
}

func (it *BaseDeltaIterator) Valid() bool {
	if it.err != nil {
		return false
	}
	if it.currentAtBase {
		return it.base.Valid()
	}
	return it.delta.Valid()
}

func (it *BaseDeltaIterator) SeekToFirst() {
	it.forward = true
	it.base.SeekToFirst()
	it.delta.SeekToFirst()
	it.updateCurrent()
}

func (it *BaseDeltaIterator) SeekToLast() {
	it.forward = false
	it.base.SeekToLast()
	it.delta.SeekToLast()
	it.updateCurrent()
}

func (it *BaseDeltaIterator) Seek(k types.Key) {
	it.forward = true
	it.base.Seek(k)
	it.delta.Seek(k)
	it.updateCurrent()
}

func (it *BaseDeltaIterator) SeekForPrev(k types.Key) {
	it.forward = false
	it.base.SeekForPrev(k)
	it.delta.SeekForPrev(k)
	it.updateCurrent()
}

func (it *BaseDeltaIterator) Next() {
	if !it.Valid() {
		it.err = dberrors.NotSupportedf("Next() on invalid iterator")
		return
	}
	if !it.forward {
		it.forward = true
		it.realign(it.base.SeekToFirst, it.delta.SeekToFirst)
	}
	it.advance()
}

func (it *BaseDeltaIterator) Prev() {
	if !it.Valid() {
		it.err = dberrors.NotSupportedf("Prev() on invalid iterator")
		return
	}
	if it.forward {
		it.forward = false
		it.realign(it.base.SeekToLast, it.delta.SeekToLast)
	}
	it.advance()
}

// realign prepares a direction change. The side that is not current sits
// one step beyond the current key in the old direction, so it is moved one
// step back; an exhausted side restarts from its new beginning.
func (it *BaseDeltaIterator) realign(restartBase, restartDelta func()) {
	it.equalKeys = false
	switch {
	case !it.base.Valid():
		restartBase()
	case !it.delta.Valid():
		restartDelta()
	case it.currentAtBase:
		it.advanceDelta()
	default:
		it.advanceBase()
	}
	if it.base.Valid() && it.delta.Valid() && it.cmp.Compare(it.delta.Entry().Key, it.base.Key()) == 0 {
		it.equalKeys = true
	}
}

func (it *BaseDeltaIterator) Key() types.Key {
	if it.currentAtBase {
		return it.base.Key()
	}
	return it.delta.Entry().Key
}

func (it *BaseDeltaIterator) Value() types.Value {
	if it.currentAtBase {
		return it.base.Value()
	}
	if it.merged != nil {
		return it.merged
	}
	return it.delta.Entry().Value
}

// Error reports the iterator's own error first, then the base's, then the
// batch's.
func (it *BaseDeltaIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if err := it.base.Error(); err != nil {
		return err
	}
	return it.delta.Error()
}

func (it *BaseDeltaIterator) Close() error {
	return it.base.Close()
}

func (it *BaseDeltaIterator) advance() {
	switch {
	case it.equalKeys:
		it.advanceBase()
		it.advanceDelta()
	case it.currentAtBase:
		it.advanceBase()
	default:
		it.advanceDelta()
	}
	it.updateCurrent()
}

func (it *BaseDeltaIterator) advanceDelta() {
	if it.forward {
		it.delta.Next()
	} else {
		it.delta.Prev()
	}
}

func (it *BaseDeltaIterator) advanceBase() {
	if it.forward {
		it.base.Next()
	} else {
		it.base.Prev()
	}
}

func isTombstone(e batch.WriteEntry) bool {
	return e.Type == batch.DeleteRecord || e.Type == batch.SingleDeleteRecord
}

// updateCurrent settles on whichever side holds the next key in the current
// direction, skipping pending deletes and the base keys they hide.
func (it *BaseDeltaIterator) updateCurrent() {
	it.err = nil
	it.merged = nil
	for {
		it.equalKeys = false
		deltaValid := it.delta.Valid()
		if !deltaValid && it.delta.Error() != nil {
			it.currentAtBase = false
			return
		}

		if !it.base.Valid() {
			if it.base.Error() != nil {
				it.currentAtBase = true
				return
			}
			if !deltaValid {
				return
			}
			entry := it.delta.Entry()
			if it.upper != nil && it.cmp.Compare(entry.Key, it.upper) >= 0 {
				it.currentAtBase = true
				return
			}
			if isTombstone(entry) {
				it.advanceDelta()
				continue
			}
			it.currentAtBase = false
			it.resolveMerge()
			return
		}

		if !deltaValid {
			it.currentAtBase = true
			return
		}

		entry := it.delta.Entry()
		c := it.cmp.Compare(entry.Key, it.base.Key())
		if !it.forward {
			c = -c
		}
		if c > 0 {
			it.currentAtBase = true
			return
		}
		it.equalKeys = c == 0
		if !isTombstone(entry) {
			it.currentAtBase = false
			it.resolveMerge()
			return
		}
		it.advanceDelta()
		if it.equalKeys {
			it.advanceBase()
		}
	}
}

// resolveMerge applies the pending operands of the current delta entry to
// the base value at the same key, if there is one.
func (it *BaseDeltaIterator) resolveMerge() {
	entry := it.delta.Entry()
	if entry.Type != batch.MergeRecord {
		return
	}
	var existing []byte
	if it.equalKeys {
		existing = it.base.Value()
	}
	v, err := merge.TimedFullMerge(it.env, it.mergeOp, entry.Key, existing, it.equalKeys, it.delta.operands)
	if err != nil {
		it.err = err
		return
	}
	if v == nil {
		v = []byte{}
	}
	it.merged = v
}
