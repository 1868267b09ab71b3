package memtable

import (
	"sort"

	"wbwi/pkg/comparator"
	"wbwi/pkg/types"
)

// memIterator walks a point-in-time copy of one column family.
type memIterator struct {
	cmp   comparator.Comparator
	items []Item
	pos   int
}

func (it *memIterator) Seek(target types.Key) {
	it.pos = sort.Search(len(it.items), func(i int) bool {
		return it.cmp.Compare(it.items[i].Key, target) >= 0
	})
}

func (it *memIterator) SeekForPrev(target types.Key) {
	it.pos = sort.Search(len(it.items), func(i int) bool {
		return it.cmp.Compare(it.items[i].Key, target) > 0
	}) - 1
}

func (it *memIterator) SeekToFirst() { it.pos = 0 }

func (it *memIterator) SeekToLast() { it.pos = len(it.items) - 1 }

func (it *memIterator) Next() {
	if it.Valid() {
		it.pos++
	}
}

func (it *memIterator) Prev() {
	if it.Valid() {
		it.pos--
	}
}

func (it *memIterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.items)
}

func (it *memIterator) Key() types.Key { return it.items[it.pos].Key }

func (it *memIterator) Value() types.Value { return it.items[it.pos].Value }

func (it *memIterator) Error() error { return nil }

func (it *memIterator) Close() error {
	it.items = nil
	it.pos = -1
	return nil
}
