package skiplist

// Iterator walks a Skiplist. The zero position is invalid. An iterator is
// not safe for concurrent use, but several iterators may read while other
// goroutines insert.
type Iterator[T any] struct {
	list *Skiplist[T]
	nd   uint32
}

func (s *Skiplist[T]) NewIterator() *Iterator[T] {
	return &Iterator[T]{list: s}
}

func (it *Iterator[T]) Valid() bool {
	return it.nd != head
}

// Value returns the stored value. The pointer is stable until Reset.
func (it *Iterator[T]) Value() *T {
	return &it.list.arena.node(it.nd).value
}

func (it *Iterator[T]) Next() {
	it.nd = it.list.arena.node(it.nd).tower[0].Load()
}

func (it *Iterator[T]) Prev() {
	it.nd = it.list.seekLess(it.Value(), false)
}

// Seek moves to the first value at or after target.
func (it *Iterator[T]) Seek(target *T) {
	it.nd = it.list.arena.node(it.list.seekLess(target, false)).tower[0].Load()
}

// SeekForPrev moves to the last value at or before target.
func (it *Iterator[T]) SeekForPrev(target *T) {
	it.nd = it.list.seekLess(target, true)
}

func (it *Iterator[T]) SeekToFirst() {
	it.nd = it.list.arena.node(head).tower[0].Load()
}

func (it *Iterator[T]) SeekToLast() {
	it.nd = it.list.last()
}
