package skiplist

import (
	"sync"
	"sync/atomic"
)

const (
	chunkShift = 8
	chunkSize  = 1 << chunkShift
	chunkMask  = chunkSize - 1
)

type chunk[T any] [chunkSize]node[T]

// arena hands out nodes by index. Nodes are never freed one by one: the
// whole arena is dropped on reset. Chunks are published through an
// immutable directory so readers never take the lock.
type arena[T any] struct {
	next atomic.Uint32
	dir  atomic.Pointer[[]*chunk[T]]
	mu   sync.Mutex
}

func (a *arena[T]) alloc() uint32 {
	idx := a.next.Add(1) - 1
	c := int(idx >> chunkShift)

	if dir := a.dir.Load(); dir != nil && c < len(*dir) {
		return idx
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var cur []*chunk[T]
	if dir := a.dir.Load(); dir != nil {
		cur = *dir
	}
	if c < len(cur) {
		return idx
	}
	grown := make([]*chunk[T], c+1, 2*(c+1))
	copy(grown, cur)
	for i := len(cur); i <= c; i++ {
		grown[i] = new(chunk[T])
	}
	a.dir.Store(&grown)
	return idx
}

func (a *arena[T]) node(idx uint32) *node[T] {
	dir := *a.dir.Load()
	return &dir[idx>>chunkShift][idx&chunkMask]
}

func (a *arena[T]) size() uint32 {
	return a.next.Load()
}
