// Package skiplist is an ordered set whose nodes live in an arena and
// reference each other by index. Insertion is lock-free and may run from
// several goroutines at once; there is no removal short of Reset.
package skiplist

import (
	"sync/atomic"

	"github.com/zhangyunhao116/fastrand"
)

const (
	maxHeight = 12
	// one node in branching gets promoted to the next level
	branching = 4
	head      = 0
)

type node[T any] struct {
	value  T
	height uint32
	tower  [maxHeight]atomic.Uint32
}

// Skiplist orders values with cmp. cmp must be a total order; values that
// compare equal are stored once.
type Skiplist[T any] struct {
	cmp    func(a, b *T) int
	arena  *arena[T]
	height atomic.Uint32
	count  atomic.Int64
}

func New[T any](cmp func(a, b *T) int) *Skiplist[T] {
	s := &Skiplist[T]{cmp: cmp}
	s.Reset()
	return s
}

// Reset drops every value. It must not race with other calls.
func (s *Skiplist[T]) Reset() {
	s.arena = &arena[T]{}
	s.arena.node(s.arena.alloc()).height = maxHeight
	s.height.Store(1)
	s.count.Store(0)
}

func (s *Skiplist[T]) Len() int {
	return int(s.count.Load())
}

// Insert adds v and returns a pointer to the stored copy, which stays valid
// until Reset. If an equal value is already present it is returned with
// inserted=false.
func (s *Skiplist[T]) Insert(v T) (stored *T, inserted bool) {
	var prev, next [maxHeight + 1]uint32

	listHeight := s.height.Load()
	prev[listHeight] = head
	for i := int(listHeight) - 1; i >= 0; i-- {
		var found bool
		prev[i], next[i], found = s.findSplice(&v, i, prev[i+1])
		if found {
			return &s.arena.node(next[i]).value, false
		}
	}

	height := randomHeight()
	idx := s.arena.alloc()
	nd := s.arena.node(idx)
	nd.value = v
	nd.height = height

	for lh := s.height.Load(); height > lh; lh = s.height.Load() {
		if s.height.CompareAndSwap(lh, height) {
			break
		}
	}

	for i := 0; i < int(height); i++ {
		if i >= int(listHeight) {
			prev[i], next[i], _ = s.findSplice(&v, i, head)
		}
		for {
			nd.tower[i].Store(next[i])
			if s.arena.node(prev[i]).tower[i].CompareAndSwap(next[i], idx) {
				break
			}
			// Lost a race at this level; nodes are never removed, so the
			// search can resume from the old predecessor.
			var found bool
			prev[i], next[i], found = s.findSplice(&v, i, prev[i])
			if found && i == 0 {
				return &s.arena.node(next[i]).value, false
			}
		}
	}

	s.count.Add(1)
	return &nd.value, true
}

// findSplice walks level from start and returns the last node before v and
// the first node at or after it.
func (s *Skiplist[T]) findSplice(v *T, level int, start uint32) (prev, next uint32, found bool) {
	prev = start
	for {
		next = s.arena.node(prev).tower[level].Load()
		if next == head {
			return prev, head, false
		}
		c := s.cmp(v, &s.arena.node(next).value)
		if c == 0 {
			return prev, next, true
		}
		if c < 0 {
			return prev, next, false
		}
		prev = next
	}
}

// seekLess returns the last node strictly before v, or head. With orEqual
// it returns the last node at or before v.
func (s *Skiplist[T]) seekLess(v *T, orEqual bool) uint32 {
	x := uint32(head)
	for level := int(s.height.Load()) - 1; level >= 0; level-- {
		for {
			next := s.arena.node(x).tower[level].Load()
			if next == head {
				break
			}
			c := s.cmp(&s.arena.node(next).value, v)
			if c > 0 || (c == 0 && !orEqual) {
				break
			}
			x = next
		}
	}
	return x
}

func (s *Skiplist[T]) last() uint32 {
	x := uint32(head)
	for level := int(s.height.Load()) - 1; level >= 0; level-- {
		for next := s.arena.node(x).tower[level].Load(); next != head; next = s.arena.node(x).tower[level].Load() {
			x = next
		}
	}
	return x
}

func randomHeight() uint32 {
	h := uint32(1)
	for h < maxHeight && fastrand.Uint32n(branching) == 0 {
		h++
	}
	return h
}
