// Package intervalmap keeps a union of half-open [from, to) intervals as an
// ordered run of alternating Start and Stop markers.
package intervalmap

import (
	"fmt"
	"strings"

	"github.com/google/btree"
)

const degree = 8

type marker[K any] struct {
	key  K
	stop bool
	cmp  func(a, b K) int
}

func (m marker[K]) Less(than btree.Item) bool {
	return m.cmp(m.key, than.(marker[K]).key) < 0
}

// Map is not safe for concurrent use.
type Map[K any] struct {
	cmp  func(a, b K) int
	tree *btree.BTree
}

func New[K any](cmp func(a, b K) int) *Map[K] {
	return &Map[K]{cmp: cmp, tree: btree.New(degree)}
}

// AddInterval merges [from, to) into the set. Empty or inverted intervals
// are ignored.
func (m *Map[K]) AddInterval(from, to K) {
	if m.cmp(from, to) >= 0 {
		return
	}
	m.fixFrom(from)
	m.fixTo(to)

	// Drop whatever sits strictly between the two boundaries.
	var inner []btree.Item
	start, ok := m.seekForPrev(from)
	if !ok {
		return
	}
	m.tree.AscendGreaterOrEqual(start, func(i btree.Item) bool {
		mk := i.(marker[K])
		if m.cmp(mk.key, start.key) == 0 {
			return true
		}
		if m.cmp(mk.key, to) >= 0 {
			return false
		}
		inner = append(inner, i)
		return true
	})
	for _, i := range inner {
		m.tree.Delete(i)
	}
}

// fixFrom makes sure an interval opens at or before from.
func (m *Map[K]) fixFrom(from K) {
	if prev, ok := m.seekForPrev(from); ok {
		if !prev.stop {
			return
		}
		if m.cmp(prev.key, from) == 0 {
			// [x,from) + [from,...) touch; fuse them
			m.tree.Delete(prev)
			return
		}
	}
	m.tree.ReplaceOrInsert(m.target(from, false))
}

// fixTo makes sure an interval closes at or after to.
func (m *Map[K]) fixTo(to K) {
	if next, ok := m.seek(to); ok {
		if next.stop {
			return
		}
		if m.cmp(next.key, to) == 0 {
			m.tree.Delete(next)
			return
		}
	}
	m.tree.ReplaceOrInsert(m.target(to, true))
}

// IsInInterval reports whether key lies in a stored interval. Starts are
// inclusive and stops exclusive.
func (m *Map[K]) IsInInterval(key K) bool {
	next, ok := m.seek(key)
	if !ok {
		return false
	}
	if m.cmp(key, next.key) < 0 {
		return next.stop
	}
	return !next.stop
}

func (m *Map[K]) Clear() {
	m.tree.Clear(false)
}

// Len returns the number of stored markers, twice the number of intervals.
func (m *Map[K]) Len() int {
	return m.tree.Len()
}

// Intervals calls fn for every stored interval in order until fn returns
// false.
func (m *Map[K]) Intervals(fn func(from, to K) bool) {
	var from K
	m.tree.Ascend(func(i btree.Item) bool {
		mk := i.(marker[K])
		if !mk.stop {
			from = mk.key
			return true
		}
		return fn(from, mk.key)
	})
}

func (m *Map[K]) String() string {
	var sb strings.Builder
	m.tree.Ascend(func(i btree.Item) bool {
		mk := i.(marker[K])
		if mk.stop {
			fmt.Fprintf(&sb, "%s)", format(mk.key))
			return true
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "[%s,", format(mk.key))
		return true
	})
	return sb.String()
}

func format(k any) string {
	if b, ok := k.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(k)
}

func (m *Map[K]) target(key K, stop bool) marker[K] {
	return marker[K]{key: key, stop: stop, cmp: m.cmp}
}

func (m *Map[K]) seek(key K) (found marker[K], ok bool) {
	m.tree.AscendGreaterOrEqual(m.target(key, false), func(i btree.Item) bool {
		found, ok = i.(marker[K]), true
		return false
	})
	return found, ok
}

func (m *Map[K]) seekForPrev(key K) (found marker[K], ok bool) {
	m.tree.DescendLessOrEqual(m.target(key, false), func(i btree.Item) bool {
		found, ok = i.(marker[K]), true
		return false
	})
	return found, ok
}
