package iterator

import "wbwi/pkg/types"

// Iterator iterates over a sorted sequence of key-value pairs.
type Iterator interface {
	// Seek moves the iterator to the first key >= target.
	Seek(target types.Key)
	// SeekForPrev moves the iterator to the last key <= target.
	SeekForPrev(target types.Key)
	// SeekToFirst moves to the smallest key.
	SeekToFirst()
	// SeekToLast moves to the largest key.
	SeekToLast()
	// Next advances to the next key.
	Next()
	// Prev moves to the previous key.
	Prev()
	// Valid reports whether the iterator points to a valid entry.
	Valid() bool
	// Key returns the current key.
	Key() types.Key
	// Value returns the current value.
	Value() types.Value
	// Error returns the first error met, if any. An iterator that is not
	// Valid and has no error is exhausted.
	Error() error
	// Close releases resources.
	Close() error
}

type errIterator struct {
	err error
}

// NewError returns an iterator that is never valid and reports err.
func NewError(err error) Iterator {
	return &errIterator{err: err}
}

// NewEmpty returns an iterator over nothing.
func NewEmpty() Iterator {
	return &errIterator{}
}

func (it *errIterator) Seek(types.Key)        {}
func (it *errIterator) SeekForPrev(types.Key) {}
func (it *errIterator) SeekToFirst()          {}
func (it *errIterator) SeekToLast()           {}
func (it *errIterator) Next()                 {}
func (it *errIterator) Prev()                 {}
func (it *errIterator) Valid() bool           { return false }
func (it *errIterator) Key() types.Key        { return nil }
func (it *errIterator) Value() types.Value    { return nil }
func (it *errIterator) Error() error          { return it.err }
func (it *errIterator) Close() error          { return nil }
