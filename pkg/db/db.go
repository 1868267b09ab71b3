// Package db describes the base store a write batch is read through and
// committed to.
package db

import (
	"context"

	"wbwi/pkg/batch"
	"wbwi/pkg/comparator"
	"wbwi/pkg/iterator"
	"wbwi/pkg/types"
)

// ReadOptions define per-read behavior.
type ReadOptions struct {
	// IterateUpperBound, when set, is the exclusive upper limit of forward
	// iteration.
	IterateUpperBound types.Key
}

// Reader is the read side of the base store.
type Reader interface {
	// Get returns the value of key or an error matching dberrors.ErrNotFound.
	Get(ctx context.Context, opts ReadOptions, cf types.ColumnFamilyID, key types.Key) (types.Value, error)
	NewIterator(opts ReadOptions, cf types.ColumnFamilyID) iterator.Iterator
	// Comparators orders keys the same way the store does.
	Comparators() *comparator.Table
}

// DB is a base store that also accepts batches.
type DB interface {
	Reader
	Write(ctx context.Context, wb *batch.WriteBatch) error
	Close() error
}
