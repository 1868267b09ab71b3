package index

import (
	"math"
	"sync/atomic"

	"wbwi/pkg/types"
)

// Entry references one record of the batch. offset and deleted may change
// after insertion and are only accessed atomically.
type Entry struct {
	offset    int64
	deleted   uint32
	cf        types.ColumnFamilyID
	keyOffset int
	keySize   int

	// set on seek targets only
	searchKey []byte
	minInCF   bool
}

func (e *Entry) ColumnFamily() types.ColumnFamilyID { return e.cf }

// Offset is the position of the referenced record in the batch.
func (e *Entry) Offset() int { return int(atomic.LoadInt64(&e.offset)) }

// InDeletedRange reports whether a range delete recorded after this entry
// covers its key.
func (e *Entry) InDeletedRange() bool { return atomic.LoadUint32(&e.deleted) == 1 }

func (e *Entry) markDeleted() { atomic.StoreUint32(&e.deleted, 1) }

// repoint moves the entry to a newer record of the same key.
func (e *Entry) repoint(offset int) {
	atomic.StoreInt64(&e.offset, int64(offset))
	atomic.StoreUint32(&e.deleted, 0)
}

func seekTarget(cf types.ColumnFamilyID, key []byte) Entry {
	return Entry{cf: cf, searchKey: key, offset: 0}
}

func seekForPrevTarget(cf types.ColumnFamilyID, key []byte) Entry {
	return Entry{cf: cf, searchKey: key, offset: math.MaxInt64}
}

func minTarget(cf types.ColumnFamilyID) Entry {
	return Entry{cf: cf, minInCF: true}
}
