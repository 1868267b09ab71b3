package batch

import (
	"wbwi/pkg/dberrors"
	"wbwi/pkg/types"
)

// Handler receives the data records of a batch in order.
type Handler interface {
	PutCF(cf types.ColumnFamilyID, key, value []byte) error
	DeleteCF(cf types.ColumnFamilyID, key []byte) error
	SingleDeleteCF(cf types.ColumnFamilyID, key []byte) error
	DeleteRangeCF(cf types.ColumnFamilyID, begin, end []byte) error
	MergeCF(cf types.ColumnFamilyID, key, value []byte) error
	LogData(blob []byte)
}

// MarkerHandler is implemented by handlers that care about transaction
// markers. Handlers that don't implement it skip them.
type MarkerHandler interface {
	MarkBeginPrepare(unprepared bool) error
	MarkEndPrepare(xid []byte) error
	MarkCommit(xid []byte) error
	MarkRollback(xid []byte) error
	MarkNoop() error
}

// ForEach decodes every record after the header and passes it, with its
// offset, to fn. It stops at the first error.
func (b *WriteBatch) ForEach(fn func(offset int, rec Record) error) error {
	for offset := HeaderSize; offset < len(b.rep); {
		rec, next, err := DecodeRecord(b.rep, offset)
		if err != nil {
			return err
		}
		if err := fn(offset, rec); err != nil {
			return err
		}
		offset = next
	}
	return nil
}

// Iterate replays the batch into h and verifies the record count.
func (b *WriteBatch) Iterate(h Handler) error {
	markers, _ := h.(MarkerHandler)

	var found uint32
	err := b.ForEach(func(_ int, rec Record) error {
		switch rec.Type {
		case PutRecord:
			found++
			return h.PutCF(rec.ColumnFamily, rec.Key, rec.Value)
		case DeleteRecord:
			found++
			return h.DeleteCF(rec.ColumnFamily, rec.Key)
		case SingleDeleteRecord:
			found++
			return h.SingleDeleteCF(rec.ColumnFamily, rec.Key)
		case DeleteRangeRecord:
			found++
			return h.DeleteRangeCF(rec.ColumnFamily, rec.Key, rec.Value)
		case MergeRecord:
			found++
			return h.MergeCF(rec.ColumnFamily, rec.Key, rec.Value)
		case LogDataRecord:
			h.LogData(rec.Blob)
			return nil
		}

		if markers == nil {
			return nil
		}
		switch rec.Tag {
		case TagBeginPrepareXID, TagBeginPersistedPrepareXID:
			return markers.MarkBeginPrepare(false)
		case TagBeginUnprepareXID:
			return markers.MarkBeginPrepare(true)
		case TagEndPrepareXID:
			return markers.MarkEndPrepare(rec.XID)
		case TagCommitXID:
			return markers.MarkCommit(rec.XID)
		case TagRollbackXID:
			return markers.MarkRollback(rec.XID)
		default:
			return markers.MarkNoop()
		}
	})
	if err != nil {
		return err
	}

	if found != b.Count() {
		return dberrors.Corruptionf("WriteBatch has wrong count: header says %d, found %d", b.Count(), found)
	}
	return nil
}
