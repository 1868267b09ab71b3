package batch

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"wbwi/pkg/dberrors"
	"wbwi/pkg/types"
)

// HeaderSize is the fixed prefix of every batch: an 8-byte sequence number
// followed by a 4-byte record count, both little-endian.
const HeaderSize = 12

// ContentFlags summarise which kinds of records a batch holds.
type ContentFlags uint32

const (
	HasPut ContentFlags = 1 << iota
	HasDelete
	HasSingleDelete
	HasDeleteRange
	HasMerge
	HasBeginPrepare
	HasEndPrepare
	HasCommit
	HasRollback
)

type savePoint struct {
	size  int
	count uint32
	flags ContentFlags
}

// WriteBatch is an append-only log of write operations. Records are
// addressed by their byte offset in Data().
//
// A WriteBatch is not safe for concurrent writers.
type WriteBatch struct {
	rep        []byte
	maxBytes   int
	flags      ContentFlags
	savePoints []savePoint
}

// New creates an empty batch. reservedBytes pre-sizes the buffer; maxBytes
// bounds the encoded size, zero meaning unbounded.
func New(reservedBytes, maxBytes int) *WriteBatch {
	if reservedBytes < HeaderSize {
		reservedBytes = HeaderSize
	}
	return &WriteBatch{
		rep:      make([]byte, HeaderSize, reservedBytes),
		maxBytes: maxBytes,
	}
}

// FromData wraps a copy of an encoded batch.
func FromData(data []byte) (*WriteBatch, error) {
	if len(data) < HeaderSize {
		return nil, dberrors.Corruptionf("malformed WriteBatch (too small): %d bytes", len(data))
	}
	b := &WriteBatch{rep: append([]byte(nil), data...)}
	err := b.ForEach(func(_ int, rec Record) error {
		b.flags |= flagsFor(rec.Tag)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Data returns the encoded batch. The slice is invalidated by the next write.
func (b *WriteBatch) Data() []byte {
	return b.rep
}

func (b *WriteBatch) DataSize() int {
	return len(b.rep)
}

func (b *WriteBatch) Count() uint32 {
	return binary.LittleEndian.Uint32(b.rep[8:HeaderSize])
}

func (b *WriteBatch) setCount(n uint32) {
	binary.LittleEndian.PutUint32(b.rep[8:HeaderSize], n)
}

func (b *WriteBatch) Sequence() types.SequenceNumber {
	return types.SequenceNumber(binary.LittleEndian.Uint64(b.rep[:8]))
}

func (b *WriteBatch) SetSequence(seq types.SequenceNumber) {
	binary.LittleEndian.PutUint64(b.rep[:8], uint64(seq))
}

func (b *WriteBatch) Flags() ContentFlags {
	return b.flags
}

func (b *WriteBatch) HasPut() bool          { return b.flags&HasPut != 0 }
func (b *WriteBatch) HasDelete() bool       { return b.flags&HasDelete != 0 }
func (b *WriteBatch) HasSingleDelete() bool { return b.flags&HasSingleDelete != 0 }
func (b *WriteBatch) HasDeleteRange() bool  { return b.flags&HasDeleteRange != 0 }
func (b *WriteBatch) HasMerge() bool        { return b.flags&HasMerge != 0 }

// Clear drops every record and save point.
func (b *WriteBatch) Clear() {
	b.rep = b.rep[:HeaderSize]
	for i := range b.rep {
		b.rep[i] = 0
	}
	b.flags = 0
	b.savePoints = b.savePoints[:0]
}

func (b *WriteBatch) Put(key, value []byte) error {
	return b.PutCF(types.DefaultColumnFamily, key, value)
}

func (b *WriteBatch) PutCF(cf types.ColumnFamilyID, key, value []byte) error {
	return b.appendKV(cf, TagValue, TagColumnFamilyValue, key, value, true)
}

func (b *WriteBatch) Delete(key []byte) error {
	return b.DeleteCF(types.DefaultColumnFamily, key)
}

func (b *WriteBatch) DeleteCF(cf types.ColumnFamilyID, key []byte) error {
	return b.appendKV(cf, TagDeletion, TagColumnFamilyDeletion, key, nil, false)
}

func (b *WriteBatch) SingleDelete(key []byte) error {
	return b.SingleDeleteCF(types.DefaultColumnFamily, key)
}

func (b *WriteBatch) SingleDeleteCF(cf types.ColumnFamilyID, key []byte) error {
	return b.appendKV(cf, TagSingleDeletion, TagColumnFamilySingleDeletion, key, nil, false)
}

// DeleteRange records the deletion of every key in [begin, end).
func (b *WriteBatch) DeleteRange(begin, end []byte) error {
	return b.DeleteRangeCF(types.DefaultColumnFamily, begin, end)
}

func (b *WriteBatch) DeleteRangeCF(cf types.ColumnFamilyID, begin, end []byte) error {
	return b.appendKV(cf, TagRangeDeletion, TagColumnFamilyRangeDeletion, begin, end, true)
}

func (b *WriteBatch) Merge(key, value []byte) error {
	return b.MergeCF(types.DefaultColumnFamily, key, value)
}

func (b *WriteBatch) MergeCF(cf types.ColumnFamilyID, key, value []byte) error {
	return b.appendKV(cf, TagMerge, TagColumnFamilyMerge, key, value, true)
}

// PutLogData appends a blob that is carried along with the batch but is
// neither counted nor applied.
func (b *WriteBatch) PutLogData(blob []byte) error {
	if err := checkLen(blob); err != nil {
		return err
	}
	size := len(b.rep)
	b.rep = append(b.rep, byte(TagLogData))
	b.rep = appendStr(b.rep, blob)
	return b.commitAppend(size, b.Count(), b.flags)
}

// MarkBeginPrepare opens a two-phase-commit section. Markers are not counted.
func (b *WriteBatch) MarkBeginPrepare(unprepared bool) error {
	tag := TagBeginPrepareXID
	if unprepared {
		tag = TagBeginUnprepareXID
	}
	return b.appendMarker(tag, nil, false)
}

func (b *WriteBatch) MarkEndPrepare(xid []byte) error {
	return b.appendMarker(TagEndPrepareXID, xid, true)
}

func (b *WriteBatch) MarkCommit(xid []byte) error {
	return b.appendMarker(TagCommitXID, xid, true)
}

func (b *WriteBatch) MarkRollback(xid []byte) error {
	return b.appendMarker(TagRollbackXID, xid, true)
}

func (b *WriteBatch) MarkNoop() error {
	return b.appendMarker(TagNoop, nil, false)
}

// SetSavePoint records the current size so a later RollbackToSavePoint can
// discard everything written after it.
func (b *WriteBatch) SetSavePoint() {
	b.savePoints = append(b.savePoints, savePoint{
		size:  len(b.rep),
		count: b.Count(),
		flags: b.flags,
	})
}

// RollbackToSavePoint truncates the batch to the most recent save point and
// removes it. It fails with ErrNotFound, leaving the batch untouched, when no
// save point is set.
func (b *WriteBatch) RollbackToSavePoint() error {
	n := len(b.savePoints)
	if n == 0 {
		return dberrors.NotFoundf("no save point to roll back to")
	}
	sp := b.savePoints[n-1]
	b.savePoints = b.savePoints[:n-1]

	b.rep = b.rep[:sp.size]
	b.setCount(sp.count)
	b.flags = sp.flags
	return nil
}

// PopSavePoint removes the most recent save point without rolling back.
func (b *WriteBatch) PopSavePoint() error {
	n := len(b.savePoints)
	if n == 0 {
		return dberrors.NotFoundf("no save point to pop")
	}
	b.savePoints = b.savePoints[:n-1]
	return nil
}

// GetEntryFromDataOffset decodes the record at offset. Reaching exactly the
// end of the batch yields ErrNotFound.
func (b *WriteBatch) GetEntryFromDataOffset(offset int) (Record, error) {
	switch {
	case offset == len(b.rep):
		return Record{}, dberrors.NotFoundf("end of batch reached at offset %d", offset)
	case offset > len(b.rep):
		return Record{}, dberrors.InvalidArgumentf("data offset %d exceeds write batch size %d", offset, len(b.rep))
	case offset < HeaderSize:
		return Record{}, dberrors.InvalidArgumentf("data offset %d inside batch header", offset)
	}
	rec, _, err := DecodeRecord(b.rep, offset)
	return rec, err
}

func (b *WriteBatch) appendKV(cf types.ColumnFamilyID, tag, cfTag Tag, key, value []byte, withValue bool) error {
	if err := checkLen(key); err != nil {
		return err
	}
	if err := checkLen(value); err != nil {
		return err
	}

	size, count, flags := len(b.rep), b.Count(), b.flags
	if cf == types.DefaultColumnFamily {
		b.rep = append(b.rep, byte(tag))
	} else {
		b.rep = append(b.rep, byte(cfTag))
		b.rep = binary.AppendUvarint(b.rep, uint64(cf))
	}
	b.rep = appendStr(b.rep, key)
	if withValue {
		b.rep = appendStr(b.rep, value)
	}
	b.setCount(count + 1)
	b.flags |= flagsFor(tag)
	return b.commitAppend(size, count, flags)
}

func (b *WriteBatch) appendMarker(tag Tag, xid []byte, withXID bool) error {
	if err := checkLen(xid); err != nil {
		return err
	}
	size := len(b.rep)
	b.rep = append(b.rep, byte(tag))
	if withXID {
		b.rep = appendStr(b.rep, xid)
	}
	flags := b.flags
	b.flags |= flagsFor(tag)
	return b.commitAppend(size, b.Count(), flags)
}

// commitAppend undoes the record just appended when it pushed the batch
// past its size limit.
func (b *WriteBatch) commitAppend(size int, count uint32, flags ContentFlags) error {
	if b.maxBytes <= 0 || len(b.rep) <= b.maxBytes {
		return nil
	}
	n := len(b.rep)
	b.rep = b.rep[:size]
	b.setCount(count)
	b.flags = flags
	return errors.Wrapf(dberrors.ErrSizeLimit, "batch of %d bytes exceeds limit of %d", n, b.maxBytes)
}

func checkLen(s []byte) error {
	if uint64(len(s)) > uint64(^uint32(0)) {
		return dberrors.InvalidArgumentf("key or value too large: %d bytes", len(s))
	}
	return nil
}

func flagsFor(tag Tag) ContentFlags {
	switch tag {
	case TagValue, TagColumnFamilyValue:
		return HasPut
	case TagDeletion, TagColumnFamilyDeletion:
		return HasDelete
	case TagSingleDeletion, TagColumnFamilySingleDeletion:
		return HasSingleDelete
	case TagRangeDeletion, TagColumnFamilyRangeDeletion:
		return HasDeleteRange
	case TagMerge, TagColumnFamilyMerge:
		return HasMerge
	case TagBeginPrepareXID, TagBeginPersistedPrepareXID, TagBeginUnprepareXID:
		return HasBeginPrepare
	case TagEndPrepareXID:
		return HasEndPrepare
	case TagCommitXID:
		return HasCommit
	case TagRollbackXID:
		return HasRollback
	default:
		return 0
	}
}
