package batch

import (
	"encoding/binary"

	"wbwi/pkg/dberrors"
	"wbwi/pkg/types"
)

// Tag is the first byte of every record in a batch. The values are shared
// with the storage engine's log format and must not change.
type Tag byte

const (
	TagDeletion                   Tag = 0x0
	TagValue                      Tag = 0x1
	TagMerge                      Tag = 0x2
	TagLogData                    Tag = 0x3
	TagColumnFamilyDeletion       Tag = 0x4
	TagColumnFamilyValue          Tag = 0x5
	TagColumnFamilyMerge          Tag = 0x6
	TagSingleDeletion             Tag = 0x7
	TagColumnFamilySingleDeletion Tag = 0x8
	TagBeginPrepareXID            Tag = 0x9
	TagEndPrepareXID              Tag = 0xA
	TagCommitXID                  Tag = 0xB
	TagRollbackXID                Tag = 0xC
	TagNoop                       Tag = 0xD
	TagColumnFamilyRangeDeletion  Tag = 0xE
	TagRangeDeletion              Tag = 0xF
	TagBeginPersistedPrepareXID   Tag = 0x12
	TagBeginUnprepareXID          Tag = 0x13
)

// WriteType classifies a decoded record.
type WriteType uint8

const (
	PutRecord WriteType = iota
	MergeRecord
	DeleteRecord
	SingleDeleteRecord
	DeleteRangeRecord
	LogDataRecord
	XIDRecord
)

func (t WriteType) String() string {
	switch t {
	case PutRecord:
		return "PUT"
	case MergeRecord:
		return "MERGE"
	case DeleteRecord:
		return "DEL"
	case SingleDeleteRecord:
		return "SINGLE-DEL"
	case DeleteRangeRecord:
		return "DEL-RANGE"
	case LogDataRecord:
		return "LOG"
	case XIDRecord:
		return "XID"
	default:
		return "UNKNOWN"
	}
}

// Record is one decoded batch record. Slices alias the batch buffer.
type Record struct {
	Tag          Tag
	Type         WriteType
	ColumnFamily types.ColumnFamilyID
	Key          []byte
	// Value holds the put/merge value or the exclusive end of a range delete.
	Value []byte
	Blob  []byte
	XID   []byte
	// KeyOffset is the position of Key inside the batch buffer.
	KeyOffset int
}

// WriteEntry is the view of an indexed record handed to readers.
type WriteEntry struct {
	Type           WriteType
	Key            []byte
	Value          []byte
	InDeletedRange bool
}

func (r Record) Entry() WriteEntry {
	return WriteEntry{Type: r.Type, Key: r.Key, Value: r.Value}
}

// DecodeRecord decodes the record starting at offset. It returns the record
// and the offset of the next one.
func DecodeRecord(rep []byte, offset int) (Record, int, error) {
	if offset < 0 || offset >= len(rep) {
		return Record{}, offset, dberrors.InvalidArgumentf("record offset %d outside batch of %d bytes", offset, len(rep))
	}

	var (
		rec = Record{Tag: Tag(rep[offset])}
		pos = offset + 1
		ok  bool
	)

	readCF := func() bool {
		cf, n := binary.Uvarint(rep[pos:])
		if n <= 0 || cf > uint64(^uint32(0)) {
			return false
		}
		rec.ColumnFamily = types.ColumnFamilyID(cf)
		pos += n
		return true
	}
	readStr := func(dst *[]byte) bool {
		var start int
		start, *dst, pos, ok = decodeStr(rep, pos)
		if dst == &rec.Key {
			rec.KeyOffset = start
		}
		return ok
	}

	switch rec.Tag {
	case TagColumnFamilyValue, TagValue:
		rec.Type = PutRecord
		if rec.Tag == TagColumnFamilyValue && !readCF() {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch Put")
		}
		if !readStr(&rec.Key) || !readStr(&rec.Value) {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch Put")
		}
	case TagColumnFamilyDeletion, TagDeletion:
		rec.Type = DeleteRecord
		if rec.Tag == TagColumnFamilyDeletion && !readCF() {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch Delete")
		}
		if !readStr(&rec.Key) {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch Delete")
		}
	case TagColumnFamilySingleDeletion, TagSingleDeletion:
		rec.Type = SingleDeleteRecord
		if rec.Tag == TagColumnFamilySingleDeletion && !readCF() {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch SingleDelete")
		}
		if !readStr(&rec.Key) {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch SingleDelete")
		}
	case TagColumnFamilyRangeDeletion, TagRangeDeletion:
		rec.Type = DeleteRangeRecord
		if rec.Tag == TagColumnFamilyRangeDeletion && !readCF() {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch DeleteRange")
		}
		if !readStr(&rec.Key) || !readStr(&rec.Value) {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch DeleteRange")
		}
	case TagColumnFamilyMerge, TagMerge:
		rec.Type = MergeRecord
		if rec.Tag == TagColumnFamilyMerge && !readCF() {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch Merge")
		}
		if !readStr(&rec.Key) || !readStr(&rec.Value) {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch Merge")
		}
	case TagLogData:
		rec.Type = LogDataRecord
		if !readStr(&rec.Blob) {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch Blob")
		}
	case TagNoop, TagBeginPrepareXID, TagBeginPersistedPrepareXID, TagBeginUnprepareXID:
		rec.Type = XIDRecord
	case TagEndPrepareXID, TagCommitXID, TagRollbackXID:
		rec.Type = XIDRecord
		if !readStr(&rec.XID) {
			return Record{}, offset, dberrors.Corruptionf("bad WriteBatch XID marker")
		}
	default:
		return Record{}, offset, dberrors.Corruptionf("unknown WriteBatch tag %d", rec.Tag)
	}

	return rec, pos, nil
}

func decodeStr(rep []byte, pos int) (start int, s []byte, next int, ok bool) {
	n, w := binary.Uvarint(rep[pos:])
	if w <= 0 {
		return 0, nil, pos, false
	}
	start = pos + w
	if n > uint64(len(rep)-start) {
		return 0, nil, pos, false
	}
	end := start + int(n)
	return start, rep[start:end:end], end, true
}

func appendStr(dst, s []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}
