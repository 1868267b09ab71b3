package batch

import (
	"fmt"
	"testing"

	"wbwi/pkg/dberrors"
	"wbwi/pkg/types"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	seen    []string
	markers []string
}

func (h *recordingHandler) PutCF(cf types.ColumnFamilyID, key, value []byte) error {
	h.seen = append(h.seen, fmt.Sprintf("PUT(%d,%s):%s", cf, key, value))
	return nil
}

func (h *recordingHandler) DeleteCF(cf types.ColumnFamilyID, key []byte) error {
	h.seen = append(h.seen, fmt.Sprintf("DEL(%d,%s)", cf, key))
	return nil
}

func (h *recordingHandler) SingleDeleteCF(cf types.ColumnFamilyID, key []byte) error {
	h.seen = append(h.seen, fmt.Sprintf("SINGLE-DEL(%d,%s)", cf, key))
	return nil
}

func (h *recordingHandler) DeleteRangeCF(cf types.ColumnFamilyID, begin, end []byte) error {
	h.seen = append(h.seen, fmt.Sprintf("DEL-RANGE(%d,%s,%s)", cf, begin, end))
	return nil
}

func (h *recordingHandler) MergeCF(cf types.ColumnFamilyID, key, value []byte) error {
	h.seen = append(h.seen, fmt.Sprintf("MERGE(%d,%s):%s", cf, key, value))
	return nil
}

func (h *recordingHandler) LogData(blob []byte) {
	h.seen = append(h.seen, fmt.Sprintf("LOG(%s)", blob))
}

func (h *recordingHandler) MarkBeginPrepare(unprepared bool) error {
	h.markers = append(h.markers, fmt.Sprintf("BEGIN(%t)", unprepared))
	return nil
}

func (h *recordingHandler) MarkEndPrepare(xid []byte) error {
	h.markers = append(h.markers, fmt.Sprintf("END(%s)", xid))
	return nil
}

func (h *recordingHandler) MarkCommit(xid []byte) error {
	h.markers = append(h.markers, fmt.Sprintf("COMMIT(%s)", xid))
	return nil
}

func (h *recordingHandler) MarkRollback(xid []byte) error {
	h.markers = append(h.markers, fmt.Sprintf("ROLLBACK(%s)", xid))
	return nil
}

func (h *recordingHandler) MarkNoop() error {
	h.markers = append(h.markers, "NOOP")
	return nil
}

func TestWriteBatch_Iterate(t *testing.T) {
	b := New(0, 0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.PutCF(7, []byte("b"), []byte("2")))
	require.NoError(t, b.Delete([]byte("c")))
	require.NoError(t, b.SingleDeleteCF(300, []byte("d")))
	require.NoError(t, b.DeleteRange([]byte("e"), []byte("g")))
	require.NoError(t, b.MergeCF(2, []byte("h"), []byte("+x")))
	require.NoError(t, b.PutLogData([]byte("blob")))
	require.NoError(t, b.MarkBeginPrepare(false))
	require.NoError(t, b.MarkEndPrepare([]byte("tx1")))
	require.NoError(t, b.MarkCommit([]byte("tx1")))

	assert.Equal(t, uint32(6), b.Count())
	assert.True(t, b.HasPut())
	assert.True(t, b.HasDelete())
	assert.True(t, b.HasSingleDelete())
	assert.True(t, b.HasDeleteRange())
	assert.True(t, b.HasMerge())

	h := &recordingHandler{}
	require.NoError(t, b.Iterate(h))
	assert.Equal(t, []string{
		"PUT(0,a):1",
		"PUT(7,b):2",
		"DEL(0,c)",
		"SINGLE-DEL(300,d)",
		"DEL-RANGE(0,e,g)",
		"MERGE(2,h):+x",
		"LOG(blob)",
	}, h.seen)
	assert.Equal(t, []string{"BEGIN(false)", "END(tx1)", "COMMIT(tx1)"}, h.markers)
}

func TestWriteBatch_IterateWrongCount(t *testing.T) {
	b := New(0, 0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	b.setCount(2)

	err := b.Iterate(&recordingHandler{})
	assert.True(t, errors.Is(err, dberrors.ErrCorruption))
}

func TestWriteBatch_SavePointRoundTrip(t *testing.T) {
	b := New(0, 0)
	require.NoError(t, b.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, b.Merge([]byte("k1"), []byte("m1")))

	b.SetSavePoint()
	snapshot := append([]byte(nil), b.Data()...)
	count, flags := b.Count(), b.Flags()

	require.NoError(t, b.DeleteRange([]byte("a"), []byte("z")))
	require.NoError(t, b.PutCF(4, []byte("k2"), []byte("v2")))
	require.NoError(t, b.SingleDelete([]byte("k1")))
	require.NoError(t, b.PutLogData([]byte("note")))

	require.NoError(t, b.RollbackToSavePoint())
	assert.Equal(t, snapshot, b.Data())
	assert.Equal(t, count, b.Count())
	assert.Equal(t, flags, b.Flags())
	assert.False(t, b.HasDeleteRange())

	err := b.RollbackToSavePoint()
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))
	assert.Equal(t, snapshot, b.Data())
}

func TestWriteBatch_NestedSavePoints(t *testing.T) {
	b := New(0, 0)
	b.SetSavePoint()
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	b.SetSavePoint()
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	b.SetSavePoint()
	require.NoError(t, b.Put([]byte("c"), []byte("3")))

	require.NoError(t, b.PopSavePoint())
	require.NoError(t, b.RollbackToSavePoint())
	assert.Equal(t, uint32(1), b.Count())

	require.NoError(t, b.RollbackToSavePoint())
	assert.Equal(t, uint32(0), b.Count())
	assert.Equal(t, HeaderSize, b.DataSize())

	assert.True(t, errors.Is(b.PopSavePoint(), dberrors.ErrNotFound))
}

func TestWriteBatch_RollbackWithoutSavePoint(t *testing.T) {
	b := New(0, 0)
	err := b.RollbackToSavePoint()
	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))
}

func TestWriteBatch_SizeLimit(t *testing.T) {
	b := New(0, HeaderSize+10)
	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	before := append([]byte(nil), b.Data()...)

	err := b.Put([]byte("key"), []byte("a long value"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrSizeLimit))
	assert.Equal(t, before, b.Data())
	assert.Equal(t, uint32(1), b.Count())

	err = b.PutLogData([]byte("a blob that does not fit"))
	assert.True(t, errors.Is(err, dberrors.ErrSizeLimit))
	assert.Equal(t, before, b.Data())
}

func TestWriteBatch_GetEntryFromDataOffset(t *testing.T) {
	b := New(0, 0)
	require.NoError(t, b.PutCF(9, []byte("key"), []byte("value")))
	second := b.DataSize()
	require.NoError(t, b.DeleteRange([]byte("a"), []byte("b")))

	rec, err := b.GetEntryFromDataOffset(HeaderSize)
	require.NoError(t, err)
	assert.Equal(t, PutRecord, rec.Type)
	assert.Equal(t, types.ColumnFamilyID(9), rec.ColumnFamily)
	assert.Equal(t, "key", string(rec.Key))
	assert.Equal(t, "value", string(rec.Value))
	assert.Equal(t, "key", string(b.Data()[rec.KeyOffset:rec.KeyOffset+len(rec.Key)]))

	rec, err = b.GetEntryFromDataOffset(second)
	require.NoError(t, err)
	assert.Equal(t, DeleteRangeRecord, rec.Type)
	assert.Equal(t, "a", string(rec.Key))
	assert.Equal(t, "b", string(rec.Value))

	_, err = b.GetEntryFromDataOffset(b.DataSize())
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))

	_, err = b.GetEntryFromDataOffset(b.DataSize() + 1)
	assert.True(t, errors.Is(err, dberrors.ErrInvalidArgument))

	_, err = b.GetEntryFromDataOffset(3)
	assert.True(t, errors.Is(err, dberrors.ErrInvalidArgument))
}

func TestDecodeRecord_Corruption(t *testing.T) {
	b := New(0, 0)
	require.NoError(t, b.Put([]byte("key"), []byte("value")))

	data := append([]byte(nil), b.Data()...)
	data[HeaderSize] = 0x42
	_, _, err := DecodeRecord(data, HeaderSize)
	assert.True(t, errors.Is(err, dberrors.ErrCorruption))

	truncated := append([]byte(nil), b.Data()[:b.DataSize()-2]...)
	_, _, err = DecodeRecord(truncated, HeaderSize)
	assert.True(t, errors.Is(err, dberrors.ErrCorruption))

	_, err = FromData(data)
	assert.True(t, errors.Is(err, dberrors.ErrCorruption))

	_, err = FromData([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, dberrors.ErrCorruption))
}

func TestFromData(t *testing.T) {
	b := New(64, 0)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.MergeCF(1, []byte("b"), []byte("2")))
	b.SetSequence(42)

	cp, err := FromData(b.Data())
	require.NoError(t, err)
	assert.Equal(t, b.Data(), cp.Data())
	assert.Equal(t, types.SequenceNumber(42), cp.Sequence())
	assert.Equal(t, b.Flags(), cp.Flags())

	cp.Clear()
	assert.Equal(t, uint32(0), cp.Count())
	assert.Equal(t, types.SequenceNumber(0), cp.Sequence())
	assert.Equal(t, uint32(2), b.Count())
}
