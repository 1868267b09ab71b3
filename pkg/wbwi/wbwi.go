// Package wbwi pairs a write batch with an index over its records so that
// pending writes can be read back, alone or layered over a base store.
package wbwi

import (
	"log/slog"

	"github.com/zhangyunhao116/skipmap"

	"wbwi/pkg/batch"
	"wbwi/pkg/clock"
	"wbwi/pkg/comparator"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/index"
	"wbwi/pkg/intervalmap"
	"wbwi/pkg/merge"
	"wbwi/pkg/metrics"
	"wbwi/pkg/types"
)

type Options struct {
	// Comparators orders keys per column family. It must agree with the base
	// store. Defaults to bytewise for every column family.
	Comparators   *comparator.Table
	ReservedBytes int
	// MaxBytes bounds the encoded batch; zero means unbounded.
	MaxBytes int
	// OverwriteKey keeps a single index entry per key for non-merge writes.
	OverwriteKey bool
	// MergeOperator is used for column families without their own operator.
	MergeOperator merge.Operator

	Logger *slog.Logger
	Stats  metrics.Collector
	Clock  clock.Clock
}

// WriteBatchWithIndex is not safe for concurrent use.
type WriteBatchWithIndex struct {
	opts     Options
	batch    *batch.WriteBatch
	index    *index.Index
	deleted  *intervalmap.DeletedRanges
	mergeOps *skipmap.FuncMap[types.ColumnFamilyID, merge.Operator]
	env      merge.Env
}

func New(opts Options) *WriteBatchWithIndex {
	if opts.Comparators == nil {
		opts.Comparators = comparator.NewTable(nil)
	}
	env := merge.Env{Logger: opts.Logger, Stats: opts.Stats, Clock: opts.Clock}.WithDefaults()
	opts.Logger, opts.Stats, opts.Clock = env.Logger, env.Stats, env.Clock

	b := batch.New(opts.ReservedBytes, opts.MaxBytes)
	return &WriteBatchWithIndex{
		opts:    opts,
		batch:   b,
		index:   index.New(b, opts.Comparators),
		deleted: intervalmap.NewDeletedRanges(opts.Comparators),
		mergeOps: skipmap.NewFunc[types.ColumnFamilyID, merge.Operator](func(a, b types.ColumnFamilyID) bool {
			return a < b
		}),
		env: env,
	}
}

// WriteBatch exposes the underlying batch for committing. It must not be
// written to directly.
func (w *WriteBatchWithIndex) WriteBatch() *batch.WriteBatch { return w.batch }

func (w *WriteBatchWithIndex) Comparators() *comparator.Table { return w.opts.Comparators }

func (w *WriteBatchWithIndex) Count() uint32 { return w.batch.Count() }

func (w *WriteBatchWithIndex) DataSize() int { return w.batch.DataSize() }

// SetMergeOperator registers op for cf. A nil op falls back to the default.
func (w *WriteBatchWithIndex) SetMergeOperator(cf types.ColumnFamilyID, op merge.Operator) {
	if op == nil {
		w.mergeOps.Delete(cf)
		return
	}
	w.mergeOps.Store(cf, op)
}

func (w *WriteBatchWithIndex) MergeOperator(cf types.ColumnFamilyID) merge.Operator {
	if op, ok := w.mergeOps.Load(cf); ok {
		return op
	}
	return w.opts.MergeOperator
}

func (w *WriteBatchWithIndex) Put(key, value []byte) error {
	return w.PutCF(types.DefaultColumnFamily, key, value)
}

func (w *WriteBatchWithIndex) PutCF(cf types.ColumnFamilyID, key, value []byte) error {
	offset := w.batch.DataSize()
	if err := w.batch.PutCF(cf, key, value); err != nil {
		return err
	}
	return w.indexRecord(cf, offset, false)
}

func (w *WriteBatchWithIndex) Delete(key []byte) error {
	return w.DeleteCF(types.DefaultColumnFamily, key)
}

func (w *WriteBatchWithIndex) DeleteCF(cf types.ColumnFamilyID, key []byte) error {
	offset := w.batch.DataSize()
	if err := w.batch.DeleteCF(cf, key); err != nil {
		return err
	}
	return w.indexRecord(cf, offset, false)
}

func (w *WriteBatchWithIndex) SingleDelete(key []byte) error {
	return w.SingleDeleteCF(types.DefaultColumnFamily, key)
}

func (w *WriteBatchWithIndex) SingleDeleteCF(cf types.ColumnFamilyID, key []byte) error {
	offset := w.batch.DataSize()
	if err := w.batch.SingleDeleteCF(cf, key); err != nil {
		return err
	}
	return w.indexRecord(cf, offset, false)
}

func (w *WriteBatchWithIndex) Merge(key, value []byte) error {
	return w.MergeCF(types.DefaultColumnFamily, key, value)
}

func (w *WriteBatchWithIndex) MergeCF(cf types.ColumnFamilyID, key, value []byte) error {
	offset := w.batch.DataSize()
	if err := w.batch.MergeCF(cf, key, value); err != nil {
		return err
	}
	return w.indexRecord(cf, offset, true)
}

func (w *WriteBatchWithIndex) DeleteRange(begin, end []byte) error {
	return w.DeleteRangeCF(types.DefaultColumnFamily, begin, end)
}

// DeleteRangeCF deletes [begin, end). Entries already in the batch for keys
// in the range are shadowed; later writes are not.
func (w *WriteBatchWithIndex) DeleteRangeCF(cf types.ColumnFamilyID, begin, end []byte) error {
	if w.opts.Comparators.CompareKey(cf, begin, end) >= 0 {
		return dberrors.InvalidArgumentf("empty range [%q, %q) in column family %d", begin, end, cf)
	}
	if err := w.batch.DeleteRangeCF(cf, begin, end); err != nil {
		return err
	}
	w.applyDeleteRange(cf, begin, end)
	return nil
}

// PutLogData appends a blob that is never indexed.
func (w *WriteBatchWithIndex) PutLogData(blob []byte) error {
	return w.batch.PutLogData(blob)
}

func (w *WriteBatchWithIndex) Clear() {
	w.batch.Clear()
	w.index.Clear()
	w.deleted.Clear()
}

func (w *WriteBatchWithIndex) SetSavePoint() {
	w.batch.SetSavePoint()
}

// RollbackToSavePoint drops the writes made since the last SetSavePoint.
// It fails with ErrNotFound when there is no save point.
func (w *WriteBatchWithIndex) RollbackToSavePoint() error {
	if err := w.batch.RollbackToSavePoint(); err != nil {
		return err
	}
	return w.rebuild()
}

func (w *WriteBatchWithIndex) PopSavePoint() error {
	return w.batch.PopSavePoint()
}

func (w *WriteBatchWithIndex) indexRecord(cf types.ColumnFamilyID, offset int, isMerge bool) error {
	w.opts.Stats.IncCounter(metrics.NumberKeysWritten, nil, 1)
	return w.addToIndex(cf, offset, isMerge)
}

func (w *WriteBatchWithIndex) addToIndex(cf types.ColumnFamilyID, offset int, isMerge bool) error {
	rec, err := w.batch.GetEntryFromDataOffset(offset)
	if err != nil {
		return err
	}
	if w.opts.OverwriteKey && !isMerge {
		updated, err := w.index.Update(cf, rec.Key, offset)
		if err != nil || updated {
			return err
		}
	}
	w.index.Add(cf, rec.KeyOffset, len(rec.Key), offset)
	return nil
}

func (w *WriteBatchWithIndex) applyDeleteRange(cf types.ColumnFamilyID, begin, end []byte) {
	n := w.index.MarkDeletedRange(cf, begin, end)
	w.deleted.Add(cf, begin, end)
	w.opts.Logger.Debug("range deleted",
		slog.Uint64("cf", uint64(cf)),
		slog.String("begin", string(begin)),
		slog.String("end", string(end)),
		slog.Int("shadowed", n))
}

// rebuild replays the batch into a fresh index and interval map.
func (w *WriteBatchWithIndex) rebuild() error {
	w.index.Clear()
	w.deleted.Clear()

	err := w.batch.ForEach(func(offset int, rec batch.Record) error {
		switch rec.Type {
		case batch.PutRecord, batch.DeleteRecord, batch.SingleDeleteRecord:
			return w.addToIndex(rec.ColumnFamily, offset, false)
		case batch.MergeRecord:
			return w.addToIndex(rec.ColumnFamily, offset, true)
		case batch.DeleteRangeRecord:
			w.applyDeleteRange(rec.ColumnFamily, rec.Key, rec.Value)
		}
		return nil
	})
	if err != nil {
		w.opts.Logger.Error("index rebuild failed", slog.Any("error", err))
		return err
	}

	w.opts.Stats.IncCounter(metrics.IndexRebuilds, nil, 1)
	w.opts.Logger.Debug("index rebuilt",
		slog.Int("entries", w.index.Len()),
		slog.Int("records", int(w.batch.Count())))
	return nil
}
