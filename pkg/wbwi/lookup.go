package wbwi

import (
	"bytes"
	"context"
	"log/slog"
	"slices"

	"wbwi/pkg/batch"
	"wbwi/pkg/db"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/merge"
	"wbwi/pkg/metrics"
	"wbwi/pkg/types"
)

// State is the outcome of looking a key up in the batch alone.
type State int

const (
	// NotFound means the batch says nothing about the key.
	NotFound State = iota
	Found
	Deleted
	// MergeInProgress means merge operands were found but no value or
	// deletion to apply them to.
	MergeInProgress
)

func (s State) String() string {
	switch s {
	case NotFound:
		return "NotFound"
	case Found:
		return "Found"
	case Deleted:
		return "Deleted"
	case MergeInProgress:
		return "MergeInProgress"
	default:
		return "Unknown"
	}
}

// Result of a lookup. Value and Operands may alias the batch buffer and are
// only valid until the next write.
type Result struct {
	State State
	Value []byte
	// Operands are the unresolved merge operands, oldest first. Set only
	// with MergeInProgress.
	Operands [][]byte
}

// Lookup resolves key from the pending writes, newest first. With
// overwrite, the first merge operand ends the scan unresolved.
func (w *WriteBatchWithIndex) Lookup(cf types.ColumnFamilyID, key []byte, overwrite bool) (Result, error) {
	var (
		res      Result
		operands [][]byte
	)

	it := w.index.NewIterator(cf)
scan:
	for it.SeekForPrev(key); it.MatchesKey(cf, key); it.Prev() {
		entry, err := it.Entry()
		if err != nil {
			w.opts.Logger.Error("batch lookup failed",
				slog.Uint64("cf", uint64(cf)),
				slog.Int("offset", it.Raw().Offset()),
				slog.Any("error", err))
			return Result{}, err
		}

		switch entry.Type {
		case batch.PutRecord:
			if entry.InDeletedRange {
				res.State = Deleted
			} else {
				res.State, res.Value = Found, entry.Value
			}
			break scan
		case batch.MergeRecord:
			if entry.InDeletedRange {
				res.State = Deleted
				break scan
			}
			res.State = MergeInProgress
			operands = append(operands, entry.Value)
			if overwrite {
				break scan
			}
		case batch.DeleteRecord, batch.SingleDeleteRecord:
			res.State = Deleted
			break scan
		case batch.LogDataRecord, batch.XIDRecord:
		default:
			return Result{}, dberrors.Corruptionf("unexpected %s record indexed for key %q", entry.Type, key)
		}
	}

	if res.State == NotFound || (res.State == MergeInProgress && !overwrite) {
		if w.deleted.Contains(cf, key) {
			res.State = Deleted
		}
	}

	slices.Reverse(operands)
	if res.State == MergeInProgress {
		res.Operands = operands
		return res, nil
	}
	if len(operands) == 0 {
		return res, nil
	}

	v, err := merge.TimedFullMerge(w.env, w.MergeOperator(cf), key, res.Value, res.State == Found, operands)
	if err != nil {
		return Result{}, err
	}
	return Result{State: Found, Value: v}, nil
}

// GetFromBatch returns the value the batch alone gives key. Keys the batch
// deletes or does not know yield ErrNotFound; unresolved merges yield
// ErrMergeInProgress.
func (w *WriteBatchWithIndex) GetFromBatch(cf types.ColumnFamilyID, key []byte) ([]byte, error) {
	w.opts.Stats.IncCounter(metrics.NumberKeysRead, nil, 1)
	res, err := w.Lookup(cf, key, w.opts.OverwriteKey)
	if err != nil {
		return nil, err
	}
	switch res.State {
	case Found:
		return bytes.Clone(res.Value), nil
	case MergeInProgress:
		return nil, dberrors.MergeInProgressf("key %q has unresolved merge operands", key)
	default:
		return nil, dberrors.NotFoundf("key %q not found in batch", key)
	}
}

// GetFromBatchAndDB reads key through the batch, falling back to base for
// keys the batch does not settle.
func (w *WriteBatchWithIndex) GetFromBatchAndDB(ctx context.Context, base db.Reader, opts db.ReadOptions, cf types.ColumnFamilyID, key []byte) ([]byte, error) {
	w.opts.Stats.IncCounter(metrics.NumberKeysRead, nil, 1)
	res, err := w.Lookup(cf, key, w.opts.OverwriteKey)
	if err != nil {
		return nil, err
	}
	switch res.State {
	case Found:
		return bytes.Clone(res.Value), nil
	case Deleted:
		return nil, dberrors.NotFoundf("key %q deleted in batch", key)
	case MergeInProgress:
		if w.opts.OverwriteKey {
			return nil, dberrors.MergeInProgressf("key %q has merge operands over overwritten writes", key)
		}
	}

	v, err := base.Get(ctx, opts, cf, key)
	if err != nil && !dberrors.IsNotFound(err) {
		return nil, err
	}
	if res.State == NotFound {
		return v, err
	}
	return merge.TimedFullMerge(w.env, w.MergeOperator(cf), key, v, err == nil, res.Operands)
}

// IsDeleted reports whether the batch deletes key, by a point or range
// delete.
func (w *WriteBatchWithIndex) IsDeleted(cf types.ColumnFamilyID, key []byte) (bool, error) {
	res, err := w.Lookup(cf, key, w.opts.OverwriteKey)
	if err != nil {
		return false, err
	}
	return res.State == Deleted, nil
}
