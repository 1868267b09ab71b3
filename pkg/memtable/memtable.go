// Package memtable is an in-memory, multi column family store that batches
// are committed to and read through.
package memtable

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/zhangyunhao116/skipmap"

	"wbwi/pkg/batch"
	"wbwi/pkg/clock"
	"wbwi/pkg/comparator"
	"wbwi/pkg/db"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/iterator"
	"wbwi/pkg/merge"
	"wbwi/pkg/types"
)

type concurrentSet = skipmap.FuncMap[[]byte, Item]

type columnFamily struct {
	cmp   comparator.Comparator
	items *concurrentSet
}

type Options struct {
	Comparators *comparator.Table
	// MergeOperator resolves Merge records when a batch is committed.
	MergeOperator func(cf types.ColumnFamilyID) merge.Operator
	MergeEnv      merge.Env
	Logger        *slog.Logger
}

// Memtable is safe for concurrent use. A failed commit leaves the store
// untouched; readers racing a commit may observe part of it.
type Memtable struct {
	opts Options
	seq  *clock.AtomicClock
	cfs  *skipmap.FuncMap[types.ColumnFamilyID, *columnFamily]
	// serialises writers so batches apply in sequence order
	mu sync.Mutex
}

var _ db.DB = (*Memtable)(nil)

func New(opts Options) *Memtable {
	if opts.Comparators == nil {
		opts.Comparators = comparator.NewTable(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MergeEnv.Logger == nil {
		opts.MergeEnv.Logger = opts.Logger
	}
	return &Memtable{
		opts: opts,
		seq:  clock.NewAtomic(0),
		cfs: skipmap.NewFunc[types.ColumnFamilyID, *columnFamily](func(a, b types.ColumnFamilyID) bool {
			return a < b
		}),
	}
}

func (mt *Memtable) Comparators() *comparator.Table {
	return mt.opts.Comparators
}

// LastSequence is the sequence number of the latest committed record.
func (mt *Memtable) LastSequence() uint64 {
	return mt.seq.Val()
}

func (mt *Memtable) columnFamily(cf types.ColumnFamilyID) *columnFamily {
	c, _ := mt.cfs.LoadOrStoreLazy(cf, func() *columnFamily {
		cmp := mt.opts.Comparators.Get(cf)
		return &columnFamily{
			cmp: cmp,
			items: skipmap.NewFunc[[]byte, Item](func(a, b []byte) bool {
				return cmp.Compare(a, b) < 0
			}),
		}
	})
	return c
}

func (mt *Memtable) Get(ctx context.Context, _ db.ReadOptions, cf types.ColumnFamilyID, key types.Key) (types.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := mt.cfs.Load(cf)
	if !ok {
		return nil, dberrors.NotFoundf("key %q not found in column family %d", key, cf)
	}
	it, ok := c.items.Load(key)
	if !ok {
		return nil, dberrors.NotFoundf("key %q not found in column family %d", key, cf)
	}
	return bytes.Clone(it.Value), nil
}

// Write commits wb, assigning it the next sequence numbers. Records are
// staged first; the store changes only once the whole batch has replayed.
func (mt *Memtable) Write(ctx context.Context, wb *batch.WriteBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	first := mt.seq.Val() + 1
	ap := newApplier(mt, first)
	if err := wb.Iterate(ap); err != nil {
		return errors.Wrapf(err, "commit batch at sequence %d", first)
	}
	ap.apply()
	wb.SetSequence(types.SequenceNumber(first))
	mt.seq.Set(ap.seq - 1)

	mt.opts.Logger.Debug("batch committed",
		slog.Uint64("sequence", first),
		slog.Int("records", int(wb.Count())),
		slog.Int("bytes", wb.DataSize()))
	return nil
}

func (mt *Memtable) NewIterator(opts db.ReadOptions, cf types.ColumnFamilyID) iterator.Iterator {
	c := mt.columnFamily(cf)
	return &memIterator{
		cmp:   c.cmp,
		items: c.sorted(opts.IterateUpperBound),
		pos:   -1,
	}
}

func (mt *Memtable) Close() error {
	return nil
}

// staged is the pending state of one key; deleted items are removed on apply.
type staged struct {
	item    Item
	deleted bool
}

// applier replays a batch into a staging overlay of the store. Every record
// consumes one sequence number.
type applier struct {
	mt     *Memtable
	seq    uint64
	writes map[types.ColumnFamilyID]map[string]staged
}

func newApplier(mt *Memtable, seq uint64) *applier {
	return &applier{
		mt:     mt,
		seq:    seq,
		writes: make(map[types.ColumnFamilyID]map[string]staged),
	}
}

func (a *applier) stage(cf types.ColumnFamilyID, key []byte, st staged) {
	m, ok := a.writes[cf]
	if !ok {
		m = make(map[string]staged)
		a.writes[cf] = m
	}
	m[string(key)] = st
}

// load reads key through the overlay.
func (a *applier) load(cf types.ColumnFamilyID, key []byte) (Item, bool) {
	if st, ok := a.writes[cf][string(key)]; ok {
		return st.item, !st.deleted
	}
	if c, ok := a.mt.cfs.Load(cf); ok {
		return c.items.Load(key)
	}
	return Item{}, false
}

// apply publishes the staged writes. It cannot fail.
func (a *applier) apply() {
	for cf, m := range a.writes {
		c := a.mt.columnFamily(cf)
		for k, st := range m {
			if st.deleted {
				c.items.Delete([]byte(k))
				continue
			}
			c.items.Store([]byte(k), st.item)
		}
	}
}

func (a *applier) PutCF(cf types.ColumnFamilyID, key, value []byte) error {
	a.stage(cf, key, staged{item: Item{Key: bytes.Clone(key), Value: bytes.Clone(value), SeqN: a.seq}})
	a.seq++
	return nil
}

func (a *applier) DeleteCF(cf types.ColumnFamilyID, key []byte) error {
	a.stage(cf, key, staged{deleted: true})
	a.seq++
	return nil
}

func (a *applier) SingleDeleteCF(cf types.ColumnFamilyID, key []byte) error {
	return a.DeleteCF(cf, key)
}

func (a *applier) DeleteRangeCF(cf types.ColumnFamilyID, begin, end []byte) error {
	cmp := a.mt.opts.Comparators.Get(cf)
	inRange := func(key []byte) bool {
		return cmp.Compare(key, begin) >= 0 && cmp.Compare(key, end) < 0
	}

	var doomed [][]byte
	if c, ok := a.mt.cfs.Load(cf); ok {
		c.items.Range(func(key []byte, _ Item) bool {
			if cmp.Compare(key, end) >= 0 {
				return false
			}
			if inRange(key) {
				doomed = append(doomed, key)
			}
			return true
		})
	}
	for k := range a.writes[cf] {
		if inRange([]byte(k)) {
			doomed = append(doomed, []byte(k))
		}
	}
	for _, k := range doomed {
		a.stage(cf, k, staged{deleted: true})
	}
	a.seq++
	return nil
}

func (a *applier) MergeCF(cf types.ColumnFamilyID, key, value []byte) error {
	var op merge.Operator
	if a.mt.opts.MergeOperator != nil {
		op = a.mt.opts.MergeOperator(cf)
	}
	existing, ok := a.load(cf, key)
	merged, err := merge.TimedFullMerge(a.mt.opts.MergeEnv, op, key, existing.Value, ok, [][]byte{value})
	if err != nil {
		return err
	}
	a.stage(cf, key, staged{item: Item{Key: bytes.Clone(key), Value: merged, SeqN: a.seq}})
	a.seq++
	return nil
}

func (a *applier) LogData([]byte) {}
