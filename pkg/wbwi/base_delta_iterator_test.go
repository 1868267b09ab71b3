package wbwi

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"wbwi/pkg/batch"
	"wbwi/pkg/db"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/iterator"
	"wbwi/pkg/memtable"
	"wbwi/pkg/merge"
	"wbwi/pkg/types"
)

func forward(t *testing.T, it iterator.Iterator) []string {
	t.Helper()
	var out []string
	for it.SeekToFirst(); it.Valid(); it.Next() {
		out = append(out, fmt.Sprintf("%s=%s", it.Key(), it.Value()))
	}
	require.NoError(t, it.Error())
	return out
}

func backward(t *testing.T, it iterator.Iterator) []string {
	t.Helper()
	var out []string
	for it.SeekToLast(); it.Valid(); it.Prev() {
		out = append(out, fmt.Sprintf("%s=%s", it.Key(), it.Value()))
	}
	require.NoError(t, it.Error())
	return out
}

func reversed(s []string) []string {
	r := slices.Clone(s)
	slices.Reverse(r)
	return r
}

func TestBaseDeltaIterator_Basic(t *testing.T) {
	base := newBase(t, "a", "1", "c", "3", "e", "5", "g", "7")
	w := newBatch(true)
	require.NoError(t, w.Put([]byte("b"), []byte("B")))
	require.NoError(t, w.Put([]byte("c"), []byte("C")))
	require.NoError(t, w.Delete([]byte("e")))
	require.NoError(t, w.Delete([]byte("f")))
	require.NoError(t, w.Merge([]byte("g"), []byte("x")))
	require.NoError(t, w.Put([]byte("h"), []byte("H")))

	it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
	defer it.Close()

	want := []string{"a=1", "b=B", "c=C", "g=7,x", "h=H"}
	require.Equal(t, want, forward(t, it))
	require.Equal(t, reversed(want), backward(t, it))

	it.Seek([]byte("d"))
	require.True(t, it.Valid())
	require.Equal(t, "g", string(it.Key()))
	it.SeekForPrev([]byte("f"))
	require.True(t, it.Valid())
	require.Equal(t, "c", string(it.Key()))
}

func TestBaseDeltaIterator_DirectionChanges(t *testing.T) {
	base := newBase(t, "a", "1", "c", "3", "d", "4")
	w := newBatch(true)
	require.NoError(t, w.Put([]byte("b"), []byte("B")))
	require.NoError(t, w.Put([]byte("d"), []byte("D")))
	require.NoError(t, w.Put([]byte("e"), []byte("E")))

	it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
	key := func() string { return string(it.Key()) }

	it.Seek([]byte("c"))
	require.Equal(t, "c", key())
	it.Prev()
	require.Equal(t, "b", key())
	it.Next()
	require.Equal(t, "c", key())
	it.Next()
	require.Equal(t, "d", key())
	require.Equal(t, "D", string(it.Value()))
	it.Prev()
	require.Equal(t, "c", key())
	it.Next()
	it.Next()
	require.Equal(t, "e", key())
	it.Prev()
	require.Equal(t, "d", key())
	it.Next()
	require.Equal(t, "e", key())
	it.Next()
	require.False(t, it.Valid())
	require.NoError(t, it.Error())
}

func TestBaseDeltaIterator_RangeDeleteHidesBase(t *testing.T) {
	base := newBase(t, "a", "1", "k2", "2", "k4", "4", "z", "26")
	w := newBatch(true)
	require.NoError(t, w.Put([]byte("k3"), []byte("old")))
	require.NoError(t, w.DeleteRange([]byte("k1"), []byte("k9")))
	require.NoError(t, w.Put([]byte("k4"), []byte("new")))

	it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
	want := []string{"a=1", "k4=new", "z=26"}
	require.Equal(t, want, forward(t, it))
	require.Equal(t, reversed(want), backward(t, it))
}

func TestBaseDeltaIterator_RangeDeleteAfterCreation(t *testing.T) {
	base := newBase(t, "a", "1", "k2", "2", "k4", "4", "z", "26")
	w := newBatch(true)
	require.NoError(t, w.PutCF(3, []byte("other"), []byte("cf")))

	it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
	defer it.Close()
	require.Equal(t, []string{"a=1", "k2=2", "k4=4", "z=26"}, forward(t, it))

	require.NoError(t, w.DeleteRange([]byte("k1"), []byte("k5")))
	want := []string{"a=1", "z=26"}
	require.Equal(t, want, forward(t, it))
	require.Equal(t, reversed(want), backward(t, it))

	it.Seek([]byte("k"))
	require.True(t, it.Valid())
	require.Equal(t, "z", string(it.Key()))
}

func TestBaseDeltaIterator_UpperBound(t *testing.T) {
	base := newBase(t, "a", "1", "c", "3", "e", "5")
	w := newBatch(true)
	require.NoError(t, w.Put([]byte("b"), []byte("B")))
	require.NoError(t, w.Put([]byte("d"), []byte("D")))
	require.NoError(t, w.Put([]byte("f"), []byte("F")))

	it := w.NewIteratorWithDB(base, db.ReadOptions{IterateUpperBound: []byte("d")}, 0)
	require.Equal(t, []string{"a=1", "b=B", "c=3"}, forward(t, it))
}

func TestBaseDeltaIterator_RequiresOverwriteKey(t *testing.T) {
	base := newBase(t, "a", "1")
	w := newBatch(false)
	require.NoError(t, w.Put([]byte("b"), []byte("B")))

	it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
	it.SeekToFirst()
	require.False(t, it.Valid())
	require.True(t, errors.Is(it.Error(), dberrors.ErrNotSupported))
}

func TestBaseDeltaIterator_NextOnInvalid(t *testing.T) {
	base := newBase(t)
	w := newBatch(true)
	it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
	it.SeekToFirst()
	require.False(t, it.Valid())
	require.NoError(t, it.Error())

	it.Next()
	require.True(t, errors.Is(it.Error(), dberrors.ErrNotSupported))

	// repositioning clears the error
	it.SeekToFirst()
	require.NoError(t, it.Error())
	it.Prev()
	require.True(t, errors.Is(it.Error(), dberrors.ErrNotSupported))
}

func TestBaseDeltaIterator_MergeWithoutOperator(t *testing.T) {
	base := newBase(t, "a", "1")
	w := New(Options{OverwriteKey: true})
	require.NoError(t, w.Merge([]byte("a"), []byte("x")))

	it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
	it.SeekToFirst()
	require.False(t, it.Valid())
	require.True(t, errors.Is(it.Error(), dberrors.ErrInvalidArgument))
}

// The merged view must equal the base store after committing the batch.
func TestBaseDeltaIterator_MatchesCommit(t *testing.T) {
	ctx := context.Background()
	keys := make([]string, 16)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%02d", i)
	}
	r := rand.New(rand.NewSource(5))

	for round := 0; round < 200; round++ {
		newStore := func() *memtable.Memtable {
			return memtable.New(memtable.Options{
				MergeOperator: func(types.ColumnFamilyID) merge.Operator { return merge.NewStringAppend(",") },
			})
		}
		base, committed := newStore(), newStore()

		w := newBatch(true)
		seed := batch.New(0, 0)
		for _, k := range keys {
			if r.Intn(2) == 0 {
				require.NoError(t, seed.Put([]byte(k), []byte("base-"+k)))
			}
		}
		require.NoError(t, base.Write(ctx, seed))
		require.NoError(t, committed.Write(ctx, seed))

		n := r.Intn(24)
		for i := 0; i < n; i++ {
			k := keys[r.Intn(len(keys))]
			v := fmt.Sprintf("v%d", i)
			switch r.Intn(6) {
			case 0, 1:
				require.NoError(t, w.Put([]byte(k), []byte(v)))
			case 2:
				require.NoError(t, w.Merge([]byte(k), []byte(v)))
			case 3:
				require.NoError(t, w.Delete([]byte(k)))
			case 4:
				require.NoError(t, w.SingleDelete([]byte(k)))
			case 5:
				lo, hi := r.Intn(len(keys)), r.Intn(len(keys))
				if lo == hi {
					continue
				}
				require.NoError(t, w.DeleteRange([]byte(keys[min(lo, hi)]), []byte(keys[max(lo, hi)])))
			}
		}

		it := w.NewIteratorWithDB(base, db.ReadOptions{}, 0)
		got := forward(t, it)
		require.Equal(t, reversed(got), backward(t, it), "round %d", round)

		require.NoError(t, committed.Write(ctx, w.WriteBatch()))
		want := forward(t, committed.NewIterator(db.ReadOptions{}, 0))
		require.Equal(t, want, got, "round %d", round)

		// random walk with direction changes
		pos := -1
		for step := 0; step < 40 && len(want) > 0; step++ {
			switch {
			case pos < 0 || pos >= len(want):
				pos = r.Intn(len(want))
				k := want[pos][:3]
				it.Seek([]byte(k))
			case r.Intn(2) == 0:
				it.Next()
				pos++
			default:
				it.Prev()
				pos--
			}
			if pos < 0 || pos >= len(want) {
				require.False(t, it.Valid())
				continue
			}
			require.True(t, it.Valid(), "round %d step %d", round, step)
			require.Equal(t, want[pos], fmt.Sprintf("%s=%s", it.Key(), it.Value()))
		}
		require.NoError(t, it.Close())
	}
}
