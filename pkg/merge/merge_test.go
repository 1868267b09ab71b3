package merge

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"wbwi/pkg/clock"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/metrics"
)

type slowOperator struct {
	clk *clock.Manual
	err error
}

func (s *slowOperator) Name() string { return "slow" }

func (s *slowOperator) FullMerge(_, _ []byte, _ bool, _ [][]byte) ([]byte, error) {
	s.clk.Advance(5 * time.Millisecond)
	return []byte("ok"), s.err
}

func TestStringAppend(t *testing.T) {
	op := NewStringAppend("")
	v, err := op.FullMerge([]byte("k"), []byte("a"), true, [][]byte{[]byte("+b"), []byte("+c")})
	require.NoError(t, err)
	require.Equal(t, "a+b+c", string(v))

	v, err = NewStringAppend(",").FullMerge([]byte("k"), nil, false, [][]byte{[]byte("x"), []byte("y")})
	require.NoError(t, err)
	require.Equal(t, "x,y", string(v))

	// an empty existing value still counts
	v, err = NewStringAppend(",").FullMerge([]byte("k"), nil, true, [][]byte{[]byte("x")})
	require.NoError(t, err)
	require.Equal(t, ",x", string(v))
}

func TestTimedFullMerge_RecordsStats(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	stats := metrics.NewMemory()
	env := Env{Stats: stats, Clock: clk}

	v, err := TimedFullMerge(env, &slowOperator{clk: clk}, []byte("k"), nil, false, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", string(v))

	labels := map[string]string{"operator": "slow"}
	require.Equal(t, float64(1), stats.Counter(metrics.MergeOperations, labels))
	require.Equal(t, []float64{float64(5 * time.Millisecond)}, stats.Observations(metrics.MergeOperationTotalTime, labels))
}

func TestTimedFullMerge_Failure(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	stats := metrics.NewMemory()
	var logs bytes.Buffer
	env := Env{
		Stats:  stats,
		Clock:  clk,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	}
	boom := errors.New("boom")

	_, err := TimedFullMerge(env, &slowOperator{clk: clk, err: boom}, []byte("k"), nil, false, nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, float64(1), stats.Counter(metrics.MergeFailures, map[string]string{"operator": "slow"}))
	require.Contains(t, logs.String(), "merge failed")
}

func TestTimedFullMerge_NoOperator(t *testing.T) {
	_, err := TimedFullMerge(Env{}, nil, []byte("k"), nil, false, nil)
	require.True(t, errors.Is(err, dberrors.ErrInvalidArgument))
}
