// Package merge resolves merge operands into a value.
package merge

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"wbwi/pkg/clock"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/metrics"
)

// Operator combines a chain of operands with an optional existing value.
// Operands are ordered oldest first.
type Operator interface {
	FullMerge(key, existing []byte, hasExisting bool, operands [][]byte) ([]byte, error)
	Name() string
}

// Env carries the observers of a merge. None of them change the result.
type Env struct {
	Logger *slog.Logger
	Stats  metrics.Collector
	Clock  clock.Clock
}

// WithDefaults fills unset collaborators with no-op ones.
func (e Env) WithDefaults() Env {
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	if e.Stats == nil {
		e.Stats = metrics.Noop{}
	}
	if e.Clock == nil {
		e.Clock = clock.System
	}
	return e
}

// TimedFullMerge runs op over operands and records how long it took.
func TimedFullMerge(env Env, op Operator, key, existing []byte, hasExisting bool, operands [][]byte) ([]byte, error) {
	if op == nil {
		return nil, dberrors.InvalidArgumentf("merge operator not set for key %q", key)
	}
	env = env.WithDefaults()

	labels := map[string]string{"operator": op.Name()}
	start := env.Clock.Now()
	v, err := op.FullMerge(key, existing, hasExisting, operands)
	env.Stats.ObserveHistogram(metrics.MergeOperationTotalTime, labels, float64(env.Clock.Now().Sub(start).Nanoseconds()))
	env.Stats.IncCounter(metrics.MergeOperations, labels, 1)

	if err != nil {
		env.Stats.IncCounter(metrics.MergeFailures, labels, 1)
		env.Logger.Warn("merge failed",
			slog.String("operator", op.Name()),
			slog.Int("operands", len(operands)),
			slog.Any("error", err))
		return nil, errors.Wrapf(err, "merge %q", key)
	}
	return v, nil
}
