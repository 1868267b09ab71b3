// Package shell runs line oriented scripts against a write batch layered
// over an in-memory store.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"wbwi/pkg/comparator"
	"wbwi/pkg/config"
	"wbwi/pkg/db"
	"wbwi/pkg/dberrors"
	"wbwi/pkg/memtable"
	"wbwi/pkg/merge"
	"wbwi/pkg/metrics"
	"wbwi/pkg/types"
	"wbwi/pkg/wbwi"
)

type Shell struct {
	cfg    config.Config
	out    io.Writer
	logger *slog.Logger
	stats  *metrics.Memory

	cmp   *comparator.Table
	ops   map[types.ColumnFamilyID]merge.Operator
	names map[string]types.ColumnFamilyID
	store *memtable.Memtable
	batch *wbwi.WriteBatchWithIndex
	cf    types.ColumnFamilyID
}

func New(cfg config.Config, out io.Writer, logger *slog.Logger) (*Shell, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Shell{
		cfg:    cfg,
		out:    out,
		logger: logger,
		stats:  metrics.NewMemory(),
		cmp:    comparator.NewTable(nil),
		ops:    make(map[types.ColumnFamilyID]merge.Operator),
		names:  make(map[string]types.ColumnFamilyID),
	}
	for _, cf := range cfg.ColumnFamilies {
		c, err := cf.ComparatorImpl()
		if err != nil {
			return nil, err
		}
		s.cmp.Set(cf.ID, c)
		if op := cf.Operator(); op != nil {
			s.ops[cf.ID] = op
		}
		s.names[cf.Name] = cf.ID
	}

	env := merge.Env{Logger: logger, Stats: s.stats}
	s.store = memtable.New(memtable.Options{
		Comparators:   s.cmp,
		MergeOperator: func(cf types.ColumnFamilyID) merge.Operator { return s.ops[cf] },
		MergeEnv:      env,
		Logger:        logger,
	})
	s.resetBatch()
	return s, nil
}

func (s *Shell) resetBatch() {
	s.batch = wbwi.New(wbwi.Options{
		Comparators:   s.cmp,
		ReservedBytes: s.cfg.Batch.ReservedBytes,
		MaxBytes:      s.cfg.Batch.MaxBytes,
		OverwriteKey:  s.cfg.Batch.OverwriteKey,
		Logger:        s.logger,
		Stats:         s.stats,
	})
	for cf, op := range s.ops {
		s.batch.SetMergeOperator(cf, op)
	}
}

// Stats exposes the counters gathered so far.
func (s *Shell) Stats() *metrics.Memory {
	return s.stats
}

// Run executes every line of r. Failing commands are reported to the output
// and the script goes on; the failures are returned together.
func (s *Shell) Run(ctx context.Context, r io.Reader) error {
	var result error
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.Exec(ctx, line); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			result = errors.CombineErrors(result, errors.Wrapf(err, "line %d", lineNo))
		}
	}
	return errors.CombineErrors(result, sc.Err())
}

// Exec runs one command.
func (s *Shell) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]

	want := func(n int) error {
		if len(args) != n {
			return dberrors.InvalidArgumentf("%s: expected %d arguments, got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "cf":
		if err := want(1); err != nil {
			return err
		}
		return s.useColumnFamily(args[0])
	case "overwrite":
		if err := want(1); err != nil {
			return err
		}
		on, err := strconv.ParseBool(args[0])
		if err != nil {
			return dberrors.InvalidArgumentf("overwrite: %q is not a boolean", args[0])
		}
		// switching modes drops pending writes
		s.cfg.Batch.OverwriteKey = on
		s.resetBatch()
		return nil
	case "put":
		if err := want(2); err != nil {
			return err
		}
		return s.batch.PutCF(s.cf, []byte(args[0]), []byte(args[1]))
	case "merge":
		if err := want(2); err != nil {
			return err
		}
		return s.batch.MergeCF(s.cf, []byte(args[0]), []byte(args[1]))
	case "delete":
		if err := want(1); err != nil {
			return err
		}
		return s.batch.DeleteCF(s.cf, []byte(args[0]))
	case "single_delete":
		if err := want(1); err != nil {
			return err
		}
		return s.batch.SingleDeleteCF(s.cf, []byte(args[0]))
	case "delete_range":
		if err := want(2); err != nil {
			return err
		}
		return s.batch.DeleteRangeCF(s.cf, []byte(args[0]), []byte(args[1]))
	case "log":
		return s.batch.PutLogData([]byte(strings.Join(args, " ")))
	case "savepoint":
		s.batch.SetSavePoint()
		return nil
	case "rollback":
		return s.batch.RollbackToSavePoint()
	case "pop":
		return s.batch.PopSavePoint()
	case "clear":
		s.batch.Clear()
		return nil
	case "get":
		if err := want(1); err != nil {
			return err
		}
		v, err := s.batch.GetFromBatch(s.cf, []byte(args[0]))
		return s.printValue(args[0], v, err)
	case "get_db":
		if err := want(1); err != nil {
			return err
		}
		v, err := s.batch.GetFromBatchAndDB(ctx, s.store, db.ReadOptions{}, s.cf, []byte(args[0]))
		return s.printValue(args[0], v, err)
	case "deleted":
		if err := want(1); err != nil {
			return err
		}
		ok, err := s.batch.IsDeleted(s.cf, []byte(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s: deleted=%t\n", args[0], ok)
		return nil
	case "scan", "rscan":
		return s.scan(args, cmd == "rscan")
	case "count":
		fmt.Fprintf(s.out, "count=%d bytes=%d\n", s.batch.Count(), s.batch.DataSize())
		return nil
	case "commit":
		return s.commit(ctx)
	default:
		return dberrors.InvalidArgumentf("unknown command %q", cmd)
	}
}

func (s *Shell) useColumnFamily(arg string) error {
	if id, ok := s.names[arg]; ok {
		s.cf = id
		return nil
	}
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return dberrors.InvalidArgumentf("unknown column family %q", arg)
	}
	s.cf = types.ColumnFamilyID(id)
	return nil
}

func (s *Shell) printValue(key string, v []byte, err error) error {
	switch {
	case err == nil:
		fmt.Fprintf(s.out, "%s: %s\n", key, v)
	case errors.Is(err, dberrors.ErrNotFound):
		fmt.Fprintf(s.out, "%s: <not found>\n", key)
	case errors.Is(err, dberrors.ErrMergeInProgress):
		fmt.Fprintf(s.out, "%s: <merge in progress>\n", key)
	default:
		return err
	}
	return nil
}

// scan prints the merged view of the current column family over an
// optional [start, end) range.
func (s *Shell) scan(args []string, reverse bool) error {
	if len(args) > 2 {
		return dberrors.InvalidArgumentf("scan: expected at most 2 arguments, got %d", len(args))
	}
	opts := db.SearchOptions{Reverse: reverse}
	if len(args) > 0 && args[0] != "-" {
		opts.Start = []byte(args[0])
	}
	if len(args) > 1 && args[1] != "-" {
		opts.End = []byte(args[1])
	}

	it := s.batch.NewIteratorWithDB(s.store, db.ReadOptions{}, s.cf)
	defer it.Close()

	n := 0
	err := db.SearchRange(it, s.cmp.Get(s.cf), opts, func(r db.SearchResult) error {
		fmt.Fprintf(s.out, "%s=%s\n", r.Key, r.Value)
		n++
		return nil
	})
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(s.out, "<empty>")
	}
	return nil
}

func (s *Shell) commit(ctx context.Context) error {
	wb := s.batch.WriteBatch()
	if err := s.store.Write(ctx, wb); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "committed seq=%d records=%d\n", wb.Sequence(), wb.Count())
	s.resetBatch()
	return nil
}
