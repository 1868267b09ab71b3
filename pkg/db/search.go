package db

import (
	"github.com/cockroachdb/errors"

	"wbwi/pkg/comparator"
	"wbwi/pkg/iterator"
	"wbwi/pkg/types"
)

// SearchOptions bound a range scan. Start is inclusive and End exclusive;
// nil means unbounded.
type SearchOptions struct {
	Start   types.Key
	End     types.Key
	Limit   int
	Reverse bool
}

type SearchResult struct {
	Key   types.Key
	Value types.Value
}

// SearchCallback receives every result in order. Returning an error stops
// the scan and the error is returned by SearchRange.
type SearchCallback func(SearchResult) error

// SearchRange walks iter over [Start, End) in the requested direction,
// comparing keys with cmp.
func SearchRange(iter iterator.Iterator, cmp comparator.Comparator, opts SearchOptions, callback SearchCallback) error {
	switch {
	case opts.Reverse && opts.End != nil:
		iter.SeekForPrev(opts.End)
		if iter.Valid() && cmp.Compare(iter.Key(), opts.End) == 0 {
			iter.Prev()
		}
	case opts.Reverse:
		iter.SeekToLast()
	case opts.Start != nil:
		iter.Seek(opts.Start)
	default:
		iter.SeekToFirst()
	}

	count := 0
	for iter.Valid() && (opts.Limit == 0 || count < opts.Limit) {
		key := iter.Key()
		if opts.Reverse && opts.Start != nil && cmp.Compare(key, opts.Start) < 0 {
			break
		}
		if !opts.Reverse && opts.End != nil && cmp.Compare(key, opts.End) >= 0 {
			break
		}

		if err := callback(SearchResult{Key: key, Value: iter.Value()}); err != nil {
			return err
		}

		count++
		if opts.Reverse {
			iter.Prev()
		} else {
			iter.Next()
		}
	}

	return errors.Wrap(iter.Error(), "range scan")
}
