package memtable

import "wbwi/pkg/types"

// Item is one committed key. SeqN is the sequence number of the batch that
// last wrote it.
type Item struct {
	Key   types.Key
	Value types.Value
	SeqN  uint64
}
