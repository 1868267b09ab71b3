package memtable

import "bytes"

// sorted copies the items of a column family in key order, stopping before
// upper when it is set.
func (cf *columnFamily) sorted(upper []byte) []Item {
	result := make([]Item, 0, cf.items.Len())
	cf.items.Range(func(key []byte, value Item) bool {
		if upper != nil && cf.cmp.Compare(key, upper) >= 0 {
			return false
		}
		result = append(result, Item{
			Key:   bytes.Clone(value.Key),
			Value: bytes.Clone(value.Value),
			SeqN:  value.SeqN,
		})
		return true
	})

	return result
}
