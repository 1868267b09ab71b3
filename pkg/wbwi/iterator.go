package wbwi

import "wbwi/pkg/index"

// IndexIterator walks every index entry of one column family.
type IndexIterator = index.Iterator
