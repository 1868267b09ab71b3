package intervalmap

import (
	"bytes"

	"wbwi/pkg/comparator"
	"wbwi/pkg/types"
)

// DeletedRanges tracks range deletes per column family, each ordered by that
// column family's comparator.
type DeletedRanges struct {
	cmp  *comparator.Table
	maps map[types.ColumnFamilyID]*Map[[]byte]
}

func NewDeletedRanges(cmp *comparator.Table) *DeletedRanges {
	return &DeletedRanges{cmp: cmp, maps: make(map[types.ColumnFamilyID]*Map[[]byte])}
}

// Add records [begin, end) as deleted in cf. The keys are copied.
func (d *DeletedRanges) Add(cf types.ColumnFamilyID, begin, end []byte) {
	m, ok := d.maps[cf]
	if !ok {
		c := d.cmp.Get(cf)
		m = New(c.Compare)
		d.maps[cf] = m
	}
	m.AddInterval(bytes.Clone(begin), bytes.Clone(end))
}

func (d *DeletedRanges) Contains(cf types.ColumnFamilyID, key []byte) bool {
	m, ok := d.maps[cf]
	return ok && m.IsInInterval(key)
}

// Empty reports whether no range delete has been recorded.
func (d *DeletedRanges) Empty() bool {
	return len(d.maps) == 0
}

func (d *DeletedRanges) ColumnFamily(cf types.ColumnFamilyID) (*Map[[]byte], bool) {
	m, ok := d.maps[cf]
	return m, ok
}

func (d *DeletedRanges) Clear() {
	clear(d.maps)
}
