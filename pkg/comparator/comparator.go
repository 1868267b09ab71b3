package comparator

import (
	"bytes"

	"wbwi/pkg/dberrors"
	"wbwi/pkg/types"

	"github.com/zhangyunhao116/skipmap"
)

// Comparator defines a total order over user keys.
type Comparator interface {
	Compare(a, b []byte) int
	Name() string
}

const (
	BytewiseName        = "bytewise"
	ReverseBytewiseName = "reverse_bytewise"
)

var (
	Bytewise        Comparator = bytewise{}
	ReverseBytewise Comparator = reverseBytewise{}
)

type bytewise struct{}

func (bytewise) Compare(a, b []byte) int { return bytes.Compare(a, b) }
func (bytewise) Name() string            { return BytewiseName }

type reverseBytewise struct{}

func (reverseBytewise) Compare(a, b []byte) int { return bytes.Compare(b, a) }
func (reverseBytewise) Name() string            { return ReverseBytewiseName }

// ByName resolves one of the built-in comparators.
func ByName(name string) (Comparator, error) {
	switch name {
	case "", BytewiseName:
		return Bytewise, nil
	case ReverseBytewiseName:
		return ReverseBytewise, nil
	default:
		return nil, dberrors.InvalidArgumentf("unknown comparator %q", name)
	}
}

// Table resolves the comparator of a column family: an override registered
// for the id, or the default one.
type Table struct {
	def       Comparator
	overrides *skipmap.FuncMap[types.ColumnFamilyID, Comparator]
}

func NewTable(def Comparator) *Table {
	if def == nil {
		def = Bytewise
	}
	return &Table{
		def: def,
		overrides: skipmap.NewFunc[types.ColumnFamilyID, Comparator](func(a, b types.ColumnFamilyID) bool {
			return a < b
		}),
	}
}

// Set registers cmp for the column family. A nil cmp removes the override.
func (t *Table) Set(cf types.ColumnFamilyID, cmp Comparator) {
	if cmp == nil {
		t.overrides.Delete(cf)
		return
	}
	t.overrides.Store(cf, cmp)
}

func (t *Table) Default() Comparator {
	return t.def
}

func (t *Table) Get(cf types.ColumnFamilyID) Comparator {
	if cmp, ok := t.overrides.Load(cf); ok {
		return cmp
	}
	return t.def
}

func (t *Table) CompareKey(cf types.ColumnFamilyID, a, b []byte) int {
	return t.Get(cf).Compare(a, b)
}

func (t *Table) Equal(cf types.ColumnFamilyID, a, b []byte) bool {
	return t.CompareKey(cf, a, b) == 0
}
