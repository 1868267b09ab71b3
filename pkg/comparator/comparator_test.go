package comparator

import (
	"testing"

	"wbwi/pkg/dberrors"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	assert.Negative(t, Bytewise.Compare([]byte("a"), []byte("b")))
	assert.Positive(t, ReverseBytewise.Compare([]byte("a"), []byte("b")))
	assert.Zero(t, ReverseBytewise.Compare([]byte("a"), []byte("a")))

	cmp, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, BytewiseName, cmp.Name())

	cmp, err = ByName(ReverseBytewiseName)
	require.NoError(t, err)
	assert.Equal(t, ReverseBytewise, cmp)

	_, err = ByName("natural")
	assert.True(t, errors.Is(err, dberrors.ErrInvalidArgument))
}

func TestTableOverrides(t *testing.T) {
	table := NewTable(nil)
	assert.Equal(t, Bytewise, table.Default())

	table.Set(3, ReverseBytewise)
	assert.Equal(t, ReverseBytewise, table.Get(3))
	assert.Equal(t, Bytewise, table.Get(0))
	assert.Equal(t, Bytewise, table.Get(4))

	assert.Positive(t, table.CompareKey(3, []byte("a"), []byte("b")))
	assert.Negative(t, table.CompareKey(0, []byte("a"), []byte("b")))
	assert.True(t, table.Equal(3, []byte("k"), []byte("k")))

	table.Set(3, nil)
	assert.Equal(t, Bytewise, table.Get(3))
}
