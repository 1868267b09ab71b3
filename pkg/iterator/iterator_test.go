package iterator

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestErrorIterator(t *testing.T) {
	boom := errors.New("boom")
	it := NewError(boom)
	it.SeekToFirst()
	require.False(t, it.Valid())
	it.Next()
	require.ErrorIs(t, it.Error(), boom)
	require.NoError(t, it.Close())

	empty := NewEmpty()
	empty.SeekToLast()
	require.False(t, empty.Valid())
	require.NoError(t, empty.Error())
}
