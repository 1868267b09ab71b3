package dberrors

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestMarkedErrors(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		msg      string
	}{
		{NotFoundf("no save point"), ErrNotFound, "no save point"},
		{InvalidArgumentf("offset %d beyond %d", 20, 12), ErrInvalidArgument, "offset 20 beyond 12"},
		{Corruptionf("unknown tag %d", 0x42), ErrCorruption, "unknown tag 66"},
		{NotSupportedf("iterator is invalid"), ErrNotSupported, "iterator is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.msg, tt.err.Error())

			wrapped := errors.Wrap(tt.err, "lookup")
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}

	assert.True(t, IsNotFound(NotFoundf("gone")))
	assert.False(t, IsNotFound(Corruptionf("bad")))
}
