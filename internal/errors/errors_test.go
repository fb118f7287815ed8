package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewConfigError("speed base must be at least 1", nil),
			expected: "[CONFIG] speed base must be at least 1",
		},
		{
			name:     "with cause",
			err:      NewParsingError("failed to read log", errors.New("unexpected EOF")),
			expected: "[PARSING] failed to read log: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestTypeOf_WrappedErrors(t *testing.T) {
	base := NewDataQualityError("fewer than 3 distinct points", nil)
	wrapped := fmt.Errorf("plot demanded_nm: %w", base)

	assert.Equal(t, ErrTypeDataQuality, TypeOf(wrapped))
	assert.True(t, IsDataQuality(wrapped))
	assert.False(t, IsConfig(wrapped))
	assert.False(t, IsParsing(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestAppError_UnwrapAndContext(t *testing.T) {
	cause := errors.New("boom")
	err := NewParsingError("bad file", cause).WithContext("file", "run1.csv")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "run1.csv", err.Context["file"])
}
