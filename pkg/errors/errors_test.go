package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNotFound, "file missing")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeNotFound, err.Code)
	assert.Nil(t, err.Cause)
	assert.Equal(t, "[NOT_FOUND] file missing", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(ErrCodePermission, "cannot write", fs.ErrPermission)

	assert.True(t, stderrors.Is(err, fs.ErrPermission))
	assert.Contains(t, err.Error(), "[PERMISSION] cannot write")
}

func TestWrapWithContext(t *testing.T) {
	err := WrapWithContext(ErrCodeParse, "bad json", stderrors.New("boom"), map[string]any{"offset": 3})
	assert.Equal(t, 3, err.Context["offset"])
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: stderrors.New("x"), want: ""},
		{name: "direct", err: New(ErrCodeSerialization, "x"), want: ErrCodeSerialization},
		{name: "wrapped by fmt", err: fmt.Errorf("outer: %w", New(ErrCodeParse, "x")), want: ErrCodeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIsCode(t *testing.T) {
	assert.False(t, IsCode(nil, ErrCodeInternal))
	assert.True(t, IsCode(New(ErrCodeInternal, "x"), ErrCodeInternal))
	assert.False(t, IsCode(New(ErrCodeInternal, "x"), ErrCodeParse))
}
