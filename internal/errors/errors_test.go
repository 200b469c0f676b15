package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBacktestError_Message(t *testing.T) {
	err := NewConfigError("rules", "compile", "unknown condition type \"foo\"")

	assert.Equal(t, "[CONFIG:rules] compile: unknown condition type \"foo\"", err.Error())
	assert.False(t, err.IsBug())
	assert.True(t, err.IsFatal())
}

func TestWrap_PreservesUnderlying(t *testing.T) {
	base := stderrors.New("file missing")
	err := Wrap(base, KindData, "data", "load", "cannot open csv")

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "file missing")
	assert.Nil(t, Wrap(nil, KindData, "data", "load", "x"))
}

func TestIsKind_ThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("run failed: %w", NewComputeError("engine", "run", "two pending orders"))

	assert.True(t, IsKind(err, KindCompute))
	assert.False(t, IsKind(err, KindData))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindCompute, kind)

	_, ok = KindOf(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestWithContext(t *testing.T) {
	err := DataErrorf("data", "validate", "duplicate date at index %d", 4).WithContext("index", 4)

	assert.Equal(t, 4, err.Context["index"])
	assert.Equal(t, KindData, err.Kind)
}
