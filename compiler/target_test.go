package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/oslogopt/ir"
)

func TestWithWordSize(t *testing.T) {
	tgt, err := Target64.WithWordSize(4)
	require.NoError(t, err)
	assert.Equal(t, 4, tgt.WordSize)
	assert.Equal(t, Target64.Triple, tgt.Triple)
	assert.Equal(t, 8, Target64.WordSize)

	_, err = Target64.WithWordSize(2)
	require.EqualError(t, err, "unsupported word size 2: must be 4 or 8")
}

func TestBuiltinTargetLayouts(t *testing.T) {
	assert.Equal(t, 8, PointerSize(Target64.DataLayout))
	assert.Equal(t, 4, PointerSize(Target32.DataLayout))
}

func TestWithWordSizeRewritesLayout(t *testing.T) {
	narrow, err := Target64.WithWordSize(4)
	require.NoError(t, err)
	assert.Equal(t, "e-p:32:32-m:o-i64:64-i128:128-n32:64-S128", narrow.DataLayout)
	assert.Equal(t, 4, PointerSize(narrow.DataLayout))

	wide, err := Target32.WithWordSize(8)
	require.NoError(t, err)
	assert.Equal(t, "e-p:64:64-m:o-Fi8-i64:64-a:0:32-n32-S128", wide.DataLayout)
	assert.Equal(t, 8, PointerSize(wide.DataLayout))

	same, err := Target32.WithWordSize(4)
	require.NoError(t, err)
	assert.Equal(t, Target32, same)

	bare, err := Target{Triple: "x"}.WithWordSize(4)
	require.NoError(t, err)
	assert.Empty(t, bare.DataLayout)
}

func TestIntType(t *testing.T) {
	assert.Equal(t, ir.Type("Builtin.Int64"), Target64.IntType())
	assert.Equal(t, ir.Type("Builtin.Int32"), Target32.IntType())
}

func TestNewTargetHost(t *testing.T) {
	tgt, err := NewTarget("")
	require.NoError(t, err)
	assert.NotEmpty(t, tgt.Triple)
	assert.NotEmpty(t, tgt.DataLayout)
	assert.Contains(t, []int{4, 8}, tgt.WordSize)
	assert.Equal(t, tgt.WordSize, PointerSize(tgt.DataLayout))

	for _, size := range []int{4, 8} {
		over, err := tgt.WithWordSize(size)
		require.NoError(t, err)
		assert.Equal(t, size, PointerSize(over.DataLayout))
	}
}

func TestNewTargetUnknown(t *testing.T) {
	_, err := NewTarget("bogus-unknown-none")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target "bogus-unknown-none"`)
}
