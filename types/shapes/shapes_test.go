package shapes_test

import (
	"testing"

	"github.com/fuselab/opcheck/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	F32 = dtypes.Float32
	F64 = dtypes.Float64
)

func TestMake(t *testing.T) {
	s := shapes.Make(F32, 4, 7)
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 28, s.Size())
	assert.Equal(t, "(Float32)[4 7]", s.String())
	assert.Equal(t, 7, s.Dim(-1))
	assert.Equal(t, 4, s.Dim(0))

	scalar := shapes.Scalar(F64)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Size())

	require.Panics(t, func() { shapes.Make(F32, 3, 0) })
	require.Panics(t, func() { s.Dim(2) })
}

func TestEqual(t *testing.T) {
	assert.True(t, shapes.Make(F32, 2, 3).Equal(shapes.Make(F32, 2, 3)))
	assert.False(t, shapes.Make(F32, 2, 3).Equal(shapes.Make(F64, 2, 3)))
	assert.False(t, shapes.Make(F32, 2, 3).Equal(shapes.Make(F32, 3, 2)))
	assert.True(t, shapes.Make(F32, 2, 3).EqualDimensions(shapes.Make(F64, 2, 3)))
	assert.False(t, shapes.Invalid().Ok())
}

func TestContiguousStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, shapes.Make(F32, 2, 3, 4).ContiguousStrides())
	assert.Empty(t, shapes.Scalar(F32).ContiguousStrides())
}

func TestReduceDims(t *testing.T) {
	s := shapes.Make(F32, 8, 7, 5, 1)
	assert.Equal(t, []int{1, 1, 5, 1}, s.ReduceDims([]int{0, 1}, true).Dimensions)
	assert.Equal(t, []int{8, 5}, s.ReduceDims([]int{1, 3}, false).Dimensions)
	full := s.ReduceDims([]int{0, 1, 2, 3}, false)
	assert.True(t, full.IsScalar())
}

func TestCheckDims(t *testing.T) {
	s := shapes.Make(F32, 4, 7)
	require.NoError(t, s.CheckDims(4, 7))
	require.NoError(t, s.CheckDims(-1, 7))
	require.Error(t, s.CheckDims(4))
	require.Error(t, s.CheckDims(4, 8))
	require.Error(t, s.Check(F64, 4, 7))
	require.NotPanics(t, func() { s.AssertDims(4, -1) })
	require.Panics(t, func() { s.AssertDims(5, 7) })
}

func TestIter(t *testing.T) {
	s := shapes.Make(F32, 2, 3)
	var got [][]int
	for idx := range s.Iter() {
		cp := make([]int, len(idx))
		copy(cp, idx)
		got = append(got, cp)
	}
	want := [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	assert.Equal(t, want, got)

	count := 0
	for range shapes.Scalar(F32).Iter() {
		count++
	}
	assert.Equal(t, 1, count)
}
