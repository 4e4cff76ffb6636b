package reference_test

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuselab/opcheck/reference"
	"github.com/fuselab/opcheck/types/shapes"
	"github.com/fuselab/opcheck/types/tensors"
)

var (
	F32 = dtypes.Float32
	F64 = dtypes.Float64
)

func TestUnaryReference(t *testing.T) {
	input := tensors.FromFlat(shapes.Make(F64, 4), []float64{-2, -0.5, 0.5, 2})
	got := reference.Unary("exp")([]any{input}, nil)
	require.Len(t, got, 1)
	for ii, v := range input.Values() {
		assert.InDelta(t, math.Exp(v), got[0].Values()[ii], 1e-15)
	}
}

func TestUnaryReferenceQuantizesToInputDType(t *testing.T) {
	input := tensors.FromFlat(shapes.Make(dtypes.Float16, 3), []float64{0.1, 1.3, 2.7})
	got := reference.Unary("exp")([]any{input}, nil)[0]
	assert.Equal(t, dtypes.Float16, got.DType())
	for _, v := range got.Values() {
		assert.Equal(t, tensors.Quantize(dtypes.Float16, v), v)
	}
}

func TestUnaryReferenceOnStridedInput(t *testing.T) {
	flat := tensors.Uniform(tensors.NewRand(41), shapes.Make(F32, 500), -9, 9)
	view := flat.AsStrided([]int{5, 5, 2}, []int{4, 5, 7}, 3)
	got := reference.Unary("abs")([]any{view}, nil)[0]
	want := reference.Unary("abs")([]any{view.Materialize()}, nil)[0]
	assert.True(t, got.Equal(want))
}

func TestSumReference(t *testing.T) {
	input := tensors.FromFlat(shapes.Make(F64, 2, 3), []float64{1, 2, 3, 4, 5, 6})

	full := reference.Sum()([]any{input, nil, false}, nil)[0]
	assert.True(t, full.Shape().IsScalar())
	assert.Equal(t, 21.0, full.At())

	rows := reference.Sum()([]any{input, []int64{1}, false}, nil)[0]
	assert.Equal(t, []float64{6, 15}, rows.Values())

	kept := reference.Sum()([]any{input, []int64{0}, true}, nil)[0]
	assert.Equal(t, []int{1, 3}, kept.Shape().Dimensions)
	assert.Equal(t, []float64{5, 7, 9}, kept.Values())

	negative := reference.Sum()([]any{input, []int64{-1}, false}, nil)[0]
	assert.Equal(t, []float64{6, 15}, negative.Values())
}

func TestMaxReference(t *testing.T) {
	input := tensors.FromFlat(shapes.Make(F64, 2, 2), []float64{1, 7, -3, 2})
	got := reference.Max()([]any{input, []int64{0}, false}, nil)[0]
	assert.Equal(t, []float64{1, 7}, got.Values())
}

func TestVarMeanReference(t *testing.T) {
	input := tensors.FromFlat(shapes.Make(F32, 4), []float64{1, 2, 3, 4})

	results := reference.VarMean()([]any{input, nil}, map[string]any{"correction": int64(1)})
	require.Len(t, results, 2)
	variance, mean := results[0], results[1]
	// Promote family: float64 outputs regardless of the input dtype.
	assert.Equal(t, F64, variance.DType())
	assert.Equal(t, F64, mean.DType())
	assert.InDelta(t, 5.0/3.0, variance.At(), 1e-12)
	assert.InDelta(t, 2.5, mean.At(), 1e-12)

	results = reference.VarMean()([]any{input, nil}, map[string]any{"correction": int64(0)})
	assert.InDelta(t, 1.25, results[0].At(), 1e-12)
}

func TestVarMeanReferenceDegenerateDenominator(t *testing.T) {
	// n == correction: both paths agree on NaN variance.
	input := tensors.FromFlat(shapes.Make(F64, 1), []float64{3})
	results := reference.VarMean()([]any{input, nil}, map[string]any{"correction": int64(1)})
	assert.True(t, math.IsNaN(results[0].At()))
	assert.Equal(t, 3.0, results[1].At())
}

func TestSliceReference(t *testing.T) {
	input := tensors.Uniform(tensors.NewRand(42), shapes.Make(F32, 5, 7, 8), -9, 9)
	got := reference.Slice()([]any{input}, map[string]any{
		"start_indices": []int64{1, 0, 3},
		"end_indices":   []int64{2, 6, 8},
		"strides":       []int64{1, 1, 1},
	})[0]
	require.Equal(t, []int{1, 6, 5}, got.Shape().Dimensions)
	assert.Equal(t, input.At(1, 0, 3), got.At(0, 0, 0))
	assert.Equal(t, input.At(1, 5, 7), got.At(0, 5, 4))
}
