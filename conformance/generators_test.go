package conformance_test

import (
	"fmt"
	"iter"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuselab/opcheck/conformance"
)

var (
	F16 = dtypes.Float16
	F32 = dtypes.Float32
	F64 = dtypes.Float64
)

func collectSamples(seq iter.Seq[conformance.SampleInput]) []conformance.SampleInput {
	var out []conformance.SampleInput
	for s := range seq {
		out = append(out, s)
	}
	return out
}

func collectErrors(seq iter.Seq[conformance.ErrorCase]) []conformance.ErrorCase {
	var out []conformance.ErrorCase
	for ec := range seq {
		out = append(out, ec)
	}
	return out
}

func findOp(t *testing.T, name string) *conformance.OpInfo {
	t.Helper()
	op := conformance.FindOp(conformance.DefaultRegistry(), name)
	require.NotNil(t, op, "operator %s not registered", name)
	return op
}

func TestElementwiseUnaryGeneratorBattery(t *testing.T) {
	op := findOp(t, "exp")
	samples := collectSamples(conformance.ElementwiseUnaryGenerator(op, F32, false))
	require.Len(t, samples, 16)

	wantDims := [][]int{{}, {11}, {4, 4}, {1024, 1024}, {64, 64, 64}}
	for ii, dims := range wantDims {
		contiguous := samples[ii].Args[0].Tensor()
		assert.Equal(t, dims, contiguous.Shape().Dimensions)
		assert.True(t, contiguous.IsContiguous())

		repeated := samples[ii+5].Args[0].Tensor()
		assert.Equal(t, dims, repeated.Shape().Dimensions)
		if repeated.Size() > 1 {
			assert.False(t, repeated.IsContiguous(), "shape %v should be laid out non-contiguously", dims)
		}
	}

	wantStrided := [][]int{
		{5, 6, 2}, {5, 5, 4}, {5, 5, 2}, {5, 5, 2}, {5, 5, 2}, {9, 5, 2},
	}
	for ii, dims := range wantStrided {
		view := samples[10+ii].Args[0].Tensor()
		assert.Equal(t, dims, view.Shape().Dimensions)
	}
}

func TestElementwiseUnaryGeneratorRespectsDomain(t *testing.T) {
	testCases := []struct {
		op        string
		low, high float64
	}{
		{"acos", -1, 1},
		{"asin", -1, 1},
		{"log", 0, 9},
		{"exp", -9, 9},
	}
	for _, tc := range testCases {
		op := findOp(t, tc.op)
		for sample := range conformance.ElementwiseUnaryGenerator(op, F32, false) {
			// Quantization may round a draw onto the bound itself.
			for _, v := range sample.Args[0].Tensor().Values() {
				require.GreaterOrEqualf(t, v, tc.low, "op %s", tc.op)
				require.LessOrEqualf(t, v, tc.high, "op %s", tc.op)
			}
		}
	}
}

func TestGeneratorIdempotence(t *testing.T) {
	op := findOp(t, "tanh")
	first := collectSamples(conformance.ElementwiseUnaryGenerator(op, F16, true))
	second := collectSamples(conformance.ElementwiseUnaryGenerator(op, F16, true))
	require.Len(t, second, len(first))
	for ii := range first {
		a := first[ii].Args[0].Tensor()
		b := second[ii].Args[0].Tensor()
		assert.Truef(t, a.Equal(b), "sample %d differs between generations", ii)
	}
}

func TestVarMeanGeneratorIdempotence(t *testing.T) {
	op := findOp(t, "var_mean")
	first := collectSamples(conformance.VarMeanGenerator(op, F64, false))
	second := collectSamples(conformance.VarMeanGenerator(op, F64, false))
	require.Len(t, second, len(first))
	for ii := range first {
		assert.True(t, first[ii].Args[0].Tensor().Equal(second[ii].Args[0].Tensor()))
		assert.Equal(t, first[ii].Args[1].Value(), second[ii].Args[1].Value())
		assert.Equal(t, first[ii].Kwargs, second[ii].Kwargs)
	}
}

func TestReductionGeneratorCases(t *testing.T) {
	op := findOp(t, "sum")
	samples := collectSamples(conformance.ReductionGenerator(op, F32, false))
	require.Len(t, samples, 6)

	// Full reduction cases carry an unspecified axis list.
	assert.Nil(t, samples[0].Args[1].Value())
	assert.Nil(t, samples[1].Args[1].Value())
	assert.Equal(t, []int64{1, 3}, samples[5].Args[1].Value())
	assert.Equal(t, []int{8, 7, 5, 1}, samples[5].Args[0].Tensor().Shape().Dimensions)

	// Narrowed value range.
	for _, sample := range samples {
		for _, v := range sample.Args[0].Tensor().Values() {
			require.GreaterOrEqual(t, v, -2.0)
			require.LessOrEqual(t, v, 3.0)
		}
	}
}

func TestVarMeanGeneratorNormalizesAxes(t *testing.T) {
	op := findOp(t, "var_mean")
	samples := collectSamples(conformance.VarMeanGenerator(op, F32, false))
	require.Len(t, samples, 12) // 6 reduction cases x 2 correction values

	// The (4,4) full-reduction base sample gains explicit all-axes dims.
	assert.Equal(t, []int64{0, 1}, samples[0].Args[1].Value())
	assert.Equal(t, int64(0), samples[0].Kwargs["correction"])
	assert.Equal(t, int64(1), samples[6].Kwargs["correction"])
}

func TestSliceGeneratorConcreteScenario(t *testing.T) {
	op := findOp(t, "slice")
	samples := collectSamples(conformance.SliceGenerator(op, F32, false))
	require.Len(t, samples, 2)

	first := samples[0]
	assert.Equal(t, []int{5, 7, 8}, first.Args[0].Tensor().Shape().Dimensions)
	start := first.Kwargs["start_indices"].([]int64)
	end := first.Kwargs["end_indices"].([]int64)
	require.Equal(t, []int64{1, 0, 3}, start)
	require.Equal(t, []int64{2, 6, 8}, end)

	extracted := make([]int, len(start))
	for ii := range start {
		extracted[ii] = int(end[ii] - start[ii])
	}
	assert.Equal(t, []int{1, 6, 5}, extracted)
}

func TestSliceErrorGeneratorCrossProduct(t *testing.T) {
	op := findOp(t, "slice")
	cases := collectErrors(conformance.SliceErrorGenerator(op, F32, false))
	require.Len(t, cases, 14) // 2 shapes x 7 bundles
	for _, ec := range cases {
		assert.Empty(t, ec.Skip)
		assert.NotEmpty(t, ec.Message)
	}
}

func TestDefineTensorErrorCases(t *testing.T) {
	op := findOp(t, "define_tensor")
	cases := collectErrors(conformance.DefineTensorErrorGenerator(op, F32, false))
	require.Len(t, cases, 5)

	var enabled, skipped int
	for _, ec := range cases {
		if ec.Skip == "" {
			enabled++
		} else {
			skipped++
		}
	}
	assert.Equal(t, 3, enabled)
	assert.Equal(t, 2, skipped)

	assert.Equal(t, "size_contiguity_mismatch", cases[0].Name)
	assert.Contains(t, cases[0].Message,
		"The size of contiguity must equal to the number of non-broadcasting IterDomains")
}

func TestReductionErrorGeneratorNamesOperator(t *testing.T) {
	for _, name := range []string{"sum", "var_mean"} {
		op := findOp(t, name)
		cases := collectErrors(conformance.ReductionErrorGenerator(op, F32, false))
		require.Len(t, cases, 8) // 2 shapes x 4 axis cases

		var enabled []conformance.ErrorCase
		for _, ec := range cases {
			if ec.Skip == "" {
				enabled = append(enabled, ec)
			}
		}
		require.Len(t, enabled, 2)
		for _, ec := range enabled {
			assert.Equal(t, fmt.Sprintf("%s(): incompatible function arguments", name), ec.Message)
		}
	}
}
