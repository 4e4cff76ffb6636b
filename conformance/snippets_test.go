package conformance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuselab/opcheck/conformance"
)

func TestConsistencySnippetElementwiseUnary(t *testing.T) {
	op := findOp(t, "tanh")
	index := 0
	for sample := range conformance.ElementwiseUnaryGenerator(op, F16, false) {
		err := conformance.RunConsistency(op, F16, sample)
		require.NoErrorf(t, err, "sample %d", index)
		index++
	}
	assert.Equal(t, 16, index)
}

func TestConsistencySnippetStridedVariantsAgree(t *testing.T) {
	// The strided tail of the unary battery must match the reference the
	// same way the contiguous head does.
	op := findOp(t, "abs")
	for sample := range conformance.ElementwiseUnaryGenerator(op, F64, false) {
		require.NoError(t, conformance.RunConsistency(op, F64, sample))
	}
}

func TestConsistencySnippetReductions(t *testing.T) {
	for _, name := range []string{"sum", "max"} {
		op := findOp(t, name)
		index := 0
		for sample := range conformance.ReductionGenerator(op, F32, false) {
			require.NoErrorf(t, conformance.RunConsistency(op, F32, sample), "%s sample %d", name, index)
			index++
		}
		assert.Equal(t, 6, index)
	}
}

func TestConsistencySnippetVarMeanPromotes(t *testing.T) {
	op := findOp(t, "var_mean")
	index := 0
	for sample := range conformance.VarMeanGenerator(op, F32, false) {
		require.NoErrorf(t, conformance.RunConsistency(op, F32, sample), "sample %d", index)
		index++
	}
	assert.Equal(t, 12, index)
}

func TestConsistencySnippetSlice(t *testing.T) {
	op := findOp(t, "slice")
	for sample := range conformance.SliceGenerator(op, F32, false) {
		require.NoError(t, conformance.RunConsistency(op, F32, sample))
	}
}

func TestErrorSnippetAcceptsAllEnabledCases(t *testing.T) {
	for _, name := range []string{"define_tensor", "slice", "sum", "var_mean"} {
		op := findOp(t, name)
		for ec := range op.ErrorSamples(op, F32, false) {
			if ec.Skip != "" {
				continue
			}
			assert.NoErrorf(t, conformance.RunError(op, F32, ec), "%s case %s", name, ec.Name)
		}
	}
}

func TestErrorSnippetFlagsCleanPass(t *testing.T) {
	op := findOp(t, "slice")
	var valid conformance.SampleInput
	for sample := range conformance.SliceGenerator(op, F32, false) {
		valid = sample
		break
	}
	ec := conformance.ErrorCase{
		Name:    "well_formed",
		Sample:  valid,
		Message: "anything",
	}
	err := conformance.RunError(op, F32, ec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an exception")
}

func TestScheduleSeparationSnippet(t *testing.T) {
	for _, name := range []string{"exp", "sum", "var_mean", "slice", "define_tensor"} {
		op := findOp(t, name)
		checked := false
		for sample := range op.Samples(op, F32, false) {
			require.NoErrorf(t, conformance.RunScheduleSeparation(op, F32, sample), "op %s", name)
			checked = true
			break
		}
		require.Truef(t, checked, "op %s produced no samples", name)
	}
}
