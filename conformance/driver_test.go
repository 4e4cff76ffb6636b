package conformance_test

import (
	"iter"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuselab/opcheck/conformance"
	"github.com/fuselab/opcheck/fusion"
	"github.com/fuselab/opcheck/reference"
	"github.com/fuselab/opcheck/types/shapes"
	"github.com/fuselab/opcheck/types/tensors"
)

func TestHarnessRunsCleanOverRegistrySubset(t *testing.T) {
	registry := []*conformance.OpInfo{
		findOp(t, "sum"),
		findOp(t, "var_mean"),
		findOp(t, "slice"),
		findOp(t, "define_tensor"),
	}
	h := conformance.NewHarness(registry)
	report := h.Run()

	require.Truef(t, report.OK(), "unexpected failures:\n%s", report.Text())
	// sum/var_mean/slice: errors + consistency + separation over two dtypes
	// each; define_tensor: errors + separation over one dtype.
	assert.Equal(t, 20, report.Combinations)
	assert.Equal(t, report.Combinations, h.Combinations())
	assert.Equal(t, report.Combinations, report.Passed)
	// Reduction skips: 2 shapes x 3 disabled axis cases per dtype for sum
	// and var_mean; define_tensor: 2 disabled dimensionality cases.
	assert.Len(t, report.Skipped, 26)

	_, err := uuid.Parse(report.RunID)
	assert.NoError(t, err)
}

// trimmedSamples replaces the full unary battery with three tiny tensors so
// the failure-isolation tests stay fast. Values stay in [1, 2) to keep the
// shifted reference below clear of the tolerance.
func trimmedSamples(op *conformance.OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[conformance.SampleInput] {
	return func(yield func(conformance.SampleInput) bool) {
		rng := tensors.NewRand(61)
		for ii := 0; ii < 3; ii++ {
			t := tensors.Uniform(rng, shapes.Make(dtype, 4), 1, 2)
			sample := conformance.SampleInput{
				Args:         []conformance.Arg{conformance.TensorArg(t)},
				RequiresGrad: requiresGrad,
			}
			if !yield(sample) {
				return
			}
		}
	}
}

func TestHarnessShortCircuitsPerCombination(t *testing.T) {
	// A reference deliberately offset by 10 fails every consistency sample.
	shiftedReference := func(args []any, kwargs map[string]any) []*tensors.Tensor {
		out := reference.Unary("neg")(args, kwargs)
		for idx := range out[0].Shape().Iter() {
			out[0].Set(out[0].At(idx...)+10, idx...)
		}
		return out
	}
	broken := &conformance.OpInfo{
		Name: "neg",
		Op: func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node {
			return []*fusion.Node{fd.Unary("neg", args[0].(*fusion.Node))}
		},
		DTypes:        []dtypes.DType{F32},
		Domain:        conformance.FullDomain(),
		Reference:     shiftedReference,
		ReferenceType: conformance.RefStrict,
		Samples:       trimmedSamples,
	}

	h := conformance.NewHarness([]*conformance.OpInfo{broken})
	report := h.Run()

	// Consistency fails at the first sample and the combination stops
	// there; the separation combination still runs and passes.
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "neg", report.Failures[0].Op)
	assert.Equal(t, conformance.SnippetConsistency, report.Failures[0].Snippet)
	assert.Equal(t, 0, report.Failures[0].SampleIndex)
	assert.Equal(t, 2, report.Combinations)
	assert.Equal(t, 1, report.Passed)
}

func TestHarnessDeviceGate(t *testing.T) {
	h := conformance.NewHarness(conformance.DefaultRegistry())
	h.MinComputeCapability = fusion.CurrentDevice().Major + 1
	report := h.Run()
	assert.Equal(t, 0, report.Combinations)
	assert.True(t, report.OK())
}

func TestHarnessOnCombinationCallback(t *testing.T) {
	registry := []*conformance.OpInfo{findOp(t, "define_tensor")}
	h := conformance.NewHarness(registry)
	var seen []conformance.SnippetKind
	h.OnCombination = func(op string, dtype dtypes.DType, snippet conformance.SnippetKind) {
		assert.Equal(t, "define_tensor", op)
		seen = append(seen, snippet)
	}
	report := h.Run()
	require.True(t, report.OK(), report.Text())
	assert.Equal(t, []conformance.SnippetKind{
		conformance.SnippetErrors,
		conformance.SnippetSeparation,
	}, seen)
}
