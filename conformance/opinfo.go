package conformance

import (
	"iter"
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fuselab/opcheck/fusion"
	"github.com/fuselab/opcheck/reference"
)

// ReferenceType selects the comparison policy the consistency snippet
// applies between the fusion result and the reference result.
type ReferenceType int

const (
	// RefNone marks operators without a comparison reference; the
	// consistency snippet skips them.
	RefNone ReferenceType = iota
	// RefStrict compares in the sample's dtype: dtypes must match and
	// values must be close.
	RefStrict
	// RefPromote normalizes both results to float64 and reconciles
	// number-versus-zero-dim-array shape quirks before comparing values;
	// dtypes are not compared.
	RefPromote
)

func (r ReferenceType) String() string {
	switch r {
	case RefStrict:
		return "strict"
	case RefPromote:
		return "promote"
	}
	return "none"
}

// Domain bounds the values sample generators draw for an operator, keeping
// inputs inside the region where the operator is defined. Low is inclusive,
// High exclusive, matching the uniform fill.
type Domain struct {
	Low  float64
	High float64
}

// FullDomain places no restriction of its own; generators still clamp to
// their overflow-safe range.
func FullDomain() Domain {
	return Domain{Low: math.Inf(-1), High: math.Inf(1)}
}

// Clamp intersects the domain with [low, high).
func (d Domain) Clamp(low, high float64) (float64, float64) {
	return math.Max(d.Low, low), math.Min(d.High, high)
}

// OpFunc invokes the operator under test against a fusion definition. args
// are the adapted arguments produced by TranslateInputs (traced nodes for
// symbolic positions, raw values for concrete ones); kwargs pass through
// from the sample. It returns the output node(s) to register.
type OpFunc func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node

// SampleGenerator produces a lazy, finite, restartable sequence of valid
// samples. Restartable: calling it again with the same arguments yields an
// identical sequence.
type SampleGenerator func(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[SampleInput]

// ErrorGenerator produces the operator's malformed-input cases.
type ErrorGenerator func(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[ErrorCase]

// OpInfo describes one operator in the conformance registry: its callable,
// the dtypes it is tested under, its numeric domain, its generators and its
// reference-comparison configuration. Entries are built once at registry
// construction and never mutated afterwards.
type OpInfo struct {
	Name string
	Op   OpFunc

	DTypes []dtypes.DType
	Domain Domain

	// Reference is the ground-truth callable, nil when the operator has no
	// comparison reference. ReferenceType selects the comparison policy.
	Reference     reference.Func
	ReferenceType ReferenceType

	// IsFusionInputOp marks operators that produce a fusion input rather
	// than consume one; the adapter builds their definitions by adding the
	// produced input to the sample's first tensor argument.
	IsFusionInputOp bool

	// SymbolicParams marks, per positional argument, whether it becomes a
	// traced placeholder (true) or passes through as a concrete value
	// (false). Nil means all-symbolic. When set, its length must equal the
	// argument count of every sample the operator consumes; the adapter
	// checks this at first use.
	SymbolicParams []bool

	Samples      SampleGenerator
	ErrorSamples ErrorGenerator
}

// symbolicList resolves the per-argument symbolic markers for a sample with
// n positional arguments.
func (op *OpInfo) symbolicList(n int) []bool {
	if op.SymbolicParams == nil {
		all := make([]bool, n)
		for ii := range all {
			all[ii] = true
		}
		return all
	}
	if len(op.SymbolicParams) != n {
		exceptions.Panicf("conformance: %s declares %d symbolic parameter markers but the sample has %d arguments",
			op.Name, len(op.SymbolicParams), n)
	}
	return op.SymbolicParams
}
