// Package conformance is the operator-conformance engine: operator
// descriptors (OpInfo), sample generators, the execution adapter that maps
// sample arguments onto fusion definitions, the three verification snippets
// and the harness driver that iterates operator x dtype x sample
// combinations with per-sample failure isolation.
package conformance

import (
	"github.com/gomlx/exceptions"

	"github.com/fuselab/opcheck/fusion"
	"github.com/fuselab/opcheck/types/tensors"
)

// ArgKind tags a positional sample argument with how the execution adapter
// must treat it when it is marked symbolic. The tag is fixed when the
// generator constructs the argument, so the adapter never inspects runtime
// types.
type ArgKind int

const (
	// ArgTensor becomes a traced tensor input.
	ArgTensor ArgKind = iota
	// ArgIntVector becomes a traced integer-vector placeholder.
	ArgIntVector
	// ArgScalar becomes a traced scalar placeholder.
	ArgScalar
)

// Arg is one positional argument of a sample: a tagged, immutable value.
type Arg struct {
	kind   ArgKind
	tensor *tensors.Tensor
	ints   []int64
	scalar any
}

// TensorArg wraps a tensor argument.
func TensorArg(t *tensors.Tensor) Arg {
	if t == nil {
		exceptions.Panicf("conformance.TensorArg: tensor is nil")
	}
	return Arg{kind: ArgTensor, tensor: t}
}

// IntsArg wraps an integer-vector argument. A nil vector is legal and means
// "not specified" (e.g. a full reduction).
func IntsArg(v []int64) Arg {
	return Arg{kind: ArgIntVector, ints: v}
}

// ScalarArg wraps any non-tensor, non-vector argument.
func ScalarArg(v any) Arg {
	return Arg{kind: ArgScalar, scalar: v}
}

// Kind returns the argument's tag.
func (a Arg) Kind() ArgKind { return a.kind }

// Tensor returns the wrapped tensor, or nil for non-tensor arguments.
func (a Arg) Tensor() *tensors.Tensor { return a.tensor }

// Value returns the argument's original value, the form reference functions
// and concrete pass-through consume. An unspecified integer vector yields an
// untyped nil.
func (a Arg) Value() any {
	switch a.kind {
	case ArgTensor:
		return a.tensor
	case ArgIntVector:
		if a.ints == nil {
			return nil
		}
		return a.ints
	default:
		return a.scalar
	}
}

// SampleInput is one concrete set of arguments exercising an operator:
// ordered positional arguments plus keyword arguments. It is immutable once
// constructed and owned by a single test iteration.
type SampleInput struct {
	Args   []Arg
	Kwargs map[string]any

	// RequiresGrad records the gradient flag the sample was generated
	// under. The in-process tensors carry no autograd state, so the flag
	// never changes generated values; it is kept so descriptors and
	// failure records reflect the full generation arguments.
	RequiresGrad bool
}

// OriginalArgs returns the positional arguments in their original,
// unadapted form, for the reference path.
func (s SampleInput) OriginalArgs() []any {
	out := make([]any, len(s.Args))
	for ii, a := range s.Args {
		out[ii] = a.Value()
	}
	return out
}

// ErrorCase pairs a deliberately malformed sample with the error it must
// produce: a kind matched exactly and a message fragment matched by
// substring. A non-empty Skip documents why the case is not currently
// exercised; the driver records it instead of running it.
type ErrorCase struct {
	Name    string
	Sample  SampleInput
	Kind    fusion.ErrorKind
	Message string
	Skip    string
}
