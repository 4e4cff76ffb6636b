// Package fusion implements the scripting surface of the fusion system the
// conformance suite exercises: a Definition collects traced operations over
// placeholder values, transitions once from a defining state to a completed
// state, and then executes with concrete runtime arguments.
//
// Validation failures raise a structured *Error (see errors.go) through
// panic; callers establish failure boundaries with exceptions.Try. The state
// transition is one-way: any defining call made after completion fails with
// CompletedDefinitionMessage.
package fusion

import (
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fuselab/opcheck/types/shapes"
	"github.com/fuselab/opcheck/types/tensors"
	"github.com/fuselab/opcheck/types/xslices"
)

type definitionState int

const (
	stateDefining definitionState = iota
	stateCompleted
)

// Definition is a fusion definition under construction or ready to execute.
// Create one with NewDefinition, populate it while in the defining state
// (directly or through Define) and run it with Execute.
//
// A Definition is not safe for concurrent use; the conformance suite owns
// each instance exclusively within one sample iteration.
type Definition struct {
	state   definitionState
	nodes   []*Node
	params  []*Node
	outputs []*Node
}

// NewDefinition returns an empty definition in the defining state.
func NewDefinition() *Definition {
	return &Definition{}
}

// Define runs fn against the definition and then completes it. Completion is
// guaranteed even if fn panics, so a failed build still leaves the
// definition closed — mirroring a scoped acquisition. The panic propagates.
func (fd *Definition) Define(fn func(fd *Definition)) *Definition {
	defer fd.complete()
	fn(fd)
	return fd
}

// Complete transitions the definition to the completed state. Completing an
// already-completed definition is a no-op.
func (fd *Definition) Complete() { fd.complete() }

// Completed reports whether the one-way transition already happened.
func (fd *Definition) Completed() bool { return fd.state == stateCompleted }

func (fd *Definition) complete() {
	fd.state = stateCompleted
}

// assertDefining guards every defining entry point.
func (fd *Definition) assertDefining() {
	if fd.state != stateDefining {
		throwf(KindState, CompletedDefinitionMessage)
	}
}

// nodeKind discriminates what a Node computes.
type nodeKind int

const (
	kindParamTensor nodeKind = iota
	kindParamScalar
	kindParamVector
	kindDefinedTensor
	kindUnary
	kindBinary
	kindReduce
	kindVarMean
	kindProject
	kindSlice
)

// Node is a traced value inside a Definition: a placeholder for a runtime
// input or the result of an operation on other nodes.
type Node struct {
	fd    *Definition
	id    int
	kind  nodeKind
	shape shapes.Shape

	opName string
	inputs []*Node

	// Operation attributes.
	axes         []int // normalized reduction axes
	keepDim      bool
	correction   int64
	start, end   []int64
	projectIndex int

	// Placeholder attributes.
	paramIndex    int
	symbolicSizes []int64
	contiguity    []bool
	declaredDType dtypes.DType
}

// Shape returns the node's result shape as known at definition time.
// Placeholders declared with symbolic sizes report an invalid shape until
// execution.
func (n *Node) Shape() shapes.Shape { return n.shape }

// DType of the node's result.
func (n *Node) DType() dtypes.DType { return n.shape.DType }

func (fd *Definition) register(n *Node) *Node {
	n.fd = fd
	n.id = len(fd.nodes)
	fd.nodes = append(fd.nodes, n)
	return n
}

func (fd *Definition) registerParam(n *Node) *Node {
	n.paramIndex = len(fd.params)
	fd.register(n)
	fd.params = append(fd.params, n)
	return n
}

// assertOwned guards against mixing nodes from different definitions.
func (fd *Definition) assertOwned(n *Node) {
	if n == nil {
		throwf(KindValue, "operation received a nil traced value")
	}
	if n.fd != fd {
		throwf(KindValue, "operation received a traced value from a different definition")
	}
}

// FromTensor ingests an existing tensor as a traced input. The runtime value
// supplied at execution may use any layout, as long as its shape matches.
func (fd *Definition) FromTensor(t *tensors.Tensor) *Node {
	fd.assertDefining()
	if t == nil {
		throwf(KindValue, "from_tensor(): tensor is nil")
	}
	return fd.registerParam(&Node{kind: kindParamTensor, shape: t.Shape().Clone()})
}

// DefineScalar declares a scalar placeholder. The example value only fixes
// the dtype; the runtime value is supplied at execution.
func (fd *Definition) DefineScalar(example any) *Node {
	fd.assertDefining()
	var dtype dtypes.DType
	switch example.(type) {
	case bool:
		dtype = dtypes.Bool
	case float32, float64:
		dtype = dtypes.Float64
	case int, int32, int64, uint, uint32, uint64:
		dtype = dtypes.Int64
	default:
		incompatibleArguments("define_scalar")
	}
	return fd.registerParam(&Node{kind: kindParamScalar, shape: shapes.Scalar(dtype)})
}

// DefineVector declares an integer-vector placeholder of the same length as
// the example value.
func (fd *Definition) DefineVector(example any) *Node {
	fd.assertDefining()
	values := coerceIntSlice("define_vector", example)
	if len(values) == 0 {
		throwf(KindValue, "define_vector(): vector must not be empty")
	}
	return fd.registerParam(&Node{kind: kindParamVector, shape: shapes.Make(dtypes.Int64, len(values))})
}

// MaxTensorDims is the maximum dimensionality the fusion system accepts in
// DefineTensor.
const MaxTensorDims = 8

// minimumSymbolicSize is the smallest legal entry in DefineTensor sizes:
// -1 marks a symbolic extent.
const minimumSymbolicSize = -1

// DefineTensor declares a tensor input from symbolic sizes and per-dimension
// contiguity, the way the scripting interface defines fusion inputs that are
// not ingested from an existing tensor. Size entries: -1 symbolic, 0 zero
// element, 1 broadcast, >1 static. Broadcast dimensions carry no contiguity
// entry.
func (fd *Definition) DefineTensor(sizes, contiguity any, dtype dtypes.DType, staticSizes bool) *Node {
	fd.assertDefining()
	sizesI := coerceIntSlice("define_tensor", sizes)
	contiguityB := coerceBoolSlice("define_tensor", contiguity)

	if len(sizesI) == 0 || len(sizesI) > MaxTensorDims {
		throwf(KindValue, "The specified tensor dimensionality exceeds the max tensor size of %d", MaxTensorDims)
	}
	for ii, size := range sizesI {
		if size < minimumSymbolicSize {
			throwf(KindValue,
				"The value %d at index %d was neither symbolic(-1), zero_element(0), broadcast(1), or static(>1)",
				size, ii)
		}
	}
	nonBroadcast := 0
	for _, size := range sizesI {
		if size != 1 {
			nonBroadcast++
		}
	}
	if len(contiguityB) != nonBroadcast {
		throwf(KindValue, "The size of contiguity must equal to the number of non-broadcasting IterDomains")
	}
	_ = staticSizes
	return fd.registerParam(&Node{
		kind:          kindDefinedTensor,
		shape:         shapes.Invalid(),
		symbolicSizes: sizesI,
		contiguity:    contiguityB,
		declaredDType: dtype,
	})
}

// AddOutput registers a node as an output of the definition. Execution
// returns outputs in registration order.
func (fd *Definition) AddOutput(n *Node) {
	fd.assertDefining()
	fd.assertOwned(n)
	fd.outputs = append(fd.outputs, n)
}

// NumParams returns how many runtime arguments Execute expects.
func (fd *Definition) NumParams() int { return len(fd.params) }

// Execute runs the definition with the given runtime arguments, one per
// declared placeholder in declaration order: tensors for tensor
// placeholders, numbers for scalar placeholders, integer vectors for vector
// placeholders. A still-defining definition is completed first.
//
// It returns one tensor per registered output, or throws a structured
// *Error on failure.
func (fd *Definition) Execute(args ...any) []*tensors.Tensor {
	fd.complete()
	if len(args) != len(fd.params) {
		throwf(KindValue, "execute expected %d runtime arguments, got %d", len(fd.params), len(args))
	}
	if len(fd.outputs) == 0 {
		throwf(KindValue, "execute called on a definition with no outputs")
	}
	env := newEnv(fd, args)
	return xslices.Map(fd.outputs, env.eval)
}

// StagedDefinition pairs a definition stage with a schedule stage, the
// subclassing pattern the scripting interface offers for manual scheduling.
// The definition stage builds the computation and is completed before the
// schedule stage runs, so any defining call made from the schedule stage
// fails with CompletedDefinitionMessage.
type StagedDefinition struct {
	definition func(fd *Definition)
	schedule   func(fd *Definition)
}

// NewStaged returns a StagedDefinition with the given stages. The schedule
// stage may be nil.
func NewStaged(definition, schedule func(fd *Definition)) *StagedDefinition {
	return &StagedDefinition{definition: definition, schedule: schedule}
}

// Execute builds the definition stage, completes it, runs the schedule stage
// and then executes with the given runtime arguments.
func (sd *StagedDefinition) Execute(args ...any) []*tensors.Tensor {
	fd := NewDefinition()
	fd.Define(sd.definition)
	if sd.schedule != nil {
		sd.schedule(fd)
	}
	return fd.Execute(args...)
}
