package conformance

import (
	"math"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fuselab/opcheck/fusion"
	"github.com/fuselab/opcheck/reference"
)

var (
	floatingDTypes  = []dtypes.DType{dtypes.Float16, dtypes.Float32, dtypes.Float64}
	reductionDTypes = []dtypes.DType{dtypes.Float32, dtypes.Float64}
)

// unaryDomains restricts generated values to where the operator is defined.
// Operators absent from the map accept the full clamped range.
var unaryDomains = map[string]Domain{
	"acos":  {Low: -1, High: 1},
	"asin":  {Low: -1, High: 1},
	"log":   {Low: 0, High: math.Inf(1)},
	"log1p": {Low: -1, High: math.Inf(1)},
	"rsqrt": {Low: 0, High: math.Inf(1)},
	"sqrt":  {Low: 0, High: math.Inf(1)},
}

func unaryOpInfo(name string) *OpInfo {
	domain, ok := unaryDomains[name]
	if !ok {
		domain = FullDomain()
	}
	return &OpInfo{
		Name: name,
		Op: func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node {
			return []*fusion.Node{fd.Unary(name, args[0].(*fusion.Node))}
		},
		DTypes:        floatingDTypes,
		Domain:        domain,
		Reference:     reference.Unary(name),
		ReferenceType: RefStrict,
		Samples:       ElementwiseUnaryGenerator,
	}
}

func sumOpInfo() *OpInfo {
	return &OpInfo{
		Name: "sum",
		Op: func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node {
			keepDim, _ := args[2].(bool)
			return []*fusion.Node{fd.Sum(args[0].(*fusion.Node), args[1], keepDim)}
		},
		DTypes:         reductionDTypes,
		Domain:         FullDomain(),
		Reference:      reference.Sum(),
		ReferenceType:  RefStrict,
		SymbolicParams: []bool{true, false, false},
		Samples:        ReductionGenerator,
		ErrorSamples:   ReductionErrorGenerator,
	}
}

func maxOpInfo() *OpInfo {
	return &OpInfo{
		Name: "max",
		Op: func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node {
			keepDim, _ := args[2].(bool)
			return []*fusion.Node{fd.Max(args[0].(*fusion.Node), args[1], keepDim)}
		},
		DTypes:         reductionDTypes,
		Domain:         FullDomain(),
		Reference:      reference.Max(),
		ReferenceType:  RefStrict,
		SymbolicParams: []bool{true, false, false},
		Samples:        ReductionGenerator,
	}
}

func varMeanOpInfo() *OpInfo {
	return &OpInfo{
		Name: "var_mean",
		Op: func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node {
			keepDim, _ := kwargs["keepdim"].(bool)
			variance, mean := fd.VarMean(args[0].(*fusion.Node), args[1], kwargs["correction"], keepDim)
			return []*fusion.Node{variance, mean}
		},
		DTypes:         reductionDTypes,
		Domain:         FullDomain(),
		Reference:      reference.VarMean(),
		ReferenceType:  RefPromote,
		SymbolicParams: []bool{true, false},
		Samples:        VarMeanGenerator,
		ErrorSamples:   ReductionErrorGenerator,
	}
}

func sliceOpInfo() *OpInfo {
	return &OpInfo{
		Name: "slice",
		Op: func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node {
			x := args[0].(*fusion.Node)
			return []*fusion.Node{fd.Slice(x, kwargs["start_indices"], kwargs["end_indices"], kwargs["strides"])}
		},
		DTypes:        reductionDTypes,
		Domain:        FullDomain(),
		Reference:     reference.Slice(),
		ReferenceType: RefStrict,
		Samples:       SliceGenerator,
		ErrorSamples:  SliceErrorGenerator,
	}
}

func defineTensorOpInfo() *OpInfo {
	return &OpInfo{
		Name: "define_tensor",
		Op: func(fd *fusion.Definition, args []any, kwargs map[string]any) []*fusion.Node {
			dtype := dtypes.Float32
			if d, ok := kwargs["dtype"].(dtypes.DType); ok {
				dtype = d
			}
			staticSizes, _ := kwargs["static_sizes"].(bool)
			return []*fusion.Node{
				fd.DefineTensor(kwargs["symbolic_sizes"], kwargs["contiguity"], dtype, staticSizes),
			}
		},
		DTypes:          []dtypes.DType{dtypes.Float32},
		Domain:          FullDomain(),
		ReferenceType:   RefNone,
		IsFusionInputOp: true,
		Samples:         DefineTensorGenerator,
		ErrorSamples:    DefineTensorErrorGenerator,
	}
}

// DefaultRegistry builds the full operator registry: every elementwise unary
// operator the fusion surface exposes, the reductions, var_mean, slice and
// the define_tensor input operator. Entries are immutable after
// construction.
func DefaultRegistry() []*OpInfo {
	registry := make([]*OpInfo, 0, len(fusion.UnaryOpNames())+5)
	for _, name := range fusion.UnaryOpNames() {
		registry = append(registry, unaryOpInfo(name))
	}
	registry = append(registry,
		sumOpInfo(),
		maxOpInfo(),
		varMeanOpInfo(),
		sliceOpInfo(),
		defineTensorOpInfo(),
	)
	return registry
}

// FindOp returns the registry entry with the given name, or nil.
func FindOp(registry []*OpInfo, name string) *OpInfo {
	for _, op := range registry {
		if op.Name == name {
			return op
		}
	}
	return nil
}
