package fusion

import (
	"math"

	"github.com/fuselab/opcheck/types/shapes"
	"github.com/fuselab/opcheck/types/xslices"
)

// unaryKernels holds the scalar kernels behind the elementwise unary
// operators. Results are quantized to the input dtype during execution.
var unaryKernels = map[string]func(float64) float64{
	"abs":        math.Abs,
	"acos":       math.Acos,
	"asin":       math.Asin,
	"atan":       math.Atan,
	"ceil":       math.Ceil,
	"cos":        math.Cos,
	"cosh":       math.Cosh,
	"exp":        math.Exp,
	"expm1":      math.Expm1,
	"floor":      math.Floor,
	"log":        math.Log,
	"log1p":      math.Log1p,
	"neg":        func(x float64) float64 { return -x },
	"reciprocal": func(x float64) float64 { return 1 / x },
	"round":      math.RoundToEven,
	"rsqrt":      func(x float64) float64 { return 1 / math.Sqrt(x) },
	"sigmoid":    func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
	"sin":        math.Sin,
	"sinh":       math.Sinh,
	"sqrt":       math.Sqrt,
	"tan":        math.Tan,
	"tanh":       math.Tanh,
	"trunc":      math.Trunc,
}

// UnaryOpNames returns the names of all elementwise unary operators, sorted.
func UnaryOpNames() []string {
	return xslices.SortedKeys(unaryKernels)
}

// Unary traces the named elementwise unary operator over x.
func (fd *Definition) Unary(name string, x *Node) *Node {
	fd.assertDefining()
	fd.assertOwned(x)
	if _, ok := unaryKernels[name]; !ok {
		throwf(KindValue, "unknown unary operator %q", name)
	}
	return fd.register(&Node{
		kind:   kindUnary,
		opName: name,
		shape:  x.shape.Clone(),
		inputs: []*Node{x},
	})
}

// Tanh traces the hyperbolic tangent of x.
func (fd *Definition) Tanh(x *Node) *Node { return fd.Unary("tanh", x) }

// Add traces the elementwise sum of x and y. One of the operands may be a
// scalar, which broadcasts; otherwise dimensions must match.
func (fd *Definition) Add(x, y *Node) *Node {
	fd.assertDefining()
	fd.assertOwned(x)
	fd.assertOwned(y)
	shape := x.shape
	if x.shape.IsScalar() {
		shape = y.shape
	} else if !y.shape.IsScalar() && !x.shape.EqualDimensions(y.shape) {
		throwf(KindShape, "add(): operand dimensions %s and %s do not match", x.shape, y.shape)
	}
	return fd.register(&Node{
		kind:   kindBinary,
		opName: "add",
		shape:  shape.Clone(),
		inputs: []*Node{x, y},
	})
}

// normalizeReductionAxes validates and normalizes reduction axes against the
// input rank. A nil axes value selects all axes (full reduction).
func normalizeReductionAxes(rank int, axes []int64) []int {
	if axes == nil {
		return xslices.Iota(0, rank)
	}
	normalized := make([]int, 0, len(axes))
	seen := make(map[int]bool, len(axes))
	for _, axis := range axes {
		a := int(axis)
		if a < -rank || a >= rank {
			throwf(KindValue, "Reduction on invalid axis, received: %d however tensor rank is: %d", a, rank)
		}
		if a < 0 {
			a += rank
		}
		if seen[a] {
			throwf(KindValue, "Reduction axes are not unique")
		}
		seen[a] = true
		normalized = append(normalized, a)
	}
	return normalized
}

// Sum traces a sum reduction of x over the given axes (nil reduces all).
func (fd *Definition) Sum(x *Node, axes any, keepDim bool) *Node {
	return fd.reduction("sum", x, axes, keepDim)
}

// Max traces a max reduction of x over the given axes (nil reduces all).
func (fd *Definition) Max(x *Node, axes any, keepDim bool) *Node {
	return fd.reduction("max", x, axes, keepDim)
}

func (fd *Definition) reduction(name string, x *Node, axes any, keepDim bool) *Node {
	fd.assertDefining()
	fd.assertOwned(x)
	normalized := normalizeReductionAxes(x.shape.Rank(), coerceIntSlice(name, axes))
	return fd.register(&Node{
		kind:    kindReduce,
		opName:  name,
		shape:   x.shape.ReduceDims(normalized, keepDim),
		inputs:  []*Node{x},
		axes:    normalized,
		keepDim: keepDim,
	})
}

// VarMean traces the variance and mean of x over the given axes (nil reduces
// all), with the given correction (Bessel's correction when 1). It returns
// the variance and mean nodes, in that order.
func (fd *Definition) VarMean(x *Node, axes any, correction any, keepDim bool) (variance, mean *Node) {
	fd.assertDefining()
	fd.assertOwned(x)
	normalized := normalizeReductionAxes(x.shape.Rank(), coerceIntSlice("var_mean", axes))
	corr := int64(1)
	if correction != nil {
		corr = coerceInt("var_mean", correction)
	}
	pair := fd.register(&Node{
		kind:       kindVarMean,
		opName:     "var_mean",
		shape:      x.shape.ReduceDims(normalized, keepDim),
		inputs:     []*Node{x},
		axes:       normalized,
		keepDim:    keepDim,
		correction: corr,
	})
	variance = fd.register(&Node{kind: kindProject, shape: pair.shape.Clone(), inputs: []*Node{pair}, projectIndex: 0})
	mean = fd.register(&Node{kind: kindProject, shape: pair.shape.Clone(), inputs: []*Node{pair}, projectIndex: 1})
	return
}

// Slice traces the extraction of the sub-tensor
// x[start[0]:end[0], start[1]:end[1], ...]. Strides other than 1 are not
// supported. A nil strides value defaults to all-ones.
func (fd *Definition) Slice(x *Node, start, end, strides any) *Node {
	fd.assertDefining()
	fd.assertOwned(x)
	startI := coerceIntSlice("slice", start)
	endI := coerceIntSlice("slice", end)
	stridesI := coerceIntSlice("slice", strides)
	if stridesI == nil {
		stridesI = xslices.SliceWithValue(len(startI), int64(1))
	}

	if len(startI) != len(stridesI) {
		throwf(KindShape, "Slice start_indices and strides don't match! Start: %d, Stride: %d", len(startI), len(stridesI))
	}
	if len(startI) != len(endI) {
		throwf(KindShape, "Slice indexing attribute dimensions don't match! Start: %d, End: %d", len(startI), len(endI))
	}
	if x.shape.Rank() != len(startI) {
		throwf(KindShape, "Number of tensor dimensions does not match slice dimensions! Tensor-dims: %d, Slice-dims: %d",
			x.shape.Rank(), len(startI))
	}
	for _, s := range startI {
		if s < 0 {
			throwf(KindValue, "Slice operation start_indices must be greater-than-or-equal-to 0. Found: %v", startI)
		}
	}
	for ii, e := range endI {
		if e < startI[ii] {
			throwf(KindValue, "Slice operation end_indices must be greater-than-or-equal-to start_indices. Start: %v, End: %v",
				startI, endI)
		}
	}
	for _, s := range stridesI {
		if s != 1 {
			throwf(KindValue, "All slice operation strides must be of size 1. Found: %v", stridesI)
		}
	}
	dims := make([]int, len(startI))
	for ii := range startI {
		if endI[ii] > int64(x.shape.Dimensions[ii]) {
			throwf(KindValue, "Slice operation end_indices must be less-than-or-equal-to the tensor dimensions. End: %v, Dims: %v",
				endI, x.shape.Dimensions)
		}
		dims[ii] = int(endI[ii] - startI[ii])
	}
	return fd.register(&Node{
		kind:   kindSlice,
		opName: "slice",
		shape:  shapes.Make(x.DType(), dims...),
		inputs: []*Node{x},
		start:  startI,
		end:    endI,
	})
}
