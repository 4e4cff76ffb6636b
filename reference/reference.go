// Package reference implements the pure-Go ground-truth operators the
// conformance suite compares fusion execution against.
//
// Two reference families exist, selected per operator by its descriptor:
//
//   - Strict: kernels compute in the sample's dtype (results are quantized
//     after every elementwise step), and the comparison checks dtypes.
//   - Promote: kernels compute and return float64 regardless of the
//     sample's dtype, the way numeric libraries with value-promotion
//     semantics behave; the comparison normalizes dtypes before checking.
//
// Reference functions receive the sample's original, unadapted arguments.
// They are only ever fed valid samples, so argument handling is permissive.
package reference

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fuselab/opcheck/types/shapes"
	"github.com/fuselab/opcheck/types/tensors"
	"github.com/fuselab/opcheck/types/xslices"
)

// Func computes the reference result(s) for a sample's original arguments.
type Func func(args []any, kwargs map[string]any) []*tensors.Tensor

// unaryKernels is the reference's own kernel table, maintained
// independently from the system under test.
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
	"sigmoid":    func(x float64) float64 { return 0.5 * (1 + math.Tanh(x/2)) },
	"sin":        math.Sin,
	"sinh":       math.Sinh,
	"sqrt":       math.Sqrt,
	"tan":        math.Tan,
	"tanh":       math.Tanh,
	"trunc":      math.Trunc,
}

func tensorArg(args []any, index int) *tensors.Tensor {
	t, ok := args[index].(*tensors.Tensor)
	if !ok {
		exceptions.Panicf("reference: argument %d is not a tensor (got %T)", index, args[index])
	}
	return t
}

// Unary returns the strict-family reference for the named elementwise
// operator.
func Unary(name string) Func {
	kernel, ok := unaryKernels[name]
	if !ok {
		exceptions.Panicf("reference.Unary: unknown operator %q", name)
	}
	return func(args []any, kwargs map[string]any) []*tensors.Tensor {
		in := tensorArg(args, 0)
		out := tensors.FromShape(in.Shape().Clone())
		for idx := range in.Shape().Iter() {
			out.Set(kernel(in.At(idx...)), idx...)
		}
		return []*tensors.Tensor{out}
	}
}

// reductionAxes resolves the sample's axis argument: nil means all axes.
// Negative axes count from the end.
func reductionAxes(rank int, value any) []int {
	raw := intSlice(value)
	if raw == nil {
		return xslices.Iota(0, rank)
	}
	axes := make([]int, len(raw))
	for ii, a := range raw {
		if a < 0 {
			a += int64(rank)
		}
		axes[ii] = int(a)
	}
	return axes
}

// intSlice converts the integer-vector representations samples carry.
func intSlice(value any) []int64 {
	switch v := value.(type) {
	case nil:
		return nil
	case []int64:
		return v
	case []int:
		out := make([]int64, len(v))
		for ii, e := range v {
			out[ii] = int64(e)
		}
		return out
	}
	exceptions.Panicf("reference: unsupported integer vector %T", value)
	return nil
}

// Sum returns the strict-family sum-reduction reference. Sample layout:
// (tensor, axes, keepDim, dtype) with axes possibly nil.
func Sum() Func {
	return reduction("sum")
}

// Max returns the strict-family max-reduction reference.
func Max() Func {
	return reduction("max")
}

func reduction(op string) Func {
	return func(args []any, kwargs map[string]any) []*tensors.Tensor {
		in := tensorArg(args, 0)
		var axesArg any
		if len(args) > 1 {
			axesArg = args[1]
		}
		keepDim := false
		if len(args) > 2 {
			if b, ok := args[2].(bool); ok {
				keepDim = b
			}
		}
		axes := reductionAxes(in.Rank(), axesArg)
		outShape := in.Shape().ReduceDims(axes, keepDim)
		acc := make([]float64, outShape.Size())
		if op == "max" {
			for ii := range acc {
				acc[ii] = math.Inf(-1)
			}
		}
		outStrides := outShape.ContiguousStrides()
		for idx := range in.Shape().Iter() {
			pos := cellPosition(idx, axes, keepDim, outStrides)
			v := in.At(idx...)
			switch op {
			case "sum":
				acc[pos] += v
			case "max":
				if v > acc[pos] || math.IsNaN(v) {
					acc[pos] = v
				}
			}
		}
		return []*tensors.Tensor{tensors.FromFlat(outShape, acc)}
	}
}

// cellPosition maps an input index to the flat position of its reduction
// cell.
func cellPosition(idx []int, axes []int, keepDim bool, outStrides []int) int {
	reduced := make(map[int]bool, len(axes))
	for _, a := range axes {
		reduced[a] = true
	}
	pos, outAxis := 0, 0
	for axis, i := range idx {
		if reduced[axis] {
			if keepDim {
				outAxis++
			}
			continue
		}
		pos += i * outStrides[outAxis]
		outAxis++
	}
	return pos
}

// VarMean returns the promote-family var_mean reference: a two-pass
// variance and mean over the given axes, computed and returned as float64.
// Sample layout: (tensor, axes) positional, correction and keepDim as
// keyword arguments.
func VarMean() Func {
	return func(args []any, kwargs map[string]any) []*tensors.Tensor {
		in := tensorArg(args, 0)
		var axesArg any
		if len(args) > 1 {
			axesArg = args[1]
		}
		axes := reductionAxes(in.Rank(), axesArg)
		correction := int64(1)
		if c, ok := kwargs["correction"]; ok {
			switch v := c.(type) {
			case int:
				correction = int64(v)
			case int64:
				correction = v
			}
		}
		keepDim := false
		if k, ok := kwargs["keepdim"]; ok {
			keepDim, _ = k.(bool)
		}

		outShape := in.Shape().ReduceDims(axes, keepDim).WithDType(dtypes.Float64)
		sums := make([]float64, outShape.Size())
		counts := make([]float64, outShape.Size())
		outStrides := outShape.ContiguousStrides()
		for idx := range in.Shape().Iter() {
			pos := cellPosition(idx, axes, keepDim, outStrides)
			sums[pos] += in.At(idx...)
			counts[pos]++
		}
		means := make([]float64, len(sums))
		for ii := range sums {
			means[ii] = sums[ii] / counts[ii]
		}
		// Second pass: squared deviations from the mean.
		deviations := make([]float64, len(sums))
		for idx := range in.Shape().Iter() {
			pos := cellPosition(idx, axes, keepDim, outStrides)
			d := in.At(idx...) - means[pos]
			deviations[pos] += d * d
		}
		variances := make([]float64, len(sums))
		for ii := range deviations {
			variances[ii] = deviations[ii] / (counts[ii] - float64(correction))
		}
		return []*tensors.Tensor{
			tensors.FromFlat(outShape, variances),
			tensors.FromFlat(outShape, means),
		}
	}
}

// Slice returns the strict-family slice-extraction reference. The indices
// come as keyword arguments start_indices/end_indices (strides, when
// present, must be all ones and is ignored).
func Slice() Func {
	return func(args []any, kwargs map[string]any) []*tensors.Tensor {
		in := tensorArg(args, 0)
		start := intSlice(kwargs["start_indices"])
		end := intSlice(kwargs["end_indices"])
		dims := make([]int, len(start))
		for ii := range start {
			dims[ii] = int(end[ii] - start[ii])
		}
		out := tensors.FromShape(shapes.Make(in.DType(), dims...))
		inIdx := make([]int, len(start))
		for idx := range out.Shape().Iter() {
			for axis := range idx {
				inIdx[axis] = idx[axis] + int(start[axis])
			}
			out.Set(in.At(inIdx...), idx...)
		}
		return []*tensors.Tensor{out}
	}
}
