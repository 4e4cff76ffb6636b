package fusion

import (
	"math"

	"github.com/fuselab/opcheck/types/tensors"
)

// env holds the runtime state of one Execute call: the bound runtime
// arguments and the memoized node results. Each execution owns its env
// exclusively and discards it on completion.
type env struct {
	fd    *Definition
	args  []any
	memo  map[*Node]*tensors.Tensor
	pairs map[*Node][2]*tensors.Tensor
}

func newEnv(fd *Definition, args []any) *env {
	return &env{
		fd:    fd,
		args:  args,
		memo:  make(map[*Node]*tensors.Tensor),
		pairs: make(map[*Node][2]*tensors.Tensor),
	}
}

func (e *env) eval(n *Node) *tensors.Tensor {
	if t, ok := e.memo[n]; ok {
		return t
	}
	var result *tensors.Tensor
	switch n.kind {
	case kindParamTensor:
		result = e.bindTensor(n)
	case kindParamScalar:
		result = e.bindScalar(n)
	case kindParamVector:
		throwf(KindValue, "vector placeholder used as a tensor value")
	case kindDefinedTensor:
		result = e.bindDefinedTensor(n)
	case kindUnary:
		result = e.evalUnary(n)
	case kindBinary:
		result = e.evalBinary(n)
	case kindReduce:
		result = e.evalReduce(n)
	case kindProject:
		result = e.evalVarMean(n.inputs[0])[n.projectIndex]
	case kindVarMean:
		throwf(KindValue, "var_mean pair used directly as a tensor value")
	case kindSlice:
		result = e.evalSlice(n)
	default:
		throwf(KindValue, "cannot evaluate node kind %d", int(n.kind))
	}
	e.memo[n] = result
	return result
}

func (e *env) bindTensor(n *Node) *tensors.Tensor {
	t, ok := e.args[n.paramIndex].(*tensors.Tensor)
	if !ok {
		throwf(KindType, "execute(): runtime argument %d must be a tensor", n.paramIndex)
	}
	if !t.Shape().EqualDimensions(n.shape) {
		throwf(KindShape, "execute(): runtime argument %d has dimensions %s, definition declared %s",
			n.paramIndex, t.Shape(), n.shape)
	}
	return t
}

func (e *env) bindScalar(n *Node) *tensors.Tensor {
	switch v := e.args[n.paramIndex].(type) {
	case float64:
		return tensors.FromScalar(n.shape.DType, v)
	case float32:
		return tensors.FromScalar(n.shape.DType, float64(v))
	case bool:
		value := 0.0
		if v {
			value = 1.0
		}
		return tensors.FromScalar(n.shape.DType, value)
	case int, int32, int64, uint, uint32, uint64:
		return tensors.FromScalar(n.shape.DType, float64(coerceInt("execute", v)))
	}
	throwf(KindType, "execute(): runtime argument %d must be a scalar", n.paramIndex)
	return nil
}

func (e *env) bindDefinedTensor(n *Node) *tensors.Tensor {
	t, ok := e.args[n.paramIndex].(*tensors.Tensor)
	if !ok {
		throwf(KindType, "execute(): runtime argument %d must be a tensor", n.paramIndex)
	}
	if t.Rank() != len(n.symbolicSizes) {
		throwf(KindShape, "execute(): runtime argument %d has rank %d, define_tensor declared %d",
			n.paramIndex, t.Rank(), len(n.symbolicSizes))
	}
	for axis, size := range n.symbolicSizes {
		if size >= 0 && int64(t.Shape().Dimensions[axis]) != size {
			throwf(KindShape, "execute(): runtime argument %d dimension %d is %d, define_tensor declared %d",
				n.paramIndex, axis, t.Shape().Dimensions[axis], size)
		}
	}
	return t
}

func (e *env) evalUnary(n *Node) *tensors.Tensor {
	in := e.eval(n.inputs[0])
	kernel := unaryKernels[n.opName]
	out := tensors.FromShape(in.Shape().Clone())
	for idx := range in.Shape().Iter() {
		out.Set(kernel(in.At(idx...)), idx...)
	}
	return out
}

func (e *env) evalBinary(n *Node) *tensors.Tensor {
	x := e.eval(n.inputs[0])
	y := e.eval(n.inputs[1])
	out := tensors.FromShape(n.shape.Clone())
	for idx := range n.shape.Iter() {
		out.Set(broadcastAt(x, idx)+broadcastAt(y, idx), idx...)
	}
	return out
}

// broadcastAt reads a value from t at idx, broadcasting scalars.
func broadcastAt(t *tensors.Tensor, idx []int) float64 {
	if t.Rank() == 0 {
		return t.At()
	}
	return t.At(idx...)
}

func (e *env) evalReduce(n *Node) *tensors.Tensor {
	in := e.eval(n.inputs[0])
	outShape := n.shape
	acc := make([]float64, outShape.Size())
	if n.opName == "max" {
		for ii := range acc {
			acc[ii] = math.Inf(-1)
		}
	}
	inShape := in.Shape()
	outStrides := outShape.ContiguousStrides()
	for idx := range inShape.Iter() {
		pos := reducePosition(idx, n.axes, n.keepDim, outStrides)
		v := in.At(idx...)
		switch n.opName {
		case "sum":
			acc[pos] += v
		case "max":
			if v > acc[pos] || math.IsNaN(v) {
				acc[pos] = v
			}
		}
	}
	return tensors.FromFlat(outShape.Clone(), acc)
}

// reducePosition maps an input multi-index to the flat position of its
// reduction cell in the output.
func reducePosition(idx []int, axes []int, keepDim bool, outStrides []int) int {
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

// evalVarMean computes the [variance, mean] pair behind both projections of
// a var_mean node. Accumulation happens in float64; the results are
// quantized to the input dtype.
func (e *env) evalVarMean(n *Node) [2]*tensors.Tensor {
	if pair, ok := e.pairs[n]; ok {
		return pair
	}
	in := e.eval(n.inputs[0])
	outShape := n.shape
	sums := make([]float64, outShape.Size())
	sumSquares := make([]float64, outShape.Size())
	inShape := in.Shape()
	outStrides := outShape.ContiguousStrides()
	for idx := range inShape.Iter() {
		pos := reducePosition(idx, n.axes, n.keepDim, outStrides)
		v := in.At(idx...)
		sums[pos] += v
		sumSquares[pos] += v * v
	}
	count := 1
	for _, axis := range n.axes {
		count *= inShape.Dimensions[axis]
	}
	denominator := float64(int64(count) - n.correction)
	variances := make([]float64, len(sums))
	means := make([]float64, len(sums))
	for ii := range sums {
		mean := sums[ii] / float64(count)
		means[ii] = mean
		variances[ii] = (sumSquares[ii] - float64(count)*mean*mean) / denominator
	}
	pair := [2]*tensors.Tensor{
		tensors.FromFlat(outShape.Clone(), variances),
		tensors.FromFlat(outShape.Clone(), means),
	}
	e.pairs[n] = pair
	return pair
}

func (e *env) evalSlice(n *Node) *tensors.Tensor {
	in := e.eval(n.inputs[0])
	out := tensors.FromShape(n.shape.Clone())
	inIdx := make([]int, len(n.start))
	for idx := range n.shape.Iter() {
		for axis := range idx {
			inIdx[axis] = idx[axis] + int(n.start[axis])
		}
		out.Set(in.At(inIdx...), idx...)
	}
	return out
}
