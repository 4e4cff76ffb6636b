/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package tensors implements the concrete strided tensors exchanged between
// sample generators, the fusion definition under test and the reference
// kernels.
//
// A Tensor is a view (shape, strides, offset) over a flat buffer. Values are
// stored canonically as float64 and quantized to the tensor's DType on every
// write, so a Float16 tensor holds exactly the values a native float16 buffer
// would (github.com/x448/float16 does the rounding). This keeps the whole
// conformance suite on a single storage representation while remaining
// faithful to each dtype's precision.
//
// Views may use arbitrary strides, including stride 0 (broadcast) and
// overlapping windows, mirroring what the fusion system accepts as input.
// Views are treated as read-only by the suite.
package tensors

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/fuselab/opcheck/types/shapes"
)

// Tensor is a strided view over a flat float64 buffer, tagged with a Shape
// (dtype + dimensions). The zero value is not usable; see FromShape, Uniform
// and AsStrided.
type Tensor struct {
	shape   shapes.Shape
	flat    []float64
	strides []int
	offset  int
}

// FromShape returns a contiguous zero-initialized tensor of the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		panic(errors.New("tensors.FromShape: invalid shape"))
	}
	return &Tensor{
		shape:   shape.Clone(),
		flat:    make([]float64, shape.Size()),
		strides: shape.ContiguousStrides(),
	}
}

// FromFlat returns a contiguous tensor of the given shape with the given
// row-major values, quantized to the shape's dtype.
func FromFlat(shape shapes.Shape, values []float64) *Tensor {
	if len(values) != shape.Size() {
		exceptions.Panicf("tensors.FromFlat: shape %s needs %d values, got %d", shape, shape.Size(), len(values))
	}
	t := FromShape(shape)
	for ii, v := range values {
		t.flat[ii] = Quantize(shape.DType, v)
	}
	return t
}

// FromScalar returns a rank-0 tensor holding the given value.
func FromScalar(dtype dtypes.DType, value float64) *Tensor {
	t := FromShape(shapes.Scalar(dtype))
	t.flat[0] = Quantize(dtype, value)
	return t
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor's elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of logical elements, the product of the dimensions.
func (t *Tensor) Size() int { return t.shape.Size() }

// Strides returns the element strides per axis of this view.
func (t *Tensor) Strides() []int { return t.strides }

// Offset returns the element offset of this view into its backing buffer.
func (t *Tensor) Offset() int { return t.offset }

// IsContiguous reports whether the view is a dense row-major layout with
// offset 0.
func (t *Tensor) IsContiguous() bool {
	if t.offset != 0 {
		return false
	}
	want := t.shape.ContiguousStrides()
	for axis, s := range t.strides {
		if t.shape.Dimensions[axis] > 1 && s != want[axis] {
			return false
		}
	}
	return true
}

// flatIndex translates a logical multi-index into a position in the backing
// buffer.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != t.Rank() {
		exceptions.Panicf("tensor %s indexed with %d indices", t.shape, len(indices))
	}
	pos := t.offset
	for axis, idx := range indices {
		if idx < 0 || idx >= t.shape.Dimensions[axis] {
			exceptions.Panicf("tensor %s index %v out-of-bounds at axis %d", t.shape, indices, axis)
		}
		pos += idx * t.strides[axis]
	}
	return pos
}

// At returns the element at the given multi-index. Scalars take no indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.flat[t.flatIndex(indices)]
}

// Set stores the value, quantized to the tensor's dtype, at the given
// multi-index.
func (t *Tensor) Set(value float64, indices ...int) {
	t.flat[t.flatIndex(indices)] = Quantize(t.shape.DType, value)
}

// AsStrided returns a view over the same backing buffer with the given
// dimensions, element strides and offset. Strides may be 0 (broadcast) or
// describe overlapping windows. It panics if the view would reach outside
// the backing buffer.
func (t *Tensor) AsStrided(dimensions, strides []int, offset int) *Tensor {
	if len(dimensions) != len(strides) {
		exceptions.Panicf("tensors.AsStrided: %d dimensions but %d strides", len(dimensions), len(strides))
	}
	maxPos := offset
	for axis, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("tensors.AsStrided: dimension %d at axis %d", dim, axis)
		}
		if strides[axis] < 0 {
			exceptions.Panicf("tensors.AsStrided: negative stride %d at axis %d", strides[axis], axis)
		}
		maxPos += (dim - 1) * strides[axis]
	}
	if offset < 0 || maxPos >= len(t.flat) {
		exceptions.Panicf("tensors.AsStrided: view (dims=%v strides=%v offset=%d) reaches element %d, backing buffer has %d",
			dimensions, strides, offset, maxPos, len(t.flat))
	}
	view := &Tensor{
		shape:   shapes.Make(t.shape.DType, dimensions...),
		flat:    t.flat,
		strides: append([]int(nil), strides...),
		offset:  offset,
	}
	return view
}

// Materialize returns a compact contiguous copy of the view, same shape and
// dtype.
func (t *Tensor) Materialize() *Tensor {
	out := FromShape(t.shape)
	pos := 0
	for idx := range t.shape.Iter() {
		out.flat[pos] = t.At(idx...)
		pos++
	}
	return out
}

// Values returns the logical elements in row-major order as a fresh slice.
func (t *Tensor) Values() []float64 {
	out := make([]float64, 0, t.Size())
	for idx := range t.shape.Iter() {
		out = append(out, t.At(idx...))
	}
	return out
}

// ConvertTo returns a contiguous copy quantized to the given dtype.
func (t *Tensor) ConvertTo(dtype dtypes.DType) *Tensor {
	out := FromShape(t.shape.WithDType(dtype))
	pos := 0
	for idx := range t.shape.Iter() {
		out.flat[pos] = Quantize(dtype, t.At(idx...))
		pos++
	}
	return out
}

// String prints the shape and up to 8 leading values.
func (t *Tensor) String() string {
	values := t.Values()
	const maxShown = 8
	suffix := ""
	if len(values) > maxShown {
		values = values[:maxShown]
		suffix = " ..."
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	return fmt.Sprintf("%s{%s%s}", t.shape, strings.Join(parts, " "), suffix)
}

// Quantize rounds a value to what the given dtype can represent: float16
// rounding for Float16, float32 rounding for Float32, truncation for integer
// dtypes, 0/1 for Bool. Float64 values pass through unchanged.
func Quantize(dtype dtypes.DType, v float64) float64 {
	switch dtype {
	case dtypes.Float64:
		return v
	case dtypes.Float32:
		return float64(float32(v))
	case dtypes.Float16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case dtypes.Int64, dtypes.Int32:
		return float64(int64(v))
	case dtypes.Bool:
		if v != 0 {
			return 1
		}
		return 0
	}
	exceptions.Panicf("tensors.Quantize: unsupported dtype %s", dtype)
	return 0
}
