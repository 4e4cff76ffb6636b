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

package tensors

import (
	"math/rand/v2"

	"github.com/gomlx/exceptions"

	"github.com/fuselab/opcheck/types/shapes"
)

// NewRand returns a deterministic random source for the given seed. Sample
// generators derive the seed from their own arguments so that regenerating a
// sequence yields identical tensors.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Uniform returns a contiguous tensor filled with values drawn uniformly
// from [low, high), quantized to the shape's dtype.
func Uniform(rng *rand.Rand, shape shapes.Shape, low, high float64) *Tensor {
	if high < low {
		exceptions.Panicf("tensors.Uniform: empty range [%g, %g)", low, high)
	}
	t := FromShape(shape)
	for ii := range t.flat {
		t.flat[ii] = Quantize(shape.DType, low+rng.Float64()*(high-low))
	}
	return t
}

// Noncontiguous returns a tensor with the given logical shape laid out
// non-contiguously: the backing buffer holds twice the elements along the
// last axis and the view skips every other one. Rank-0 and single-element
// shapes have no non-contiguous layout and fall back to Uniform.
func Noncontiguous(rng *rand.Rand, shape shapes.Shape, low, high float64) *Tensor {
	if shape.Rank() == 0 || shape.Size() <= 1 {
		return Uniform(rng, shape, low, high)
	}
	physDims := append([]int(nil), shape.Dimensions...)
	physDims[len(physDims)-1] *= 2
	physShape := shapes.Make(shape.DType, physDims...)
	backing := Uniform(rng, physShape, low, high)

	strides := physShape.ContiguousStrides()
	strides[shape.Rank()-1] = 2
	return backing.AsStrided(shape.Dimensions, strides, 0)
}
