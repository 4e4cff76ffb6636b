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
	"math"

	"github.com/pkg/errors"
)

// CheckClose verifies that the logical values of t and other match within
// atol + rtol*|other|, element by element. Dimensions must match; dtypes are
// deliberately not compared here, callers choose their dtype policy. When
// equalNaN is set, NaN compares equal to NaN.
//
// It returns nil when all elements are close, or an error naming the first
// mismatching index.
func (t *Tensor) CheckClose(other *Tensor, atol, rtol float64, equalNaN bool) error {
	if !t.shape.EqualDimensions(other.shape) {
		return errors.Errorf("dimensions mismatch: %s vs %s", t.shape, other.shape)
	}
	for idx := range t.shape.Iter() {
		got, want := t.At(idx...), other.At(idx...)
		gotNaN, wantNaN := math.IsNaN(got), math.IsNaN(want)
		if gotNaN || wantNaN {
			if gotNaN && wantNaN && equalNaN {
				continue
			}
			return errors.Errorf("values differ at %v: got %v, want %v", idx, got, want)
		}
		if diff := math.Abs(got - want); diff > atol+rtol*math.Abs(want) {
			return errors.Errorf("values differ at %v: got %v, want %v (diff=%g, atol=%g, rtol=%g)",
				idx, got, want, diff, atol, rtol)
		}
	}
	return nil
}

// Equal reports whether t and other have the same shape (dtype included) and
// identical logical values, treating NaN as equal to NaN. Layout (strides,
// contiguity) is not part of the comparison.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	return t.CheckClose(other, 0, 0, true) == nil
}
