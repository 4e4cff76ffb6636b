package conformance

import (
	"fmt"
	"hash/fnv"
	"iter"
	"math"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/fuselab/opcheck/fusion"
	"github.com/fuselab/opcheck/types/shapes"
	"github.com/fuselab/opcheck/types/tensors"
	"github.com/fuselab/opcheck/types/xslices"
)

// sampleSeed derives the deterministic random seed for one generator
// invocation from its own arguments, so regenerating a sequence yields
// identical tensors.
func sampleSeed(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// ElementwiseUnaryGenerator sweeps a fixed battery of shapes at contiguous
// layout, repeats them non-contiguously, and finishes with arbitrarily
// strided and offset views carved from a flat 500-element buffer. Values are
// drawn from the operator's domain intersected with [-9, 9] to keep composed
// operations from overflowing.
func ElementwiseUnaryGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[SampleInput] {
	return func(yield func(SampleInput) bool) {
		low, high := op.Domain.Clamp(-9, 9)
		rng := tensors.NewRand(sampleSeed(op.Name, dtype.String(), "elementwise_unary"))

		// TODO: restore size-zero shapes once zero-element reductions over
		// them are supported end to end.
		dimsBattery := [][]int{
			{},
			{11},
			{4, 4},
			{1024, 1024},
			{64, 64, 64},
		}

		for _, dims := range dimsBattery {
			t := tensors.Uniform(rng, shapes.Make(dtype, dims...), low, high)
			if !yield(SampleInput{Args: []Arg{TensorArg(t)}, RequiresGrad: requiresGrad}) {
				return
			}
		}
		for _, dims := range dimsBattery {
			t := tensors.Noncontiguous(rng, shapes.Make(dtype, dims...), low, high)
			if !yield(SampleInput{Args: []Arg{TensorArg(t)}, RequiresGrad: requiresGrad}) {
				return
			}
		}

		stridedCases := []struct {
			dims, strides []int
			offset        int
		}{
			{[]int{5, 6, 2}, []int{1, 1, 7}, 2},
			{[]int{5, 5, 4}, []int{1, 1, 7}, 2},
			{[]int{5, 5, 2}, []int{4, 5, 7}, 3},
			{[]int{5, 5, 2}, []int{5, 5, 7}, 3},
			{[]int{5, 5, 2}, []int{5, 5, 5}, 3},
			{[]int{9, 5, 2}, []int{0, 1, 7}, 3},
		}
		for _, c := range stridedCases {
			flat := tensors.Uniform(rng, shapes.Make(dtype, 500), low, high)
			view := flat.AsStrided(c.dims, c.strides, c.offset)
			if !yield(SampleInput{Args: []Arg{TensorArg(view)}, RequiresGrad: requiresGrad}) {
				return
			}
		}
	}
}

// DefineTensorGenerator yields the minimal valid tensor declaration; the
// schedule-separation snippet uses it to invoke the operator after the
// definition closed.
func DefineTensorGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[SampleInput] {
	return func(yield func(SampleInput) bool) {
		yield(SampleInput{
			Kwargs: map[string]any{
				"symbolic_sizes": []int64{-1},
				"contiguity":     []bool{true},
			},
			RequiresGrad: requiresGrad,
		})
	}
}

// DefineTensorErrorGenerator emits malformed shape/contiguity metadata
// combinations. The dimensionality-bounds cases are skippable until their
// diagnostics are finalized.
func DefineTensorErrorGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[ErrorCase] {
	const int64Max = math.MaxInt64

	cases := []ErrorCase{
		{
			Name: "size_contiguity_mismatch",
			Sample: SampleInput{Kwargs: map[string]any{
				"symbolic_sizes": []int64{-1, -1},
				"contiguity":     []bool{true, true, true},
				"dtype":          dtypes.Float32,
			}},
			Kind:    fusion.KindValue,
			Message: "The size of contiguity must equal to the number of non-broadcasting IterDomains",
		},
		{
			Name: "empty_tensor_size",
			Sample: SampleInput{Kwargs: map[string]any{
				"symbolic_sizes": []int64{},
				"contiguity":     []bool{},
			}},
			Kind:    fusion.KindValue,
			Message: "The specified tensor dimensionality exceeds the max tensor size",
			Skip:    "empty-dimensionality diagnostic is being reworked to name the zero-rank case",
		},
		{
			Name: "max_tensor_size",
			Sample: SampleInput{Kwargs: map[string]any{
				"symbolic_sizes": xslices.SliceWithValue(fusion.MaxTensorDims+1, int64(-1)),
				"contiguity":     xslices.SliceWithValue(fusion.MaxTensorDims+1, true),
			}},
			Kind:    fusion.KindValue,
			Message: "The specified tensor dimensionality exceeds the max tensor size",
			Skip:    "max-dimensionality diagnostic is being reworked alongside the empty-rank case",
		},
		{
			Name: "above_size_range",
			Sample: SampleInput{Kwargs: map[string]any{
				"symbolic_sizes": []uint64{uint64(int64Max) + 1},
				"contiguity":     []bool{true},
			}},
			Kind:    fusion.KindType,
			Message: "define_tensor(): incompatible function arguments",
		},
		{
			Name: "below_size_range",
			Sample: SampleInput{Kwargs: map[string]any{
				"symbolic_sizes": []int64{-2},
				"contiguity":     []bool{true},
			}},
			Kind:    fusion.KindValue,
			Message: "The value -2 at index 0 was neither symbolic(-1), zero_element(0), broadcast(1), or static(>1)",
		},
	}

	return func(yield func(ErrorCase) bool) {
		rng := tensors.NewRand(sampleSeed(op.Name, dtype.String(), "define_tensor_errors"))
		input := tensors.Uniform(rng, shapes.Make(dtype, 10, 10), -9, 9)
		for _, ec := range cases {
			ec.Sample.Args = []Arg{TensorArg(input)}
			ec.Sample.RequiresGrad = requiresGrad
			if !yield(ec) {
				return
			}
		}
	}
}

// SliceGenerator emits sub-tensor extractions over fixed shapes. Only unit
// strides are generated; the stride restriction is covered by the error
// generator.
func SliceGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[SampleInput] {
	cases := []struct {
		dims       []int
		start, end []int64
	}{
		{[]int{5, 7, 8}, []int64{1, 0, 3}, []int64{2, 6, 8}},
		{[]int{3}, []int64{1}, []int64{2}},
	}
	return func(yield func(SampleInput) bool) {
		rng := tensors.NewRand(sampleSeed(op.Name, dtype.String(), "slice"))
		for _, c := range cases {
			t := tensors.Uniform(rng, shapes.Make(dtype, c.dims...), -9, 9)
			sample := SampleInput{
				Args: []Arg{TensorArg(t)},
				Kwargs: map[string]any{
					"start_indices": c.start,
					"end_indices":   c.end,
				},
				RequiresGrad: requiresGrad,
			}
			if !yield(sample) {
				return
			}
		}
	}
}

// SliceErrorGenerator crosses two tensor shapes with seven malformed
// argument bundles: negative start, end before start, non-unit stride, and
// the pairwise dimension-count mismatches between tensor rank and the
// start/end/stride vectors.
func SliceErrorGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[ErrorCase] {
	type bundle struct {
		name                string
		start, end, strides []int64
		kind                fusion.ErrorKind
		message             string
	}
	bundles := []bundle{
		{"start_indices", []int64{-1, -2}, []int64{5, 5}, []int64{7, 7},
			fusion.KindValue, "Slice operation start_indices must be greater-than-or-equal-to 0."},
		{"end_indices", []int64{3, 4}, []int64{1, 2}, []int64{1, 1},
			fusion.KindValue, "Slice operation end_indices must be greater-than-or-equal-to start_indices."},
		{"strides", []int64{0, 0}, []int64{5, 5}, []int64{5, 5},
			fusion.KindValue, "All slice operation strides must be of size 1."},
		{"tensor_dims", []int64{0, 0, 0}, []int64{4, 4, 4}, []int64{1, 1, 1},
			fusion.KindShape, "Number of tensor dimensions does not match slice dimensions!"},
		{"slice_dims_start", []int64{0, 0, 0}, []int64{4, 4}, []int64{1, 1},
			fusion.KindShape, "Slice start_indices and strides don't match!"},
		{"slice_dims_end", []int64{0, 0}, []int64{4, 4, 4}, []int64{1, 1},
			fusion.KindShape, "Slice indexing attribute dimensions don't match!"},
		{"slice_dims_stride", []int64{0, 0}, []int64{4, 4}, []int64{1, 1, 1},
			fusion.KindShape, "Slice start_indices and strides don't match!"},
	}
	dimsCases := [][]int{{10, 10}, {5, 5}}

	return func(yield func(ErrorCase) bool) {
		rng := tensors.NewRand(sampleSeed(op.Name, dtype.String(), "slice_errors"))
		for _, dims := range dimsCases {
			input := tensors.Uniform(rng, shapes.Make(dtype, dims...), -9, 9)
			for _, b := range bundles {
				ec := ErrorCase{
					Name: fmt.Sprintf("%s_%v", b.name, dims),
					Sample: SampleInput{
						Args: []Arg{TensorArg(input)},
						Kwargs: map[string]any{
							"start_indices": b.start,
							"end_indices":   b.end,
							"strides":       b.strides,
						},
						RequiresGrad: requiresGrad,
					},
					Kind:    b.kind,
					Message: b.message,
				}
				if !yield(ec) {
					return
				}
			}
		}
	}
}

// ReductionGenerator sweeps (shape, axes, keepDim) tuples covering full,
// single-axis and multi-axis reductions. The value range is narrowed to
// [-2, 3) so product-style reductions cannot overflow.
func ReductionGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[SampleInput] {
	cases := []struct {
		dims    []int
		axes    []int64
		keepDim bool
	}{
		{[]int{4, 4}, nil, false},
		{[]int{5}, nil, true},
		{[]int{5}, []int64{0}, false},
		{[]int{8, 1, 6}, []int64{1}, true},
		{[]int{8, 7, 5, 1}, []int64{0, 1}, true},
		{[]int{8, 7, 5, 1}, []int64{1, 3}, false},
	}
	return func(yield func(SampleInput) bool) {
		rng := tensors.NewRand(sampleSeed(op.Name, dtype.String(), "reduction"))
		for _, c := range cases {
			t := tensors.Uniform(rng, shapes.Make(dtype, c.dims...), -2, 3)
			sample := SampleInput{
				Args:         []Arg{TensorArg(t), IntsArg(c.axes), ScalarArg(c.keepDim)},
				RequiresGrad: requiresGrad,
			}
			if !yield(sample) {
				return
			}
		}
	}
}

// ReductionErrorGenerator emits malformed axis specifications over two
// shapes. Only the non-integer axis case is enabled; the duplicate and
// out-of-range cases are skippable until their diagnostics stabilize.
// Samples are padded to the operator's declared arity.
func ReductionErrorGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[ErrorCase] {
	type axisCase struct {
		name    string
		axes    func(rank int) any
		kind    fusion.ErrorKind
		message string
		skip    string
	}
	axisCases := []axisCase{
		{
			name:    "int_dtype_axis",
			axes:    func(rank int) any { return float64(rank) },
			kind:    fusion.KindType,
			message: fmt.Sprintf("%s(): incompatible function arguments", op.Name),
		},
		{
			name:    "duplicate_axis",
			axes:    func(rank int) any { return []int64{0, 0, 0} },
			kind:    fusion.KindValue,
			message: "Reduction axes are not unique",
			skip:    "duplicate-axis rejection is being moved ahead of axis normalization",
		},
		{
			name:    "lower_bound_axis",
			axes:    func(rank int) any { return []int64{int64(-rank - 1)} },
			kind:    fusion.KindValue,
			message: "Reduction on invalid axis",
			skip:    "out-of-range axis diagnostics are being unified with the scalar-axis path",
		},
		{
			name:    "upper_bound_axis",
			axes:    func(rank int) any { return []int64{int64(rank)} },
			kind:    fusion.KindValue,
			message: "Reduction on invalid axis",
			skip:    "out-of-range axis diagnostics are being unified with the scalar-axis path",
		},
	}
	dimsCases := [][]int{{8, 1, 6}, {8, 7, 5, 1}}

	arity := 2
	if op.SymbolicParams != nil {
		arity = len(op.SymbolicParams)
	}

	return func(yield func(ErrorCase) bool) {
		rng := tensors.NewRand(sampleSeed(op.Name, dtype.String(), "reduction_errors"))
		for _, dims := range dimsCases {
			input := tensors.Uniform(rng, shapes.Make(dtype, dims...), -2, 3)
			for _, ac := range axisCases {
				args := []Arg{TensorArg(input), ScalarArg(ac.axes(len(dims)))}
				for len(args) < arity {
					args = append(args, ScalarArg(false))
				}
				ec := ErrorCase{
					Name:    fmt.Sprintf("%s_%v", ac.name, dims),
					Sample:  SampleInput{Args: args, RequiresGrad: requiresGrad},
					Kind:    ac.kind,
					Message: ac.message,
					Skip:    ac.skip,
				}
				if !yield(ec) {
					return
				}
			}
		}
	}
}

// VarMeanGenerator derives var_mean samples from the reduction sweep: each
// base sample is re-emitted once per correction value, with the reduction
// axes normalized to all dimensions when the base sample specified none.
func VarMeanGenerator(op *OpInfo, dtype dtypes.DType, requiresGrad bool) iter.Seq[SampleInput] {
	corrections := []int64{0, 1}
	return func(yield func(SampleInput) bool) {
		for _, correction := range corrections {
			for base := range ReductionGenerator(op, dtype, requiresGrad) {
				input := base.Args[0].Tensor()
				axes, _ := base.Args[1].Value().([]int64)
				if axes == nil {
					axes = xslices.Iota(int64(0), input.Rank())
				}
				keepDim, _ := base.Args[2].Value().(bool)
				sample := SampleInput{
					Args: []Arg{TensorArg(input), IntsArg(axes)},
					Kwargs: map[string]any{
						"correction": correction,
						"keepdim":    keepDim,
					},
					RequiresGrad: requiresGrad,
				}
				if !yield(sample) {
					return
				}
			}
		}
	}
}
