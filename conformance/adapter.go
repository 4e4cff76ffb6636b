package conformance

import (
	"github.com/gomlx/exceptions"

	"github.com/fuselab/opcheck/fusion"
)

// TranslateInputs maps a sample's positional arguments onto the fusion
// definition: symbolic arguments become traced placeholders (tensor input,
// integer-vector placeholder or scalar placeholder according to their tag),
// concrete arguments pass through unchanged. A concrete tensor argument is a
// contract violation, not a recoverable condition.
//
// TranslateInputs and SelectExecutionArgs walk the arguments with identical
// indexing, so definition-time placeholders and run-time values stay
// aligned.
func TranslateInputs(fd *fusion.Definition, op *OpInfo, sample SampleInput) []any {
	if len(sample.Args) == 0 {
		return nil
	}
	symbolic := op.symbolicList(len(sample.Args))
	adapted := make([]any, 0, len(sample.Args))
	for ii, arg := range sample.Args {
		if !symbolic[ii] {
			if arg.Kind() == ArgTensor {
				exceptions.Panicf("conformance: %s marks argument %d concrete, but the sample supplies a tensor",
					op.Name, ii)
			}
			adapted = append(adapted, arg.Value())
			continue
		}
		switch arg.Kind() {
		case ArgTensor:
			adapted = append(adapted, fd.FromTensor(arg.Tensor()))
		case ArgIntVector:
			adapted = append(adapted, fd.DefineVector(arg.Value()))
		default:
			adapted = append(adapted, fd.DefineScalar(arg.Value()))
		}
	}
	return adapted
}

// SelectExecutionArgs filters the sample's original arguments down to the
// symbolic-marked ones, in order, for supplying runtime values to Execute.
func SelectExecutionArgs(op *OpInfo, sample SampleInput) []any {
	if len(sample.Args) == 0 {
		return nil
	}
	symbolic := op.symbolicList(len(sample.Args))
	var selected []any
	for ii, arg := range sample.Args {
		if symbolic[ii] {
			selected = append(selected, arg.Value())
		}
	}
	return selected
}

// buildFusion populates fd from the sample: adapted inputs, the operator
// invocation, and output registration. Fusion-input operators contribute a
// fresh input instead of consuming one; their result is added to the
// sample's first tensor argument so the definition still has a computed
// output.
func buildFusion(fd *fusion.Definition, op *OpInfo, sample SampleInput) {
	adapted := TranslateInputs(fd, op, sample)
	if op.IsFusionInputOp {
		produced := op.Op(fd, nil, sample.Kwargs)
		first, ok := adapted[0].(*fusion.Node)
		if !ok {
			exceptions.Panicf("conformance: %s requires a leading tensor argument", op.Name)
		}
		fd.AddOutput(fd.Add(first, produced[0]))
		return
	}
	for _, out := range op.Op(fd, adapted, sample.Kwargs) {
		fd.AddOutput(out)
	}
}
