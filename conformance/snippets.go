package conformance

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/fuselab/opcheck/fusion"
	"github.com/fuselab/opcheck/types/shapes"
	"github.com/fuselab/opcheck/types/tensors"
)

// Comparison tolerances for the consistency snippet.
const (
	consistencyAtol = 1e-3
	consistencyRtol = 0
)

// RunConsistency builds a definition from the adapted sample, executes it,
// computes the reference result from the original arguments and compares the
// two under the operator's reference policy. Any raised condition along the
// way is a hard failure of this sample, never an expected error.
func RunConsistency(op *OpInfo, dtype dtypes.DType, sample SampleInput) (err error) {
	exception := exceptions.Try(func() {
		fd := fusion.NewDefinition()
		fd.Define(func(fd *fusion.Definition) {
			buildFusion(fd, op, sample)
		})
		results := fd.Execute(SelectExecutionArgs(op, sample)...)
		want := op.Reference(sample.OriginalArgs(), sample.Kwargs)
		err = compareResults(op.ReferenceType, results, want)
	})
	if exception != nil {
		return errors.Errorf("execution failed: %v", exception)
	}
	return err
}

func compareResults(refType ReferenceType, got, want []*tensors.Tensor) error {
	if len(got) != len(want) {
		return errors.Errorf("result count mismatch: got %d, reference produced %d", len(got), len(want))
	}
	for ii := range got {
		var err error
		switch refType {
		case RefStrict:
			err = compareStrict(got[ii], want[ii])
		case RefPromote:
			err = comparePromote(got[ii], want[ii])
		default:
			return errors.Errorf("operator has no reference comparison policy")
		}
		if err != nil {
			return errors.Wrapf(err, "output %d", ii)
		}
	}
	return nil
}

// compareStrict checks dtype equality and value closeness in the sample's
// dtype.
func compareStrict(got, want *tensors.Tensor) error {
	if got.DType() != want.DType() {
		return errors.Errorf("dtype mismatch: got %s, want %s", got.DType(), want.DType())
	}
	return got.CheckClose(want, consistencyAtol, consistencyRtol, true)
}

// comparePromote normalizes both results to float64 and reconciles the
// number-versus-zero-dim-array representation quirk before the value
// comparison; dtypes are not compared.
func comparePromote(got, want *tensors.Tensor) error {
	gotF := got.ConvertTo(dtypes.Float64)
	wantF := want.ConvertTo(dtypes.Float64)
	if gotF.Size() == 1 && wantF.Size() == 1 && !gotF.Shape().EqualDimensions(wantF.Shape()) {
		wantF = tensors.FromFlat(gotF.Shape().Clone(), wantF.Values())
	}
	return gotF.CheckClose(wantF, consistencyAtol, consistencyRtol, true)
}

// RunError builds and executes the malformed sample inside a failure
// boundary and verifies that an error of the expected kind, carrying the
// expected message fragment, was raised. A clean pass is itself a failure.
func RunError(op *OpInfo, dtype dtypes.DType, ec ErrorCase) error {
	exception := exceptions.Try(func() {
		fd := fusion.NewDefinition()
		fd.Define(func(fd *fusion.Definition) {
			buildFusion(fd, op, ec.Sample)
		})
		fd.Execute(SelectExecutionArgs(op, ec.Sample)...)
	})
	if exception == nil {
		return errors.New("expected an exception")
	}
	fErr, ok := fusion.AsError(exception)
	if !ok {
		return errors.Errorf("expected a structured error, got: %v", exception)
	}
	if fErr.Kind != ec.Kind {
		return errors.Errorf("expected a %s error, got %s: %s", ec.Kind, fErr.Kind, fErr.Message)
	}
	if ec.Message != "" && !strings.Contains(fErr.Message, ec.Message) {
		return errors.Errorf("error message %q does not contain %q", fErr.Message, ec.Message)
	}
	return nil
}

// RunScheduleSeparation verifies the one-way defining-to-completed
// transition: a two-stage definition whose schedule stage invokes the
// operator under test as if still defining must fail with exactly
// fusion.CompletedDefinitionMessage.
func RunScheduleSeparation(op *OpInfo, dtype dtypes.DType, sample SampleInput) error {
	rng := tensors.NewRand(sampleSeed(op.Name, dtype.String(), "schedule_separation"))
	input := tensors.Uniform(rng, shapes.Make(dtypes.Float32, 8, 8, 8), -1, 1)

	sd := fusion.NewStaged(
		func(fd *fusion.Definition) {
			t0 := fd.FromTensor(input)
			fd.AddOutput(fd.Tanh(t0))
		},
		func(fd *fusion.Definition) {
			adapted := TranslateInputs(fd, op, sample)
			op.Op(fd, adapted, sample.Kwargs)
		},
	)
	exception := exceptions.Try(func() {
		sd.Execute(input)
	})
	if exception == nil {
		return errors.New("expected an exception")
	}
	fErr, ok := fusion.AsError(exception)
	if !ok {
		return errors.Errorf("expected a structured error, got: %v", exception)
	}
	if fErr.Message != fusion.CompletedDefinitionMessage {
		return errors.Errorf("expected message %q, got %q", fusion.CompletedDefinitionMessage, fErr.Message)
	}
	return nil
}
