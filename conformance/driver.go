package conformance

import (
	"time"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/fuselab/opcheck/fusion"
)

// SnippetKind names one of the three verification strategies.
type SnippetKind string

const (
	SnippetConsistency SnippetKind = "consistency"
	SnippetErrors      SnippetKind = "errors"
	SnippetSeparation  SnippetKind = "definition_op_in_schedule"
)

// Failure records the first failing sample of one (operator, dtype, snippet)
// combination, with enough context to reproduce it in isolation.
type Failure struct {
	Op          string
	DType       dtypes.DType
	Snippet     SnippetKind
	SampleIndex int
	SampleName  string
	Err         error
}

// SkippedCase records an error-generator case that is declared but not
// currently exercised, with its documented reason.
type SkippedCase struct {
	Op     string
	DType  dtypes.DType
	Case   string
	Reason string
}

// Report aggregates one harness run.
type Report struct {
	RunID        string
	Combinations int
	Passed       int
	Failures     []Failure
	Skipped      []SkippedCase
	Elapsed      time.Duration
}

// OK reports whether the run had no failures.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Harness iterates every registered operator across the applicable snippets
// and dtypes. Execution is strictly sequential; each sample owns its
// definition exclusively and discards it when done.
type Harness struct {
	Registry     []*OpInfo
	RequiresGrad bool

	// MinComputeCapability skips the whole run when the execution platform
	// reports a lower device generation.
	MinComputeCapability int

	// OnCombination, when set, is called before each (operator, dtype,
	// snippet) combination runs. The CLI uses it to advance its progress
	// display.
	OnCombination func(op string, dtype dtypes.DType, snippet SnippetKind)
}

// NewHarness returns a harness over the given registry with the default
// policies.
func NewHarness(registry []*OpInfo) *Harness {
	return &Harness{Registry: registry}
}

// Combinations returns how many (operator, dtype, snippet) combinations the
// run will visit, for progress reporting.
func (h *Harness) Combinations() int {
	total := 0
	for _, op := range h.Registry {
		if op.ErrorSamples != nil {
			total += len(op.DTypes)
		}
		if op.Reference != nil {
			total += len(op.DTypes)
		}
		total += len(op.DTypes) // separation applies unconditionally
	}
	return total
}

// Run executes the whole suite. Failures are isolated per sample: the first
// failing sample of a combination is recorded and the rest of that
// combination is skipped, while all other combinations still run.
func (h *Harness) Run() *Report {
	report := &Report{RunID: uuid.NewString()}
	start := time.Now()

	if device := fusion.CurrentDevice(); device.Major < h.MinComputeCapability {
		klog.Warningf("device compute capability %d.%d below required %d, skipping run %s",
			device.Major, device.Minor, h.MinComputeCapability, report.RunID)
		report.Elapsed = time.Since(start)
		return report
	}

	klog.V(1).Infof("conformance run %s: %d operators, %d combinations",
		report.RunID, len(h.Registry), h.Combinations())
	for _, op := range h.Registry {
		if op.ErrorSamples != nil {
			for _, dtype := range op.DTypes {
				h.runErrors(report, op, dtype)
			}
		}
		if op.Reference != nil {
			for _, dtype := range op.DTypes {
				h.runConsistency(report, op, dtype)
			}
		}
		for _, dtype := range op.DTypes {
			h.runSeparation(report, op, dtype)
		}
	}
	report.Elapsed = time.Since(start)
	klog.V(1).Infof("conformance run %s: %d/%d combinations passed, %d skipped cases, elapsed %s",
		report.RunID, report.Passed, report.Combinations, len(report.Skipped), report.Elapsed)
	return report
}

func (h *Harness) startCombination(op *OpInfo, dtype dtypes.DType, snippet SnippetKind) {
	if h.OnCombination != nil {
		h.OnCombination(op.Name, dtype, snippet)
	}
	klog.V(2).Infof("running %s %s %s", op.Name, dtype, snippet)
}

// recordSample folds one sample result into the report and reports whether
// the combination should keep going.
func (h *Harness) recordSample(report *Report, op *OpInfo, dtype dtypes.DType,
	snippet SnippetKind, index int, name string, err error) bool {
	if err == nil {
		return true
	}
	klog.Errorf("FAIL %s %s %s sample %d: %v", op.Name, dtype, snippet, index, err)
	report.Failures = append(report.Failures, Failure{
		Op:          op.Name,
		DType:       dtype,
		Snippet:     snippet,
		SampleIndex: index,
		SampleName:  name,
		Err:         err,
	})
	return false
}

func (h *Harness) runErrors(report *Report, op *OpInfo, dtype dtypes.DType) {
	h.startCombination(op, dtype, SnippetErrors)
	report.Combinations++
	failed := false
	index := 0
	for ec := range op.ErrorSamples(op, dtype, h.RequiresGrad) {
		if ec.Skip != "" {
			klog.V(1).Infof("skip %s %s case %s: %s", op.Name, dtype, ec.Name, ec.Skip)
			report.Skipped = append(report.Skipped, SkippedCase{
				Op:     op.Name,
				DType:  dtype,
				Case:   ec.Name,
				Reason: ec.Skip,
			})
			index++
			continue
		}
		err := guardSample(func() error { return RunError(op, dtype, ec) })
		if !h.recordSample(report, op, dtype, SnippetErrors, index, ec.Name, err) {
			failed = true
			break
		}
		index++
	}
	if !failed {
		report.Passed++
	}
}

func (h *Harness) runConsistency(report *Report, op *OpInfo, dtype dtypes.DType) {
	h.startCombination(op, dtype, SnippetConsistency)
	report.Combinations++
	failed := false
	index := 0
	for sample := range op.Samples(op, dtype, h.RequiresGrad) {
		err := guardSample(func() error { return RunConsistency(op, dtype, sample) })
		if !h.recordSample(report, op, dtype, SnippetConsistency, index, "", err) {
			failed = true
			break
		}
		index++
	}
	if !failed {
		report.Passed++
	}
}

// runSeparation always generates its samples at float32: the snippet only
// needs argument structure, not dtype coverage, and one generation per
// operator keeps the sweep cheap.
func (h *Harness) runSeparation(report *Report, op *OpInfo, dtype dtypes.DType) {
	h.startCombination(op, dtype, SnippetSeparation)
	report.Combinations++
	failed := false
	index := 0
	for sample := range op.Samples(op, dtypes.Float32, h.RequiresGrad) {
		err := guardSample(func() error { return RunScheduleSeparation(op, dtype, sample) })
		if !h.recordSample(report, op, dtype, SnippetSeparation, index, "", err) {
			failed = true
			break
		}
		index++
	}
	if !failed {
		report.Passed++
	}
}

// guardSample converts a snippet panic (a harness defect, or a contract
// violation outside any snippet boundary) into a per-sample failure instead
// of aborting the run.
func guardSample(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("snippet panicked: %v", r)
		}
	}()
	return fn()
}
