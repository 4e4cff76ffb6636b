package conformance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cyberphone "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/pkg/errors"
)

// Text renders the report for terminal output: a one-line summary followed
// by one line per failure and per skipped case.
func (r *Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunID)
	fmt.Fprintf(&b, "combinations: %d  passed: %d  failed: %d  skipped cases: %d  elapsed: %s\n",
		r.Combinations, r.Passed, len(r.Failures), len(r.Skipped), r.Elapsed.Round(time.Millisecond))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "FAIL %s %s %s sample %d", f.Op, f.DType, f.Snippet, f.SampleIndex)
		if f.SampleName != "" {
			fmt.Fprintf(&b, " (%s)", f.SampleName)
		}
		fmt.Fprintf(&b, ": %v\n", f.Err)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "SKIP %s %s case %s: %s\n", s.Op, s.DType, s.Case, s.Reason)
	}
	return b.String()
}

type jsonFailure struct {
	Op          string `json:"op"`
	DType       string `json:"dtype"`
	Snippet     string `json:"snippet"`
	SampleIndex int    `json:"sample_index"`
	SampleName  string `json:"sample_name,omitempty"`
	Error       string `json:"error"`
}

type jsonSkip struct {
	Op     string `json:"op"`
	DType  string `json:"dtype"`
	Case   string `json:"case"`
	Reason string `json:"reason"`
}

type jsonReport struct {
	RunID        string        `json:"run_id"`
	Combinations int           `json:"combinations"`
	Passed       int           `json:"passed"`
	Failed       int           `json:"failed"`
	ElapsedMS    int64         `json:"elapsed_ms"`
	Failures     []jsonFailure `json:"failures"`
	Skipped      []jsonSkip    `json:"skipped"`
}

// JSON renders the report as canonicalized JSON (RFC 8785), so two runs with
// identical outcomes produce byte-identical output.
func (r *Report) JSON() ([]byte, error) {
	out := jsonReport{
		RunID:        r.RunID,
		Combinations: r.Combinations,
		Passed:       r.Passed,
		Failed:       len(r.Failures),
		ElapsedMS:    r.Elapsed.Milliseconds(),
		Failures:     []jsonFailure{},
		Skipped:      []jsonSkip{},
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, jsonFailure{
			Op:          f.Op,
			DType:       f.DType.String(),
			Snippet:     string(f.Snippet),
			SampleIndex: f.SampleIndex,
			SampleName:  f.SampleName,
			Error:       fmt.Sprintf("%v", f.Err),
		})
	}
	for _, s := range r.Skipped {
		out.Skipped = append(out.Skipped, jsonSkip{
			Op:     s.Op,
			DType:  s.DType.String(),
			Case:   s.Case,
			Reason: s.Reason,
		})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling report")
	}
	canonical, err := cyberphone.Transform(raw)
	if err != nil {
		return nil, errors.Wrap(err, "canonicalizing report")
	}
	return canonical, nil
}
