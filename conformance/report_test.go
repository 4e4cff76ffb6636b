package conformance_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/fuselab/opcheck/conformance"
)

func fixedReport() *conformance.Report {
	return &conformance.Report{
		RunID:        "00000000-0000-0000-0000-000000000000",
		Combinations: 3,
		Passed:       2,
		Failures: []conformance.Failure{
			{
				Op:          "exp",
				DType:       F16,
				Snippet:     conformance.SnippetConsistency,
				SampleIndex: 3,
				Err:         errors.New("values differ at [2]: got 1, want 2"),
			},
		},
		Skipped: []conformance.SkippedCase{
			{
				Op:     "define_tensor",
				DType:  F32,
				Case:   "empty_tensor_size",
				Reason: "empty-dimensionality diagnostic is being reworked to name the zero-rank case",
			},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestReportRendering(t *testing.T) {
	r := fixedReport()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)

	g.Assert(t, "report_text", []byte(r.Text()))

	raw, err := r.JSON()
	require.NoError(t, err)
	g.Assert(t, "report_json", raw)
}

func TestReportJSONIsByteStable(t *testing.T) {
	first, err := fixedReport().JSON()
	require.NoError(t, err)
	second, err := fixedReport().JSON()
	require.NoError(t, err)
	require.Equal(t, first, second)
}
