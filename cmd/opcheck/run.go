package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fuselab/opcheck/conformance"
)

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [operator ...]",
		Short: "Run the conformance suite, optionally restricted to the named operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := conformance.DefaultRegistry()
			if len(args) > 0 {
				var filtered []*conformance.OpInfo
				for _, name := range args {
					op := conformance.FindOp(registry, name)
					if op == nil {
						return errors.Errorf("unknown operator %q", name)
					}
					filtered = append(filtered, op)
				}
				registry = filtered
			}

			h := conformance.NewHarness(registry)
			h.RequiresGrad = viper.GetBool("requires-grad")
			h.MinComputeCapability = viper.GetInt("min-compute-capability")

			jsonOut := viper.GetBool("json")
			var bar *progressbar.ProgressBar
			if !jsonOut && !viper.GetBool("no-progress") {
				bar = progressbar.NewOptions(h.Combinations(),
					progressbar.OptionSetDescription("conformance"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
					progressbar.OptionShowCount(),
				)
				h.OnCombination = func(op string, dtype dtypes.DType, snippet conformance.SnippetKind) {
					_ = bar.Add(1)
				}
			}

			report := h.Run()
			if bar != nil {
				_ = bar.Finish()
			}

			if jsonOut {
				raw, err := report.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			} else {
				printSummary(cmd, report)
			}
			if !report.OK() {
				return errors.Errorf("%d of %s combinations failed",
					len(report.Failures), humanize.Comma(int64(report.Combinations)))
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "emit the report as canonical JSON")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	cmd.Flags().Bool("requires-grad", false, "generate samples with the gradient flag set")
	cmd.Flags().Int("min-compute-capability", 0, "skip the run below this device generation")
	return cmd
}

func printSummary(cmd *cobra.Command, report *conformance.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.Text())
	verdict := passStyle.Render("PASS")
	if !report.OK() {
		verdict = failStyle.Render(fmt.Sprintf("FAIL (%d)", len(report.Failures)))
	}
	fmt.Fprintf(out, "%s %s\n", verdict,
		dimStyle.Render(fmt.Sprintf("%s combinations in %s",
			humanize.Comma(int64(report.Combinations)), report.Elapsed.Round(10*time.Millisecond))))
}
