// Package report renders scenario results to the console and aggregates
// them into a run summary.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/example/clinic/tools/apicheck/internal/assert"
	"github.com/example/clinic/tools/apicheck/internal/scenario"
)

// ANSI escape sequences. Color is opt-out via Options.NoColor.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// Options controls rendering.
type Options struct {
	// Verbose prints every step, not just the failing ones.
	Verbose bool
	// NoColor disables ANSI colors.
	NoColor bool
}

// Summary aggregates the whole run across scenarios.
type Summary struct {
	Scenarios       int
	ScenariosPassed int
	StepsRun        int
	StepsPassed     int
	Warnings        int
	TeardownErrors  int
	Duration        time.Duration
}

// AllPassed reports whether every scenario passed.
func (s Summary) AllPassed() bool {
	return s.Scenarios > 0 && s.ScenariosPassed == s.Scenarios
}

// Printer writes scenario reports as they complete and keeps the running
// totals for the final banner.
type Printer struct {
	w       io.Writer
	opts    Options
	summary Summary
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	return &Printer{w: w, opts: opts}
}

func (p *Printer) paint(color, s string) string {
	if p.opts.NoColor {
		return s
	}
	return color + s + colorReset
}

// Scenario renders one completed scenario report and folds it into the
// summary.
func (p *Printer) Scenario(rep *scenario.Report) {
	p.summary.Scenarios++
	p.summary.StepsRun += rep.Run
	p.summary.StepsPassed += rep.Passed
	p.summary.Warnings += rep.Warnings
	p.summary.TeardownErrors += len(rep.TeardownErrors)
	p.summary.Duration += rep.Duration
	if rep.AllPassed() {
		p.summary.ScenariosPassed++
	}

	mark := p.paint(colorGreen, "✓")
	verdict := "passed"
	if !rep.AllPassed() {
		mark = p.paint(colorRed, "✗")
		verdict = "FAILED"
	}
	fmt.Fprintf(p.w, "%s %s: %d/%d steps %s (%s)\n",
		mark, rep.Scenario, rep.Passed, rep.Run, verdict, rep.Duration.Round(time.Millisecond))

	if rep.Err != nil {
		fmt.Fprintf(p.w, "    %s %v\n", p.paint(colorRed, "error:"), rep.Err)
	}
	if rep.State == scenario.Aborted && rep.AbortedAt != nil {
		fmt.Fprintf(p.w, "    aborted after critical step %d\n", *rep.AbortedAt+1)
	}

	for _, out := range rep.Outcomes {
		p.step(out)
	}

	for _, terr := range rep.TeardownErrors {
		fmt.Fprintf(p.w, "    %s teardown: %v\n", p.paint(colorYellow, "⚠"), terr)
	}
}

func (p *Printer) step(out assert.StepOutcome) {
	if out.Success && !p.opts.Verbose && len(out.Warnings) == 0 {
		return
	}

	if out.Success {
		fmt.Fprintf(p.w, "    %s %s %s %s → %d (%s)\n",
			p.paint(colorGreen, "✓"), out.Name, out.Method, out.Path,
			out.ActualStatus, out.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(p.w, "    %s %s %s %s\n",
			p.paint(colorRed, "✗"), out.Name, out.Method, out.Path)
		fmt.Fprintf(p.w, "        %s failure, expected %d got %d\n",
			out.Failure, out.ExpectedStatus, out.ActualStatus)
		if out.Diagnostic != "" {
			fmt.Fprintf(p.w, "        %s\n", out.Diagnostic)
		}
	}

	for _, warn := range out.Warnings {
		fmt.Fprintf(p.w, "        %s %s\n", p.paint(colorYellow, "⚠"), warn)
	}
}

// Summary returns the aggregated totals.
func (p *Printer) Summary() Summary {
	return p.summary
}

// Finish prints the final banner and returns the summary.
func (p *Printer) Finish() Summary {
	s := p.summary

	verdict := p.paint(colorGreen, "ALL SCENARIOS PASSED")
	if !s.AllPassed() {
		verdict = p.paint(colorRed, fmt.Sprintf("%d SCENARIO(S) FAILED", s.Scenarios-s.ScenariosPassed))
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "╔══════════════════════════════════════════════════╗")
	fmt.Fprintf(p.w, "║  Scenarios: %-4d Passed: %-4d Failed: %-10d ║\n",
		s.Scenarios, s.ScenariosPassed, s.Scenarios-s.ScenariosPassed)
	fmt.Fprintf(p.w, "║  Steps:     %-4d Passed: %-4d Warnings: %-8d ║\n",
		s.StepsRun, s.StepsPassed, s.Warnings)
	fmt.Fprintf(p.w, "║  Duration:  %-37s ║\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintln(p.w, "╚══════════════════════════════════════════════════╝")
	fmt.Fprintln(p.w, verdict)

	if s.TeardownErrors > 0 {
		fmt.Fprintf(p.w, "%s %d teardown error(s): fixtures may remain on the backend\n",
			p.paint(colorYellow, "⚠"), s.TeardownErrors)
	}

	return s
}
