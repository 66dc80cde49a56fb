package scenario

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/clinic/tools/apicheck/internal/assert"
	"github.com/example/clinic/tools/apicheck/internal/client"
	"github.com/example/clinic/tools/apicheck/internal/metrics"
)

// State is the lifecycle of one scenario run.
type State int

const (
	// NotStarted means the scenario has not begun executing.
	NotStarted State = iota
	// Running means steps are executing.
	Running
	// Completed means every step was attempted.
	Completed
	// Aborted means a critical step failed and the remainder was skipped.
	Aborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Report is the outcome of one scenario run.
type Report struct {
	// Scenario is the definition name.
	Scenario string

	// State is the terminal state (Completed or Aborted), or NotStarted
	// when the definition failed validation.
	State State

	// Outcomes holds the ordered step results. Steps after an abort never
	// execute and have no entry here.
	Outcomes []assert.StepOutcome

	// AbortedAt is the index of the critical step whose failure aborted
	// the scenario; nil when the scenario completed.
	AbortedAt *int

	// Run and Passed are this scenario's step counts.
	Run    int
	Passed int

	// Warnings counts soft warnings across all steps.
	Warnings int

	// Duration is the total wall time including teardown.
	Duration time.Duration

	// TeardownErrors lists fixtures that could not be deleted. Teardown is
	// best-effort: entries here are logged, never fatal.
	TeardownErrors []string

	// Err is set when the definition was rejected before any step ran.
	Err error
}

// AllPassed reports whether every executed step passed.
func (r *Report) AllPassed() bool {
	return r.Err == nil && r.Passed == r.Run
}

// Orchestrator drives scenarios: it builds checks from step descriptors,
// executes them in declaration order through the assertion runner, captures
// extracted values and fixture ids, and tears down created fixtures.
type Orchestrator struct {
	runner   *assert.Runner
	client   *client.Client
	logger   zerolog.Logger
	recorder *metrics.Recorder

	nowFunc func() time.Time
}

// NewOrchestrator creates an orchestrator. The recorder may be nil.
func NewOrchestrator(c *client.Client, logger zerolog.Logger, recorder *metrics.Recorder) *Orchestrator {
	return &Orchestrator{
		runner:   assert.NewRunner(c),
		client:   c,
		logger:   logger,
		recorder: recorder,
		nowFunc:  time.Now,
	}
}

// WithNowFunc sets a custom time source for tests.
func (o *Orchestrator) WithNowFunc(fn func() time.Time) *Orchestrator {
	o.nowFunc = fn
	return o
}

// Run executes the scenario against a fresh or caller-provided context.
// Steps run strictly sequentially; a failed critical step aborts the rest.
// Teardown runs after either terminal state.
func (o *Orchestrator) Run(ctx context.Context, tc *assert.Context, def Definition) Report {
	start := o.nowFunc()
	rep := Report{Scenario: def.Name, State: NotStarted}

	if err := def.Validate(); err != nil {
		rep.Err = err
		return rep
	}

	o.logger.Debug().Str("scenario", def.Name).Int("steps", len(def.Steps)).Msg("scenario starting")
	rep.State = Running

	for i := range def.Steps {
		step := def.Steps[i].withDefaults()
		outcome := o.runner.Run(ctx, tc, o.buildCheck(step, tc))

		rep.Outcomes = append(rep.Outcomes, outcome)
		rep.Run++
		if outcome.Success {
			rep.Passed++
		}
		rep.Warnings += len(outcome.Warnings)

		if o.recorder != nil {
			o.recorder.ObserveStep(def.Name, outcome.Success, outcome.Duration)
		}
		o.logger.Debug().
			Str("scenario", def.Name).
			Str("step", step.Name).
			Int("expected", outcome.ExpectedStatus).
			Int("actual", outcome.ActualStatus).
			Bool("success", outcome.Success).
			Msg("step finished")

		if outcome.Success {
			o.capture(step, outcome, tc)
		} else if step.Critical {
			idx := i
			rep.AbortedAt = &idx
			rep.State = Aborted
			o.logger.Debug().Str("scenario", def.Name).Str("step", step.Name).Msg("critical step failed, aborting")
			break
		}
	}

	if rep.State == Running {
		rep.State = Completed
	}

	rep.TeardownErrors = o.teardown(ctx, tc)
	rep.Duration = o.nowFunc().Sub(start)

	if o.recorder != nil {
		o.recorder.ObserveScenario(rep.AllPassed())
	}
	return rep
}

// buildCheck resolves placeholders and fixture bodies into an executable
// check.
func (o *Orchestrator) buildCheck(step Step, tc *assert.Context) assert.Check {
	values := tc.Values()

	chk := assert.Check{
		Name:           step.Name,
		Method:         step.Method,
		Path:           ReplacePlaceholders(step.Path, values),
		ExpectedStatus: step.ExpectedStatus,
		ExpectJSON:     step.ExpectJSON,
		Predicate:      step.Predicate,
		Upload:         step.Upload,
	}

	if len(step.Query) > 0 {
		chk.Query = make(map[string]string, len(step.Query))
		for k, v := range step.Query {
			chk.Query[k] = ReplacePlaceholders(v, values)
		}
	}

	switch {
	case step.BodyFunc != nil:
		chk.Body = step.BodyFunc(tc)
	case step.Body != nil:
		chk.Body = substituteBody(step.Body, values)
	}

	if step.UploadFunc != nil {
		chk.Upload = step.UploadFunc(tc)
	}

	return chk
}

// capture stores extracted values, creation ids and teardown paths from a
// successful step. Ids are only ever taken from 2xx responses.
func (o *Orchestrator) capture(step Step, outcome assert.StepOutcome, tc *assert.Context) {
	if outcome.ActualStatus >= 300 {
		return
	}
	body := outcome.Result.JSON

	for variable, path := range step.Extract {
		value, err := client.JSONPath(body, path)
		if err != nil {
			o.logger.Debug().Str("step", step.Name).Str("variable", variable).Err(err).Msg("extraction failed")
			continue
		}
		tc.Set(variable, value)
	}

	if step.StoreIDAs != "" {
		keys := step.IDKeys
		if len(keys) == 0 {
			keys = DefaultIDKeys
		}
		if id, ok := client.FirstString(body, keys...); ok {
			tc.Set(step.StoreIDAs, id)
			tc.AppendID(step.StoreIDAs+"s", id)
		} else {
			o.logger.Warn().Str("step", step.Name).Str("name", step.StoreIDAs).Msg("no creation id found in response")
		}
	}

	if step.Teardown != "" {
		path := ReplacePlaceholders(step.Teardown, tc.Values())
		if HasUnresolvedPlaceholders(path) {
			o.logger.Warn().Str("step", step.Name).Str("path", path).Msg("teardown path has unresolved placeholders, skipping")
			return
		}
		tc.RegisterTeardown(path)
	}
}

// teardown deletes created fixtures in reverse creation order. Failures
// are collected and logged, never raised; a 404 means the fixture is
// already gone and counts as success.
func (o *Orchestrator) teardown(ctx context.Context, tc *assert.Context) []string {
	var failures []string

	for _, path := range tc.TeardownPaths() {
		res := o.client.Send(ctx, client.Request{Method: http.MethodDelete, Path: path})
		switch {
		case res.TransportFailed():
			failures = append(failures, fmt.Sprintf("%s: %v", path, res.Err))
			o.logger.Warn().Str("path", path).Err(res.Err).Msg("teardown request failed")
		case res.StatusCode >= 400 && res.StatusCode != http.StatusNotFound:
			failures = append(failures, fmt.Sprintf("%s: status %d", path, res.StatusCode))
			o.logger.Warn().Str("path", path).Int("status", res.StatusCode).Msg("teardown rejected")
		}
	}

	return failures
}
