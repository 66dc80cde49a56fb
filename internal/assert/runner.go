package assert

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/clinic/tools/apicheck/internal/client"
)

// Failure classifies why a step failed. FailureNone means the step passed.
type Failure int

const (
	// FailureNone indicates the step passed.
	FailureNone Failure = iota
	// FailureTransport indicates the request never reached the server
	// (DNS, connection refused, timeout).
	FailureTransport
	// FailureStatus indicates the server answered with a status code other
	// than the declared expectation.
	FailureStatus
	// FailureBody indicates a 2xx response whose body was not valid JSON
	// where JSON was expected. Distinct from FailureStatus so callers can
	// tell "wrong status" apart from "right status, broken body".
	FailureBody
	// FailurePredicate indicates the body predicate rejected the response.
	FailurePredicate
)

// String returns the failure name.
func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureTransport:
		return "transport"
	case FailureStatus:
		return "unexpected-status"
	case FailureBody:
		return "malformed-body"
	case FailurePredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// Warning is a soft quality signal that does not affect pass/fail counts.
type Warning string

// WarningMissingDetail flags a 4xx/5xx response without the backend's
// conventional "detail" error envelope. A quality signal about the API
// under test, not about the harness.
const WarningMissingDetail Warning = "error response missing 'detail' field"

// Predicate judges a parsed response body. The values map carries the
// scenario's stored fixture ids and extracted variables.
type Predicate func(body any, values map[string]any) bool

// Multipart describes a file-upload body.
type Multipart struct {
	Field    string
	Filename string
	Content  []byte
	Extra    map[string]string
}

// Check describes one step to execute and judge.
type Check struct {
	// Name identifies the step in the report.
	Name string

	Method string
	Path   string
	Query  map[string]string

	// Body is the JSON request body; nil means no body.
	Body any

	// Upload, when set, sends a multipart form instead of Body.
	Upload *Multipart

	// ExpectedStatus is the status code that counts as a pass. Expecting a
	// 4xx here means "testing that invalid input is rejected": observing
	// that 4xx is a success, while a transport failure on the same step is
	// still an infrastructure failure.
	ExpectedStatus int

	// ExpectJSON requires a parseable JSON body on 2xx responses.
	ExpectJSON bool

	// Predicate optionally judges the parsed body after the status check.
	Predicate Predicate
}

// StepOutcome is the immutable record of one executed step.
type StepOutcome struct {
	Name           string
	Method         string
	Path           string
	ExpectedStatus int
	ActualStatus   int
	Result         client.Result
	Success        bool
	Failure        Failure
	Warnings       []Warning
	Diagnostic     string
	Duration       time.Duration
}

// Runner executes checks against the HTTP client and tallies results on a
// Context.
type Runner struct {
	client *client.Client
}

// NewRunner creates a runner bound to a client.
func NewRunner(c *client.Client) *Runner {
	return &Runner{client: c}
}

// Run executes one check, judges it, updates the context counters and log,
// and returns the outcome. It never returns an error and never panics.
func (r *Runner) Run(ctx context.Context, tc *Context, chk Check) StepOutcome {
	var res client.Result
	if chk.Upload != nil {
		res = r.client.SendMultipart(ctx, chk.Path, chk.Upload.Field, chk.Upload.Filename, chk.Upload.Content, chk.Upload.Extra)
	} else {
		res = r.client.Send(ctx, client.Request{
			Method: chk.Method,
			Path:   chk.Path,
			Query:  chk.Query,
			Body:   chk.Body,
		})
	}

	outcome := judge(chk, res, tc.Values())
	tc.Run++
	if outcome.Success {
		tc.Passed++
	}
	tc.Log = append(tc.Log, outcome)
	return outcome
}

// judge is the pure decision function: expected vs actual status, body
// shape, predicate. Exposed to tests through Run only; all branches are
// data-driven.
func judge(chk Check, res client.Result, values map[string]any) StepOutcome {
	outcome := StepOutcome{
		Name:           chk.Name,
		Method:         chk.Method,
		Path:           chk.Path,
		ExpectedStatus: chk.ExpectedStatus,
		ActualStatus:   res.StatusCode,
		Result:         res,
		Duration:       res.Duration,
	}
	if chk.Upload != nil {
		outcome.Method = http.MethodPost
	}

	if res.TransportFailed() {
		outcome.Failure = FailureTransport
		outcome.Diagnostic = res.Err.Error()
		return outcome
	}

	// Soft envelope check on every error response, independent of whether
	// the error was expected.
	if res.StatusCode >= 400 {
		if _, ok := client.Detail(res.JSON); !ok {
			outcome.Warnings = append(outcome.Warnings, WarningMissingDetail)
		}
	}

	if res.StatusCode != chk.ExpectedStatus {
		outcome.Failure = FailureStatus
		outcome.Diagnostic = fmt.Sprintf("expected status %d, got %d", chk.ExpectedStatus, res.StatusCode)
		if detail, ok := client.Detail(res.JSON); ok {
			outcome.Diagnostic += ": " + detail
		}
		return outcome
	}

	if chk.ExpectJSON && res.StatusCode < 300 && res.Kind != client.BodyJSON {
		outcome.Failure = FailureBody
		outcome.Diagnostic = fmt.Sprintf("expected JSON body, got %s", res.Kind)
		return outcome
	}

	if chk.Predicate != nil && !chk.Predicate(res.JSON, values) {
		outcome.Failure = FailurePredicate
		outcome.Diagnostic = "body predicate failed"
		return outcome
	}

	outcome.Success = true
	return outcome
}
