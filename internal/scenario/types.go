// Package scenario sequences named steps into end-to-end workflows against
// the clinic API and manages fixture teardown. New scenarios are data (a
// list of step descriptors), not new code: they can be defined in Go or
// loaded from YAML files.
package scenario

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/example/clinic/tools/apicheck/internal/assert"
	"github.com/example/clinic/tools/apicheck/internal/client"
)

// Errors returned by the scenario package.
var (
	// ErrScenarioNotFound is returned when a scenario cannot be found.
	ErrScenarioNotFound = errors.New("scenario: not found")
	// ErrInvalidScenario is returned when a scenario definition is invalid.
	ErrInvalidScenario = errors.New("scenario: invalid definition")
)

// DefaultIDKeys are the candidate creation-key names probed when a step
// stores a created id. The backend endpoints disagree about which one they
// return, so every plausible name is checked in order.
var DefaultIDKeys = []string{
	"id", "registration_id", "activity_id", "test_id",
	"note_id", "template_id", "disposition_id", "_id",
}

// placeholderPattern matches {variable_name} placeholders in paths, query
// values, body strings and teardown templates.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Step describes one HTTP call plus its expected-vs-actual assertion.
type Step struct {
	// Name identifies the step in reports.
	Name string `yaml:"name"`

	// Method is the HTTP method. Default: GET, or POST when Body/Upload set.
	Method string `yaml:"method,omitempty"`

	// Path is the endpoint path. May contain placeholders like
	// {registration_id} resolved from stored context values.
	Path string `yaml:"path"`

	// Query are query parameters; values may contain placeholders.
	Query map[string]string `yaml:"query,omitempty"`

	// Body is the JSON request body; string values may contain placeholders.
	Body map[string]any `yaml:"body,omitempty"`

	// ExpectedStatus is the status code that counts as a pass. Default: 200.
	ExpectedStatus int `yaml:"expectedStatus,omitempty"`

	// Critical aborts the remainder of the scenario when this step fails.
	Critical bool `yaml:"critical,omitempty"`

	// ExpectJSON requires a parseable JSON body on 2xx responses.
	ExpectJSON bool `yaml:"expectJSON,omitempty"`

	// Extract maps variable names to JSONPath expressions evaluated against
	// the response body of a successful step.
	// Example: {"registration_id": "$.registration_id"}
	Extract map[string]string `yaml:"extract,omitempty"`

	// StoreIDAs stores the created entity id under this logical name,
	// probing IDKeys (or DefaultIDKeys) in the response body. The id is
	// also appended to an ordered list under the pluralized name
	// (e.g. "activity_id" accumulates into "activity_ids"). Only 2xx
	// responses are consulted; the harness never fabricates ids.
	StoreIDAs string `yaml:"storeIdAs,omitempty"`

	// IDKeys overrides the candidate key names for StoreIDAs.
	IDKeys []string `yaml:"idKeys,omitempty"`

	// Teardown is a DELETE path template registered when this step
	// succeeds, replayed best-effort when the scenario ends.
	Teardown string `yaml:"teardown,omitempty"`

	// BodyFunc builds the request body at execution time. Go-defined
	// scenarios use it to generate fresh fixtures per run. Takes
	// precedence over Body.
	BodyFunc func(tc *assert.Context) any `yaml:"-"`

	// Upload sends a multipart form instead of a JSON body.
	Upload *assert.Multipart `yaml:"-"`

	// UploadFunc builds the multipart form at execution time, so file
	// contents get fresh unique values per run. Takes precedence over
	// Upload.
	UploadFunc func(tc *assert.Context) *assert.Multipart `yaml:"-"`

	// Predicate optionally judges the response body.
	Predicate assert.Predicate `yaml:"-"`
}

// withDefaults returns a copy with method and status defaults applied.
func (s Step) withDefaults() Step {
	if s.Method == "" {
		if s.Body != nil || s.BodyFunc != nil || s.Upload != nil || s.UploadFunc != nil {
			s.Method = http.MethodPost
		} else {
			s.Method = http.MethodGet
		}
	}
	if s.ExpectedStatus == 0 {
		// The backend returns 200 for creates too, so 200 is the single
		// observed default across methods.
		s.ExpectedStatus = http.StatusOK
	}
	return s
}

// Validate checks the step for structural problems.
func (s *Step) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: step name is required", ErrInvalidScenario)
	}
	if s.Path == "" && s.Upload == nil && s.UploadFunc == nil {
		return fmt.Errorf("%w: step %q has no path", ErrInvalidScenario, s.Name)
	}
	for variable, path := range s.Extract {
		if variable == "" {
			return fmt.Errorf("%w: step %q has an unnamed extraction", ErrInvalidScenario, s.Name)
		}
		if len(path) == 0 || path[0] != '$' {
			return fmt.Errorf("%w: step %q extraction %q must start with '$'", ErrInvalidScenario, s.Name, variable)
		}
	}
	return nil
}

// Definition is an ordered sequence of steps validating one user-facing
// workflow end-to-end.
type Definition struct {
	// Name is the unique identifier for this scenario.
	Name string `yaml:"name"`

	// Description provides context about what this scenario checks.
	Description string `yaml:"description,omitempty"`

	// Tags categorize scenarios for filtering.
	Tags []string `yaml:"tags,omitempty"`

	// Steps execute strictly in declaration order.
	Steps []Step `yaml:"steps"`
}

// Validate validates the definition and all its steps.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("%w: scenario %q has no steps", ErrInvalidScenario, d.Name)
	}
	for i := range d.Steps {
		if err := d.Steps[i].Validate(); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}
	return nil
}

// ReplacePlaceholders substitutes {name} placeholders with stored values.
// Unresolved placeholders are left intact so callers can detect them.
func ReplacePlaceholders(s string, values map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := values[name]; ok {
			// Extracted JSON numbers arrive as float64; Stringify keeps
			// them in plain notation so ids survive path substitution.
			return client.Stringify(v)
		}
		return match
	})
}

// HasUnresolvedPlaceholders reports whether the string still contains
// {name} placeholders after substitution.
func HasUnresolvedPlaceholders(s string) bool {
	return placeholderPattern.MatchString(s)
}

// substituteBody applies placeholder substitution to every string value of
// a body map, recursively.
func substituteBody(body map[string]any, values map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = substituteValue(v, values)
	}
	return out
}

func substituteValue(v any, values map[string]any) any {
	switch typed := v.(type) {
	case string:
		return ReplacePlaceholders(typed, values)
	case map[string]any:
		return substituteBody(typed, values)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = substituteValue(item, values)
		}
		return out
	default:
		return v
	}
}
