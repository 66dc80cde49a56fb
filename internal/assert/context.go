// Package assert executes single named test steps against the clinic API
// and records pass/fail outcomes. Nothing here ever panics or returns an
// error to the caller: every failure mode becomes data on the StepOutcome,
// so scenarios decide whether to continue or abort.
package assert

import "maps"

// Context is the mutable run-scoped state shared by the steps of one
// scenario: counters, the fixture-id map, the ordered outcome log and the
// teardown list. It is owned by a single orchestrator goroutine; no locking.
type Context struct {
	// BaseURL is the target backend, recorded for reporting.
	BaseURL string

	// Run and Passed are the step counters. Both are incremented by the
	// Runner in the same call, so Passed <= Run always holds.
	Run    int
	Passed int

	// Log is the ordered record of every executed step.
	Log []StepOutcome

	values    map[string]any
	teardowns []string
}

// NewContext creates an empty context for one scenario run.
func NewContext(baseURL string) *Context {
	return &Context{
		BaseURL: baseURL,
		values:  make(map[string]any),
	}
}

// Set stores a value (fixture id or extracted variable) under a logical name.
func (c *Context) Set(name string, value any) {
	c.values[name] = value
}

// Get retrieves a stored value.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// StringValue retrieves a stored value as a string.
func (c *Context) StringValue(name string) (string, bool) {
	v, ok := c.values[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AppendID appends an id to an ordered list value (e.g. "activity_ids").
func (c *Context) AppendID(name, id string) {
	list, _ := c.values[name].([]string)
	c.values[name] = append(list, id)
}

// Values returns a copy of all stored values.
func (c *Context) Values() map[string]any {
	out := make(map[string]any, len(c.values))
	maps.Copy(out, c.values)
	return out
}

// RegisterTeardown records a DELETE path to be issued when the scenario
// ends. Paths are replayed in reverse registration order so children are
// removed before their parents.
func (c *Context) RegisterTeardown(path string) {
	c.teardowns = append(c.teardowns, path)
}

// TeardownPaths returns the registered DELETE paths, newest first.
func (c *Context) TeardownPaths() []string {
	out := make([]string, len(c.teardowns))
	for i, p := range c.teardowns {
		out[len(c.teardowns)-1-i] = p
	}
	return out
}

// AllPassed reports whether every executed step passed.
func (c *Context) AllPassed() bool {
	return c.Passed == c.Run
}
