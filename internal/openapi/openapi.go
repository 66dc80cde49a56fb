// Package openapi cross-checks scenario steps against the backend's
// OpenAPI document. The check is advisory: a step hitting an undocumented
// route is reported, not failed, because the backend's spec lags behind
// its routes.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/example/clinic/tools/apicheck/internal/scenario"
)

// ErrInvalidSpec is returned when the document cannot be loaded or fails
// OpenAPI validation.
var ErrInvalidSpec = errors.New("openapi: invalid specification")

// Operation is one documented method+path pair.
type Operation struct {
	Method  string
	Path    string
	Summary string
}

// Spec is a loaded OpenAPI document.
type Spec struct {
	doc *openapi3.T
}

// Load reads and validates an OpenAPI 3 document from a YAML or JSON file.
func Load(path string) (*Spec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, path, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, path, err)
	}
	return &Spec{doc: doc}, nil
}

// Operations lists every documented operation, sorted by path then method.
func (s *Spec) Operations() []Operation {
	var ops []Operation
	for path, item := range s.doc.Paths.Map() {
		for method, op := range item.Operations() {
			summary := ""
			if op != nil {
				summary = op.Summary
			}
			ops = append(ops, Operation{Method: method, Path: path, Summary: summary})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

// Has reports whether the document declares the method on a path matching
// the given one. Template segments ({id} and friends) match any concrete
// segment on either side.
func (s *Spec) Has(method, path string) bool {
	for specPath, item := range s.doc.Paths.Map() {
		if !pathsMatch(specPath, path) {
			continue
		}
		if _, ok := item.Operations()[strings.ToUpper(method)]; ok {
			return true
		}
	}
	return false
}

// MissingSteps returns a description of every step in the definition whose
// method+path is not documented.
func (s *Spec) MissingSteps(def scenario.Definition) []string {
	var missing []string
	for _, step := range def.Steps {
		method := step.Method
		if method == "" {
			method = "GET"
			if step.Body != nil || step.BodyFunc != nil || step.Upload != nil || step.UploadFunc != nil {
				method = "POST"
			}
		}
		if !s.Has(method, step.Path) {
			missing = append(missing, fmt.Sprintf("%s %s (step %q)", method, step.Path, step.Name))
		}
	}
	return missing
}

func isTemplate(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func pathsMatch(specPath, path string) bool {
	a := strings.Split(strings.Trim(specPath, "/"), "/")
	b := strings.Split(strings.Trim(path, "/"), "/")
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if isTemplate(a[i]) || isTemplate(b[i]) {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
