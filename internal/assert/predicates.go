package assert

import (
	"github.com/example/clinic/tools/apicheck/internal/client"
)

// Predicate helpers for common body shapes. Id lookups try several
// candidate key names because the backend endpoints disagree about
// creation-key naming.

// All combines predicates; every one must pass.
func All(preds ...Predicate) Predicate {
	return func(body any, values map[string]any) bool {
		for _, p := range preds {
			if !p(body, values) {
				return false
			}
		}
		return true
	}
}

// HasKeys passes when the body is a JSON object containing every key.
func HasKeys(keys ...string) Predicate {
	return func(body any, _ map[string]any) bool {
		for _, key := range keys {
			if !client.HasKey(body, key) {
				return false
			}
		}
		return true
	}
}

// HasAnyKey passes when the body contains at least one of the keys.
func HasAnyKey(keys ...string) Predicate {
	return func(body any, _ map[string]any) bool {
		for _, key := range keys {
			if client.HasKey(body, key) {
				return true
			}
		}
		return false
	}
}

// listAt resolves the list under a JSONPath, with "$" meaning the body
// itself. Some endpoints return bare arrays, others wrap them.
func listAt(body any, listPath string) ([]any, bool) {
	target := body
	if listPath != "" && listPath != "$" {
		resolved, err := client.JSONPath(body, listPath)
		if err != nil {
			return nil, false
		}
		target = resolved
	}
	list, ok := target.([]any)
	return list, ok
}

// itemMatches reports whether any candidate key of the item equals want.
func itemMatches(item any, idKeys []string, want string) bool {
	got, ok := client.FirstString(item, idKeys...)
	return ok && got == want
}

// ListContains passes when the list at listPath has an item whose candidate
// id key equals the stored value named valueName.
func ListContains(listPath string, idKeys []string, valueName string) Predicate {
	return func(body any, values map[string]any) bool {
		want, ok := values[valueName].(string)
		if !ok || want == "" {
			return false
		}
		list, ok := listAt(body, listPath)
		if !ok {
			return false
		}
		for _, item := range list {
			if itemMatches(item, idKeys, want) {
				return true
			}
		}
		return false
	}
}

// ListExcludes passes when no item in the list matches the stored value.
// Used for verify-removed-from-pending checks. An id that was never stored
// fails the predicate: absence of the fixture id is a harness bug, not
// evidence of removal.
func ListExcludes(listPath string, idKeys []string, valueName string) Predicate {
	return func(body any, values map[string]any) bool {
		want, ok := values[valueName].(string)
		if !ok || want == "" {
			return false
		}
		list, ok := listAt(body, listPath)
		if !ok {
			return false
		}
		for _, item := range list {
			if itemMatches(item, idKeys, want) {
				return false
			}
		}
		return true
	}
}

// SortedDescendingBy passes when the list at listPath is ordered by the
// given string field in descending order. Lexicographic comparison is
// correct for the backend's ISO-8601 timestamps.
func SortedDescendingBy(listPath, field string) Predicate {
	return func(body any, _ map[string]any) bool {
		list, ok := listAt(body, listPath)
		if !ok {
			return false
		}
		var prev string
		for i, item := range list {
			value, err := client.JSONPath(item, "$."+field)
			if err != nil {
				return false
			}
			current := client.Stringify(value)
			if i > 0 && current > prev {
				return false
			}
			prev = current
		}
		return true
	}
}

// FieldsEcho passes when every field of the stored payload named
// payloadName is present and equal in the fetched body. Server-generated
// fields only exist on the response side, so the comparison runs over the
// creation payload's keys.
func FieldsEcho(payloadName string) Predicate {
	return func(body any, values map[string]any) bool {
		payload, ok := values[payloadName].(map[string]any)
		if !ok {
			return false
		}
		obj, ok := body.(map[string]any)
		if !ok {
			return false
		}
		for k, want := range payload {
			got, present := obj[k]
			if !present || client.Stringify(got) != client.Stringify(want) {
				return false
			}
		}
		return true
	}
}
