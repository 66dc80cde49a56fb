package client

import (
	"fmt"
	"strconv"
	"strings"
)

// JSONPath extracts a value from already-parsed JSON using a simplified
// JSONPath expression. Supported forms: $.a.b, $.items[0].id, $.items[*].
func JSONPath(data any, path string) (any, error) {
	if !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("path must start with '$': %s", path)
	}
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return data, nil
	}

	current := data
	for _, seg := range parseSegments(path) {
		var err error
		current, err = navigate(current, seg)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

type segment struct {
	key      string
	isArray  bool
	index    int
	wildcard bool
}

func parseSegments(path string) []segment {
	var segs []segment

	i := 0
	for i < len(path) {
		if path[i] == '.' {
			i++
			continue
		}

		if path[i] == '[' {
			end := strings.Index(path[i:], "]")
			if end == -1 {
				break
			}
			content := path[i+1 : i+end]
			if content == "*" {
				segs = append(segs, segment{isArray: true, wildcard: true})
			} else {
				idx, _ := strconv.Atoi(content)
				segs = append(segs, segment{isArray: true, index: idx})
			}
			i += end + 1
			continue
		}

		end := i
		for end < len(path) && path[end] != '.' && path[end] != '[' {
			end++
		}
		if key := path[i:end]; key != "" {
			segs = append(segs, segment{key: key})
		}
		i = end
	}

	return segs
}

func navigate(data any, seg segment) (any, error) {
	if seg.isArray {
		arr, ok := data.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", data)
		}
		if seg.wildcard {
			return arr, nil
		}
		if seg.index < 0 || seg.index >= len(arr) {
			return nil, fmt.Errorf("array index %d out of bounds (length %d)", seg.index, len(arr))
		}
		return arr[seg.index], nil
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", data)
	}
	value, ok := obj[seg.key]
	if !ok {
		return nil, fmt.Errorf("key %q not found", seg.key)
	}
	return value, nil
}

// Stringify converts a scalar JSON value to its string form.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FirstString probes the body for the first of several candidate keys and
// returns its value as a string. The backend is inconsistent about creation
// keys (some endpoints return "id", others "registration_id" or
// "activity_id"), so callers pass every plausible name. Dotted keys such as
// "data.id" are resolved as paths.
func FirstString(body any, keys ...string) (string, bool) {
	for _, key := range keys {
		value, err := JSONPath(body, "$."+key)
		if err != nil || value == nil {
			continue
		}
		s := Stringify(value)
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// Detail returns the backend's conventional error envelope text: the value
// under the top-level "detail" key of a 4xx/5xx JSON body.
func Detail(body any) (string, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := obj["detail"]
	if !ok {
		return "", false
	}
	return Stringify(value), true
}

// HasKey reports whether the body is a JSON object containing the key.
func HasKey(body any, key string) bool {
	obj, ok := body.(map[string]any)
	if !ok {
		return false
	}
	_, ok = obj[key]
	return ok
}
