package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseJSON(t *testing.T, raw string) any {
	t.Helper()
	var data any
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return data
}

func TestJSONPath(t *testing.T) {
	body := parseJSON(t, `{
		"registration_id": "reg-1",
		"data": {"id": "nested-1"},
		"activities": [
			{"activity_id": "act-1", "created_at": "2025-06-02T10:00:00Z"},
			{"activity_id": "act-2", "created_at": "2025-06-01T10:00:00Z"}
		]
	}`)

	tests := []struct {
		name    string
		path    string
		want    any
		wantErr bool
	}{
		{name: "top-level key", path: "$.registration_id", want: "reg-1"},
		{name: "nested key", path: "$.data.id", want: "nested-1"},
		{name: "array index", path: "$.activities[0].activity_id", want: "act-1"},
		{name: "whole document", path: "$", want: body},
		{name: "missing key", path: "$.nope", wantErr: true},
		{name: "index out of bounds", path: "$.activities[9]", wantErr: true},
		{name: "no dollar prefix", path: "registration_id", wantErr: true},
		{name: "index into object", path: "$.data[0]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSONPath(body, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONPath_Wildcard(t *testing.T) {
	body := parseJSON(t, `{"items": [{"id": "a"}, {"id": "b"}]}`)

	got, err := JSONPath(body, "$.items[*]")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFirstString(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		keys   []string
		want   string
		wantOK bool
	}{
		{
			name:   "first candidate present",
			raw:    `{"id": "plain-id"}`,
			keys:   []string{"id", "registration_id"},
			want:   "plain-id",
			wantOK: true,
		},
		{
			name:   "falls through to later candidate",
			raw:    `{"registration_id": "reg-9"}`,
			keys:   []string{"id", "registration_id"},
			want:   "reg-9",
			wantOK: true,
		},
		{
			name:   "numeric id stringified",
			raw:    `{"id": 42}`,
			keys:   []string{"id"},
			want:   "42",
			wantOK: true,
		},
		{
			name:   "dotted candidate",
			raw:    `{"data": {"id": "nested"}}`,
			keys:   []string{"id", "data.id"},
			want:   "nested",
			wantOK: true,
		},
		{
			name:   "nothing matches",
			raw:    `{"status": "ok"}`,
			keys:   []string{"id", "registration_id"},
			wantOK: false,
		},
		{
			name:   "null value skipped",
			raw:    `{"id": null, "registration_id": "reg-2"}`,
			keys:   []string{"id", "registration_id"},
			want:   "reg-2",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstString(parseJSON(t, tt.raw), tt.keys...)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDetail(t *testing.T) {
	detail, ok := Detail(parseJSON(t, `{"detail": "firstName is required"}`))
	require.True(t, ok)
	assert.Equal(t, "firstName is required", detail)

	_, ok = Detail(parseJSON(t, `{"error": "wrong envelope"}`))
	assert.False(t, ok)

	_, ok = Detail("not an object")
	assert.False(t, ok)
}

func TestHasKey(t *testing.T) {
	body := parseJSON(t, `{"registration_id": "r", "empty": null}`)
	assert.True(t, HasKey(body, "registration_id"))
	assert.True(t, HasKey(body, "empty")) // present but null still counts
	assert.False(t, HasKey(body, "missing"))
	assert.False(t, HasKey([]any{}, "missing"))
}
