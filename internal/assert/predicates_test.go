package assert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) any {
	t.Helper()
	var data any
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return data
}

var idKeys = []string{"id", "registration_id", "activity_id"}

func TestListContains(t *testing.T) {
	pending := parse(t, `[
		{"registration_id": "reg-1", "firstName": "Ada"},
		{"registration_id": "reg-2", "firstName": "Grace"}
	]`)
	values := map[string]any{"registration_id": "reg-2"}

	assert.True(t, ListContains("$", idKeys, "registration_id")(pending, values))
	assert.False(t, ListContains("$", idKeys, "registration_id")(pending, map[string]any{"registration_id": "reg-9"}))

	// Unstored value is a harness bug, never a pass.
	assert.False(t, ListContains("$", idKeys, "registration_id")(pending, map[string]any{}))
}

func TestListContains_WrappedList(t *testing.T) {
	wrapped := parse(t, `{"registrations": [{"id": "reg-1"}]}`)
	values := map[string]any{"registration_id": "reg-1"}

	assert.True(t, ListContains("$.registrations", idKeys, "registration_id")(wrapped, values))
	assert.False(t, ListContains("$.other", idKeys, "registration_id")(wrapped, values))
}

func TestListExcludes(t *testing.T) {
	pending := parse(t, `[{"registration_id": "reg-1"}]`)

	assert.True(t, ListExcludes("$", idKeys, "registration_id")(pending, map[string]any{"registration_id": "reg-gone"}))
	assert.False(t, ListExcludes("$", idKeys, "registration_id")(pending, map[string]any{"registration_id": "reg-1"}))
	assert.False(t, ListExcludes("$", idKeys, "registration_id")(pending, map[string]any{}))
}

func TestSortedDescendingBy(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{
			name: "descending timestamps",
			raw:  `[{"created_at":"2025-06-02T10:00:00Z"},{"created_at":"2025-06-01T10:00:00Z"}]`,
			want: true,
		},
		{
			name: "ascending timestamps",
			raw:  `[{"created_at":"2025-06-01T10:00:00Z"},{"created_at":"2025-06-02T10:00:00Z"}]`,
			want: false,
		},
		{
			name: "single element",
			raw:  `[{"created_at":"2025-06-01T10:00:00Z"}]`,
			want: true,
		},
		{
			name: "empty list",
			raw:  `[]`,
			want: true,
		},
		{
			name: "missing field",
			raw:  `[{"created_at":"2025-06-02T10:00:00Z"},{"other":"x"}]`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortedDescendingBy("$", "created_at")(parse(t, tt.raw), nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasKeysAndHasAnyKey(t *testing.T) {
	body := parse(t, `{"registration_id": "r", "status": "pending"}`)

	assert.True(t, HasKeys("registration_id", "status")(body, nil))
	assert.False(t, HasKeys("registration_id", "missing")(body, nil))
	assert.True(t, HasAnyKey("id", "registration_id")(body, nil))
	assert.False(t, HasAnyKey("id", "test_id")(body, nil))
}

func TestFieldsEcho(t *testing.T) {
	payload := map[string]any{"firstName": "Ada_x1", "phone": "5551234567"}
	values := map[string]any{"registration_payload": payload}

	fetched := parse(t, `{
		"firstName": "Ada_x1",
		"phone": "5551234567",
		"id": "server-generated",
		"created_at": "2025-06-02T10:00:00Z"
	}`)
	assert.True(t, FieldsEcho("registration_payload")(fetched, values))

	dropped := parse(t, `{"firstName": "Ada_x1"}`)
	assert.False(t, FieldsEcho("registration_payload")(dropped, values))

	changed := parse(t, `{"firstName": "Ada_x1", "phone": "0000000000"}`)
	assert.False(t, FieldsEcho("registration_payload")(changed, values))

	assert.False(t, FieldsEcho("registration_payload")(fetched, map[string]any{}))
}
