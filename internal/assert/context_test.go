package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Values(t *testing.T) {
	tc := NewContext("http://localhost:8080")

	tc.Set("registration_id", "reg-1")
	tc.AppendID("activity_ids", "act-1")
	tc.AppendID("activity_ids", "act-2")

	id, ok := tc.StringValue("registration_id")
	require.True(t, ok)
	assert.Equal(t, "reg-1", id)

	ids, ok := tc.Get("activity_ids")
	require.True(t, ok)
	assert.Equal(t, []string{"act-1", "act-2"}, ids)

	_, ok = tc.StringValue("missing")
	assert.False(t, ok)
}

func TestContext_ValuesCopyIsIsolated(t *testing.T) {
	tc := NewContext("http://localhost:8080")
	tc.Set("registration_id", "reg-1")

	snapshot := tc.Values()
	snapshot["registration_id"] = "mutated"

	id, _ := tc.StringValue("registration_id")
	assert.Equal(t, "reg-1", id)
}

func TestContext_TeardownReverseOrder(t *testing.T) {
	tc := NewContext("http://localhost:8080")

	tc.RegisterTeardown("/admin-registration/reg-1")
	tc.RegisterTeardown("/admin-registration/reg-1/activity/act-1")
	tc.RegisterTeardown("/notes-templates/tpl-1")

	assert.Equal(t, []string{
		"/notes-templates/tpl-1",
		"/admin-registration/reg-1/activity/act-1",
		"/admin-registration/reg-1",
	}, tc.TeardownPaths())
}

func TestContext_AllPassedOnEmptyRun(t *testing.T) {
	tc := NewContext("http://localhost:8080")
	assert.True(t, tc.AllPassed())
}
