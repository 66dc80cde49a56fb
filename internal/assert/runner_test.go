package assert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/clinic/tools/apicheck/internal/client"
)

func newTestRunner(t *testing.T, handler http.HandlerFunc) (*Runner, *Context) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, client.Options{})
	require.NoError(t, err)
	return NewRunner(c), NewContext(srv.URL)
}

func TestRun_PassOnExpectedStatus(t *testing.T) {
	r, tc := newTestRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"registration_id":"reg-1"}`))
	})

	out := r.Run(context.Background(), tc, Check{
		Name:           "create registration",
		Method:         http.MethodPost,
		Path:           "/admin-register",
		Body:           map[string]any{"firstName": "Ada"},
		ExpectedStatus: http.StatusOK,
		ExpectJSON:     true,
	})

	assert.True(t, out.Success)
	assert.Equal(t, FailureNone, out.Failure)
	assert.Equal(t, 1, tc.Run)
	assert.Equal(t, 1, tc.Passed)
	assert.Len(t, tc.Log, 1)
}

func TestRun_UnexpectedStatus(t *testing.T) {
	r, tc := newTestRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	})

	out := r.Run(context.Background(), tc, Check{
		Name:           "fetch",
		Method:         http.MethodGet,
		Path:           "/admin-registration/x",
		ExpectedStatus: http.StatusOK,
	})

	assert.False(t, out.Success)
	assert.Equal(t, FailureStatus, out.Failure)
	assert.Contains(t, out.Diagnostic, "expected status 200, got 500")
	assert.Contains(t, out.Diagnostic, "boom")
	assert.Empty(t, out.Warnings) // envelope present, no warning
	assert.Equal(t, 1, tc.Run)
	assert.Equal(t, 0, tc.Passed)
}

func TestRun_Expected4xxIsAPass(t *testing.T) {
	r, tc := newTestRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"firstName is required"}`))
	})

	out := r.Run(context.Background(), tc, Check{
		Name:           "reject missing firstName",
		Method:         http.MethodPost,
		Path:           "/admin-register",
		ExpectedStatus: http.StatusUnprocessableEntity,
	})

	assert.True(t, out.Success)
	assert.Empty(t, out.Warnings)
	assert.True(t, tc.AllPassed())
}

func TestRun_MissingDetailEnvelopeWarns(t *testing.T) {
	r, tc := newTestRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"nope"}`))
	})

	out := r.Run(context.Background(), tc, Check{
		Name:           "reject invalid email",
		Method:         http.MethodPost,
		Path:           "/admin-register",
		ExpectedStatus: http.StatusUnprocessableEntity,
	})

	// The 422 was the expected outcome, so the step passes; the missing
	// envelope is only a soft warning.
	assert.True(t, out.Success)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, WarningMissingDetail, out.Warnings[0])
	assert.Equal(t, 1, tc.Passed)
}

func TestRun_TransportFailureEvenWhenExpecting4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, err := client.New(srv.URL, client.Options{})
	require.NoError(t, err)
	r, tc := NewRunner(c), NewContext(srv.URL)

	out := r.Run(context.Background(), tc, Check{
		Name:           "reject invalid input",
		Method:         http.MethodPost,
		Path:           "/admin-register",
		ExpectedStatus: http.StatusUnprocessableEntity,
	})

	// The request to test rejection never reached the server: that is an
	// infrastructure failure, not a successful rejection test.
	assert.False(t, out.Success)
	assert.Equal(t, FailureTransport, out.Failure)
	assert.NotEmpty(t, out.Diagnostic)
}

func TestRun_MalformedBodyDistinctFromStatus(t *testing.T) {
	r, tc := newTestRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"broken`))
	})

	out := r.Run(context.Background(), tc, Check{
		Name:           "fetch registration",
		Method:         http.MethodGet,
		Path:           "/admin-registration/x",
		ExpectedStatus: http.StatusOK,
		ExpectJSON:     true,
	})

	assert.False(t, out.Success)
	assert.Equal(t, FailureBody, out.Failure)
	assert.Equal(t, 0, tc.Passed)
}

func TestRun_PredicateFailure(t *testing.T) {
	r, tc := newTestRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	out := r.Run(context.Background(), tc, Check{
		Name:           "body has id",
		Method:         http.MethodGet,
		Path:           "/x",
		ExpectedStatus: http.StatusOK,
		Predicate:      HasAnyKey("id", "registration_id"),
	})

	assert.False(t, out.Success)
	assert.Equal(t, FailurePredicate, out.Failure)
}

func TestRun_CountersMonotonic(t *testing.T) {
	status := http.StatusOK
	r, tc := newTestRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(status)
	})

	for i := range 6 {
		if i%2 == 1 {
			status = http.StatusInternalServerError
		} else {
			status = http.StatusOK
		}
		r.Run(context.Background(), tc, Check{
			Name:           "step",
			Method:         http.MethodGet,
			Path:           "/x",
			ExpectedStatus: http.StatusOK,
		})
		assert.LessOrEqual(t, tc.Passed, tc.Run)
	}

	assert.Equal(t, 6, tc.Run)
	assert.Equal(t, 3, tc.Passed)
	assert.False(t, tc.AllPassed())
}

func TestJudge_PureProperty(t *testing.T) {
	tests := []struct {
		name    string
		chk     Check
		res     client.Result
		wantOK  bool
		wantCls Failure
	}{
		{
			name:    "status match no predicate",
			chk:     Check{ExpectedStatus: 200},
			res:     client.Result{StatusCode: 200},
			wantOK:  true,
			wantCls: FailureNone,
		},
		{
			name:    "status mismatch",
			chk:     Check{ExpectedStatus: 200},
			res:     client.Result{StatusCode: 404},
			wantOK:  false,
			wantCls: FailureStatus,
		},
		{
			name: "predicate holds",
			chk: Check{ExpectedStatus: 200, Predicate: func(body any, _ map[string]any) bool {
				return true
			}},
			res:     client.Result{StatusCode: 200},
			wantOK:  true,
			wantCls: FailureNone,
		},
		{
			name: "predicate rejects",
			chk: Check{ExpectedStatus: 200, Predicate: func(body any, _ map[string]any) bool {
				return false
			}},
			res:     client.Result{StatusCode: 200},
			wantOK:  false,
			wantCls: FailurePredicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := judge(tt.chk, tt.res, nil)
			assert.Equal(t, tt.wantOK, out.Success)
			assert.Equal(t, tt.wantCls, out.Failure)
		})
	}
}
