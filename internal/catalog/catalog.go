// Package catalog defines the built-in scenarios covering the clinic
// backend's observed workflows: registration lifecycle, activities, notes
// and templates, clinical test records, dispositions, roster upload and
// deletion semantics. Each scenario is plain data over the shared step
// descriptors; fixture bodies are generated fresh per run.
package catalog

import (
	"fmt"
	"net/http"

	"github.com/example/clinic/tools/apicheck/internal/assert"
	"github.com/example/clinic/tools/apicheck/internal/fixture"
	"github.com/example/clinic/tools/apicheck/internal/scenario"
)

// Register adds every built-in scenario to the registry.
func Register(r *scenario.Registry, f *fixture.Factory) error {
	for _, def := range Definitions(f) {
		if err := r.Register(&def); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}
	return nil
}

// Definitions builds the built-in scenario set.
func Definitions(f *fixture.Factory) []scenario.Definition {
	return []scenario.Definition{
		registrationLifecycle(f),
		registrationValidation(f),
		activityFlow(f),
		notesTemplates(f),
		testRecords(f),
		dispositions(f),
		fileUpload(),
		deleteThen404(f),
		pendingListSmoke(),
	}
}

// createRegistration is the shared opening step of most scenarios: POST a
// fresh registration, keep its id for later path placeholders, remember
// the payload for round-trip checks, and schedule cleanup.
func createRegistration(f *fixture.Factory) scenario.Step {
	return scenario.Step{
		Name:   "create registration",
		Method: http.MethodPost,
		Path:   "/admin-register",
		BodyFunc: func(tc *assert.Context) any {
			payload := f.Registration(nil)
			tc.Set("registration_payload", payload)
			return payload
		},
		ExpectedStatus: http.StatusOK,
		ExpectJSON:     true,
		Critical:       true,
		StoreIDAs:      "registration_id",
		Teardown:       "/admin-registration/{registration_id}",
		Predicate:      assert.HasAnyKey("id", "registration_id"),
	}
}

func registrationLifecycle(f *fixture.Factory) scenario.Definition {
	return scenario.Definition{
		Name:        "registration-lifecycle",
		Description: "create, list, fetch, update, finalize and verify removal from the pending queue",
		Tags:        []string{"registration", "core"},
		Steps: []scenario.Step{
			createRegistration(f),
			{
				Name:           "pending list contains new registration",
				Method:         http.MethodGet,
				Path:           "/admin-registrations-pending",
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate:      assert.ListContains("$", scenario.DefaultIDKeys, "registration_id"),
			},
			{
				Name:           "fetch by id echoes creation payload",
				Method:         http.MethodGet,
				Path:           "/admin-registration/{registration_id}",
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate:      assert.FieldsEcho("registration_payload"),
			},
			{
				Name:   "update registration",
				Method: http.MethodPut,
				Path:   "/admin-registration/{registration_id}",
				BodyFunc: func(_ *assert.Context) any {
					return map[string]any{"specialNotes": "updated " + fixture.Suffix()}
				},
				ExpectedStatus: http.StatusOK,
			},
			{
				Name:           "finalize registration",
				Method:         http.MethodPost,
				Path:           "/admin-registration/{registration_id}/finalize",
				Body:           map[string]any{},
				ExpectedStatus: http.StatusOK,
				Critical:       true,
			},
			{
				Name:           "finalized registration left pending queue",
				Method:         http.MethodGet,
				Path:           "/admin-registrations-pending",
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate:      assert.ListExcludes("$", scenario.DefaultIDKeys, "registration_id"),
			},
		},
	}
}

func registrationValidation(f *fixture.Factory) scenario.Definition {
	reject := func(name string, ov fixture.Overrides) scenario.Step {
		return scenario.Step{
			Name:   name,
			Method: http.MethodPost,
			Path:   "/admin-register",
			BodyFunc: func(_ *assert.Context) any {
				return f.Registration(ov)
			},
			ExpectedStatus: http.StatusUnprocessableEntity,
		}
	}

	return scenario.Definition{
		Name:        "registration-validation",
		Description: "invalid registrations are rejected with 422 and a detail envelope",
		Tags:        []string{"registration", "validation"},
		Steps: []scenario.Step{
			reject("missing firstName rejected", fixture.Overrides{"firstName": nil}),
			reject("missing lastName rejected", fixture.Overrides{"lastName": nil}),
			reject("invalid email rejected", fixture.Overrides{"email": "not-an-email"}),
			reject("missing consent rejected", fixture.Overrides{"consentGiven": nil, "consentDate": nil}),
		},
	}
}

func activityFlow(f *fixture.Factory) scenario.Definition {
	return scenario.Definition{
		Name:        "activity-flow",
		Description: "activities attach to a registration and list newest first",
		Tags:        []string{"activity"},
		Steps: []scenario.Step{
			createRegistration(f),
			{
				Name:   "add activity",
				Method: http.MethodPost,
				Path:   "/admin-registration/{registration_id}/activity",
				BodyFunc: func(_ *assert.Context) any {
					return f.Activity(nil)
				},
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Critical:       true,
				StoreIDAs:      "activity_id",
				Predicate:      assert.HasAnyKey("id", "activity_id"),
			},
			{
				Name:   "add second activity",
				Method: http.MethodPost,
				Path:   "/admin-registration/{registration_id}/activity",
				BodyFunc: func(_ *assert.Context) any {
					return f.Activity(nil)
				},
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				StoreIDAs:      "activity_id",
			},
			{
				Name:           "activity list contains created activity, newest first",
				Method:         http.MethodGet,
				Path:           "/admin-registration/{registration_id}/activities",
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate: assert.All(
					assert.ListContains("$", []string{"id", "activity_id"}, "activity_id"),
					assert.SortedDescendingBy("$", "created_at"),
				),
			},
		},
	}
}

func notesTemplates(f *fixture.Factory) scenario.Definition {
	return scenario.Definition{
		Name:        "notes-templates",
		Description: "note templates support create, list, use, update and delete",
		Tags:        []string{"notes", "templates"},
		Steps: []scenario.Step{
			{
				Name:   "create template",
				Method: http.MethodPost,
				Path:   "/notes-templates",
				BodyFunc: func(_ *assert.Context) any {
					return f.Template("", "", nil)
				},
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Critical:       true,
				StoreIDAs:      "template_id",
				Teardown:       "/notes-templates/{template_id}",
			},
			{
				Name:           "template list contains new template",
				Method:         http.MethodGet,
				Path:           "/notes-templates",
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate:      assert.ListContains("$", []string{"id", "template_id"}, "template_id"),
			},
			createRegistration(f),
			{
				Name:   "add note from template",
				Method: http.MethodPost,
				Path:   "/admin-registration/{registration_id}/note",
				BodyFunc: func(tc *assert.Context) any {
					tpl, _ := tc.StringValue("template_id")
					return f.Note(fixture.Overrides{"templateId": tpl})
				},
				ExpectedStatus: http.StatusOK,
			},
			{
				Name:           "update template",
				Method:         http.MethodPut,
				Path:           "/notes-templates/{template_id}",
				Body:           map[string]any{"content": "updated template body"},
				ExpectedStatus: http.StatusOK,
			},
			{
				Name:           "delete template",
				Method:         http.MethodDelete,
				Path:           "/notes-templates/{template_id}",
				ExpectedStatus: http.StatusOK,
			},
		},
	}
}

func testRecords(f *fixture.Factory) scenario.Definition {
	submit := func(kind fixture.TestKind) scenario.Step {
		return scenario.Step{
			Name:   fmt.Sprintf("submit %s test", kind),
			Method: http.MethodPost,
			Path:   "/admin-registration/{registration_id}/test",
			BodyFunc: func(_ *assert.Context) any {
				rec, _ := f.TestRecord(kind, nil)
				return rec
			},
			ExpectedStatus: http.StatusOK,
			ExpectJSON:     true,
			Predicate:      assert.HasAnyKey("id", "test_id"),
		}
	}

	return scenario.Definition{
		Name:        "test-records",
		Description: "each clinical test kind submits its discriminated field set",
		Tags:        []string{"tests"},
		Steps: []scenario.Step{
			createRegistration(f),
			submit(fixture.TestHIV),
			submit(fixture.TestHCV),
			submit(fixture.TestBloodwork),
			{
				Name:           "test list holds all three submissions",
				Method:         http.MethodGet,
				Path:           "/admin-registration/{registration_id}/tests",
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate: func(body any, _ map[string]any) bool {
					list, ok := body.([]any)
					return ok && len(list) >= 3
				},
			},
		},
	}
}

func dispositions(f *fixture.Factory) scenario.Definition {
	return scenario.Definition{
		Name:        "dispositions",
		Description: "dispositions attach to a registration and read back",
		Tags:        []string{"dispositions"},
		Steps: []scenario.Step{
			createRegistration(f),
			{
				Name:   "record disposition",
				Method: http.MethodPost,
				Path:   "/admin-registration/{registration_id}/disposition",
				BodyFunc: func(_ *assert.Context) any {
					return f.Disposition(nil)
				},
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Critical:       true,
				StoreIDAs:      "disposition_id",
			},
			{
				Name:           "disposition list contains new entry",
				Method:         http.MethodGet,
				Path:           "/admin-registration/{registration_id}/dispositions",
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate:      assert.ListContains("$", []string{"id", "disposition_id"}, "disposition_id"),
			},
		},
	}
}

func fileUpload() scenario.Definition {
	return scenario.Definition{
		Name:        "file-upload",
		Description: "roster CSV uploads through the multipart endpoint",
		Tags:        []string{"upload"},
		Steps: []scenario.Step{
			{
				Name: "upload roster CSV",
				Path: "/upload-roster",
				// Built per run so repeated uploads never reuse row values.
				UploadFunc: func(_ *assert.Context) *assert.Multipart {
					roster := fmt.Sprintf(
						"firstName,lastName,email\nRoster_%s,Upload_%s,roster.%s@example.com\n",
						fixture.Suffix(), fixture.Suffix(), fixture.Suffix(),
					)
					return &assert.Multipart{
						Field:    "file",
						Filename: "roster.csv",
						Content:  []byte(roster),
					}
				},
				ExpectedStatus: http.StatusOK,
				ExpectJSON:     true,
				Predicate:      assert.HasAnyKey("rows_imported", "rowsImported", "count"),
			},
		},
	}
}

func deleteThen404(f *fixture.Factory) scenario.Definition {
	create := createRegistration(f)
	// This scenario deletes explicitly; no teardown needed.
	create.Teardown = ""

	return scenario.Definition{
		Name:        "delete-then-404",
		Description: "a deleted registration stops resolving",
		Tags:        []string{"registration", "teardown"},
		Steps: []scenario.Step{
			create,
			{
				Name:           "delete registration",
				Method:         http.MethodDelete,
				Path:           "/admin-registration/{registration_id}",
				ExpectedStatus: http.StatusOK,
				Critical:       true,
			},
			{
				Name:           "fetch deleted registration returns 404",
				Method:         http.MethodGet,
				Path:           "/admin-registration/{registration_id}",
				ExpectedStatus: http.StatusNotFound,
			},
		},
	}
}

func pendingListSmoke() scenario.Definition {
	fetch := func(name string) scenario.Step {
		return scenario.Step{
			Name:           name,
			Method:         http.MethodGet,
			Path:           "/admin-registrations-pending",
			ExpectedStatus: http.StatusOK,
			ExpectJSON:     true,
		}
	}

	return scenario.Definition{
		Name:        "pending-list-smoke",
		Description: "the pending list is readable and stable across repeated fetches",
		Tags:        []string{"smoke", "readonly"},
		Steps: []scenario.Step{
			fetch("fetch pending list"),
			fetch("fetch pending list again"),
		},
	}
}
