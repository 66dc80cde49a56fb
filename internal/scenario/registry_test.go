package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiScenarioYAML = `version: "1"
scenarios:
  - name: pending-list-smoke
    description: read-only pending list check
    tags: [smoke, readonly]
    steps:
      - name: fetch pending list
        method: GET
        path: /admin-registrations-pending
        expectedStatus: 200
        expectJSON: true
  - name: registration-404
    steps:
      - name: fetch unknown registration
        method: GET
        path: /admin-registration/does-not-exist
        expectedStatus: 404
`

const singleScenarioYAML = `name: delete-then-404
steps:
  - name: create registration
    method: POST
    path: /admin-register
    body:
      firstName: Ada
    expectedStatus: 200
    critical: true
    storeIdAs: registration_id
  - name: delete it
    method: DELETE
    path: /admin-registration/{registration_id}
    expectedStatus: 200
  - name: fetch deleted registration
    method: GET
    path: /admin-registration/{registration_id}
    expectedStatus: 404
`

func TestLoadFile_MultiScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(multiScenarioYAML), 0o644))

	defs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "pending-list-smoke", defs[0].Name)
	assert.Equal(t, []string{"smoke", "readonly"}, defs[0].Tags)
	require.Len(t, defs[0].Steps, 1)
	assert.True(t, defs[0].Steps[0].ExpectJSON)

	assert.Equal(t, 404, defs[1].Steps[0].ExpectedStatus)
}

func TestLoadFile_SingleScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifecycle.yml")
	require.NoError(t, os.WriteFile(path, []byte(singleScenarioYAML), 0o644))

	defs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "delete-then-404", def.Name)
	require.Len(t, def.Steps, 3)
	assert.True(t, def.Steps[0].Critical)
	assert.Equal(t, "registration_id", def.Steps[0].StoreIDAs)
	assert.Equal(t, "/admin-registration/{registration_id}", def.Steps[1].Path)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestLoadFile_InvalidDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: no-steps\nsteps: []\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestRegistry_RegisterGetNames(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&Definition{
		Name:  "b-scenario",
		Steps: []Step{{Name: "s", Path: "/x"}},
	}))
	require.NoError(t, r.Register(&Definition{
		Name:  "a-scenario",
		Steps: []Step{{Name: "s", Path: "/x"}},
	}))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"a-scenario", "b-scenario"}, r.Names())

	def, err := r.Get("a-scenario")
	require.NoError(t, err)
	assert.Equal(t, "a-scenario", def.Name)

	_, err = r.Get("unknown")
	assert.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestRegistry_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smoke.yaml"), []byte(multiScenarioYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lifecycle.yml"), []byte(singleScenarioYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadDirectory(dir))

	assert.Equal(t, 3, r.Count())
	assert.Contains(t, r.Names(), "delete-then-404")
}

func TestRegistry_LoadDirectory_MissingIsNotError(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.LoadDirectory(filepath.Join(t.TempDir(), "absent")))
	assert.NoError(t, r.LoadDirectory(""))
	assert.Zero(t, r.Count())
}
