package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

const passingScenario = `
name: passing
description: One insert, checked
steps:
  - commit: { insert: [{ id: /a, attributes: { k: v } }] }
assertions:
  - type: object
    id: /a
    version: 1
`

const failingScenario = `
name: failing
description: Expects a conflict that never happens
steps:
  - commit: { insert: [{ id: /a }] }
    expect_error: DUPLICATE_ID
assertions:
  - type: verify
`

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	out, err = execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)
	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, result.Total)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), scenariosDir)
	require.NoError(t, err, out)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.Passed)
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "res*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ resurrection")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	_, err = execute(NewTestCommand(&RootOptions{Format: "text"}), scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailure(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"passing.yaml": passingScenario,
		"failing.yaml": failingScenario,
		"broken.yaml":  "name: [",
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "expected DUPLICATE_ID")
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "1 passed, 2 failed, 3 total")

	out, err = execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTest, resp.Error.Code)
	assert.Equal(t, 2, result.Failed)
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"passing.yaml": passingScenario})
	golden := filepath.Join(dir, "golden", "passing.golden")

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "passing"`)
	assert.Contains(t, string(data), `"/a@1"`)

	// Matching golden passes
	_, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	// A changed trace fails until regenerated
	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0644))
	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}
