package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: single_poi
description: "one POI in one cell"
steps:
  - fetch_time: 1700000000000
    pois:
      - {guid: a, lat: 51.5007, lng: -0.1246, title: Fountain, tags: [POKESTOP/ACTIVE]}
assertions:
  - type: cell_poi_count
    at: [51.5007, -0.1246]
    count: 1
`

const failingScenario = `
name: wrong_count
description: "asserts a count that does not hold"
steps:
  - fetch_time: 1700000000000
    pois:
      - {guid: a, lat: 51.5007, lng: -0.1246, title: Fountain, tags: [POKESTOP/ACTIVE]}
assertions:
  - type: cell_poi_count
    at: [51.5007, -0.1246]
    count: 3
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("..", "harness", "testdata", "scenarios")})

	err := cmd.Execute()
	require.NoError(t, err, buf.String())
	assert.Contains(t, buf.String(), "✓ rescan_removes_stale")
	assert.Contains(t, buf.String(), "✓ moving_poi")
	assert.Contains(t, buf.String(), "All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.yaml"), passingScenario)
	writeFile(t, filepath.Join(dir, "bad.yaml"), failingScenario)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, 2, response.Data.Total)
	assert.Equal(t, 1, response.Data.Passed)
	assert.Equal(t, 1, response.Data.Failed)
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "single.yaml"), passingScenario)

	run := func(args ...string) (string, error) {
		buf := &bytes.Buffer{}
		cmd := NewTestCommand(&RootOptions{Format: "text"})
		cmd.SetOut(buf)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return buf.String(), err
	}

	out, err := run(dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "golden updated")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "single.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario": "single_poi"`)

	out, err = run(dir)
	require.NoError(t, err, out)

	writeFile(t, filepath.Join(dir, "golden", "single.golden"), "{}\n")
	out, err = run(dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "test1.yaml"), "")
	writeFile(t, filepath.Join(tmpDir, "test2.yml"), "")
	writeFile(t, filepath.Join(tmpDir, "ignore.txt"), "")

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "rescan-a.yaml"), "")
	writeFile(t, filepath.Join(tmpDir, "rescan-b.yaml"), "")
	writeFile(t, filepath.Join(tmpDir, "moving.yaml"), "")

	files, err := findScenarioFiles(tmpDir, "rescan-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	for _, f := range files {
		assert.Contains(t, filepath.Base(f), "rescan-")
	}
}

func TestFindScenarioFilesSkipsGolden(t *testing.T) {
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "root.yaml"), "")
	writeFile(t, filepath.Join(tmpDir, "sub", "sub.yaml"), "")
	writeFile(t, filepath.Join(tmpDir, "golden", "stray.yaml"), "")

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.yml", "/path/to/golden/scenario.golden"},
		{"scenarios/test.yaml", "scenarios/golden/test.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.input))
	}
}
