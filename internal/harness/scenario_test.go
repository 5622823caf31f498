package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes scenario YAML into a temp dir and returns its
// path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// absDefinition is an absolute path to the shared baseline definition,
// usable from scenarios written into temp directories.
func absDefinition(t *testing.T) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("testdata", "defs", "corroding_shell.cue"))
	require.NoError(t, err)
	return abs
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "shell_baseline.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "shell_baseline", s.Name)
	assert.Equal(t, "insp-104", s.Actor)
	assert.Equal(t, "run-shell-baseline", s.RunToken)
	assert.Equal(t, filepath.Join("testdata", "defs", "corroding_shell.cue"), s.Definition)

	require.NotNil(t, s.Expect)
	require.NotNil(t, s.Expect.Safe)
	assert.True(t, *s.Expect.Safe)
	assert.Equal(t, "V-101-S1", s.Expect.Governing)
	assert.Equal(t, map[string]string{"V-101-S1": "ok"}, s.Expect.Components)

	require.Len(t, s.Assertions, 6)
	assert.Equal(t, AssertResultPresent, s.Assertions[0].Type)
	assert.Equal(t, AssertFinalState, s.Assertions[5].Type)
	assert.Equal(t, "results", s.Assertions[5].Table)
}

func TestLoadScenario_UnknownTopLevelField(t *testing.T) {
	path := writeScenario(t, `name: s
description: d
definition: whatever.cue
flows: []
assertions:
  - type: audit_clean
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field flows not found")
}

func TestLoadScenario_Invalid(t *testing.T) {
	def := absDefinition(t)

	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\ndefinition: " + def + "\nassertions:\n  - type: audit_clean\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: s\ndefinition: " + def + "\nassertions:\n  - type: audit_clean\n",
			wantErr: "description is required",
		},
		{
			name:    "missing definition",
			yaml:    "name: s\ndescription: d\nassertions:\n  - type: audit_clean\n",
			wantErr: "definition is required",
		},
		{
			name:    "definition does not exist",
			yaml:    "name: s\ndescription: d\ndefinition: /nonexistent/v.cue\nassertions:\n  - type: audit_clean\n",
			wantErr: "definition /nonexistent/v.cue",
		},
		{
			name:    "no assertions",
			yaml:    "name: s\ndescription: d\ndefinition: " + def + "\n",
			wantErr: "at least one assertion is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: s\ndescription: d\ndefinition: " + def + "\nassertions:\n  - type: frobnicate\n",
			wantErr: `unknown type "frobnicate"`,
		},
		{
			name: "result_value without tolerance",
			yaml: "name: s\ndescription: d\ndefinition: " + def + `
assertions:
  - type: result_value
    component: V-101-S1
    calc: mawp
    value: 305.5
`,
			wantErr: "tolerance must be positive",
		},
		{
			name: "unknown calc label",
			yaml: "name: s\ndescription: d\ndefinition: " + def + `
assertions:
  - type: result_present
    component: V-101-S1
    calc: burst_pressure
`,
			wantErr: `unknown calc "burst_pressure"`,
		},
		{
			name: "unknown anomaly category",
			yaml: "name: s\ndescription: d\ndefinition: " + def + `
assertions:
  - type: anomaly_count
    category: gremlins
    count: 1
`,
			wantErr: `unknown category "gremlins"`,
		},
		{
			name: "bad expected status",
			yaml: "name: s\ndescription: d\ndefinition: " + def + `
expect:
  components:
    V-101-S1: exploded
assertions:
  - type: audit_clean
`,
			wantErr: `unknown status "exploded"`,
		},
		{
			name: "final_state without expect",
			yaml: "name: s\ndescription: d\ndefinition: " + def + `
assertions:
  - type: final_state
    table: results
`,
			wantErr: "expect is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
