package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lowEfficiencyDef compiles cleanly but fails acceptance: the joint
// efficiency sits below every joint category in the tables.
const lowEfficiencyDef = `vessel: {
	id: "V-303"
	components: {
		"V-303-S1": {
			kind: "shell"
			geometry: {inside_radius_in: 24.0}
			material: "SA-285 Gr C"
			design: {
				pressure_psi:  150.0
				temperature_f: 400.0
			}
			joint_efficiency:       0.40
			nominal_thickness_in:   0.500
			corrosion_allowance_in: 0.125
			install_date:           "2001-09-01"
		}
	}
}
`

func TestValidateValidFile(t *testing.T) {
	dir := writeDefs(t, map[string]string{"v101.cue": validShellDef})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(dir, "v101.cue")})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ 1 definition(s) valid")
}

func TestValidateValidDirectory(t *testing.T) {
	dir := writeDefs(t, map[string]string{
		"v101.cue": validShellDef,
		"v202.cue": secondVesselDef,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ 2 definition(s) valid")
}

func TestValidateEfficiencyOutOfBand(t *testing.T) {
	dir := writeDefs(t, map[string]string{"v303.cue": lowEfficiencyDef})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E105")
	assert.Contains(t, output, "joint efficiency")
}

func TestValidateCompileErrorReported(t *testing.T) {
	broken := strings.Replace(validShellDef, "material: \"SA-516 Gr 70\"\n", "", 1)
	dir := writeDefs(t, map[string]string{"broken.cue": broken})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "E004")
	assert.Contains(t, output, "material is required")
}

func TestValidateCollectsAcrossFiles(t *testing.T) {
	dir := writeDefs(t, map[string]string{
		"bad.cue":  lowEfficiencyDef,
		"good.cue": validShellDef,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	// The good vessel must not mask the bad one.
	assert.Contains(t, buf.String(), "V-303-S1")
}

func TestValidateJSONInvalid(t *testing.T) {
	dir := writeDefs(t, map[string]string{"v303.cue": lowEfficiencyDef})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, "E105", response.Error.Code)
}

func TestValidateJSONValid(t *testing.T) {
	dir := writeDefs(t, map[string]string{"v101.cue": validShellDef})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestValidateNotFound(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/defs"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
}

func TestValidateVerbose(t *testing.T) {
	dir := writeDefs(t, map[string]string{"v101.cue": validShellDef})

	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, errBuf.String(), "Found 1 CUE file(s)")
	assert.Contains(t, errBuf.String(), "V-101")
}
