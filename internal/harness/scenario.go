package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/calc"
)

// Scenario describes one end-to-end pipeline test: a vessel definition
// to evaluate, the environment to evaluate it under, and the checks to
// run against the outcome.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Definition is the path to the CUE vessel definition, resolved
	// relative to the scenario file.
	Definition string `yaml:"definition"`

	// StressTable optionally pins a stress table file. Empty means the
	// built-in default table.
	StressTable string `yaml:"stress_table,omitempty"`

	// Config optionally overlays the engine configuration.
	Config string `yaml:"config,omitempty"`

	// Actor is recorded on every audit entry. Defaults to "harness".
	Actor string `yaml:"actor,omitempty"`

	// RunToken fixes the run token so traces stay byte-identical across
	// runs. Empty defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	Expect     *ExpectClause `yaml:"expect,omitempty"`
	Assertions []Assertion   `yaml:"assertions"`
}

// ExpectClause states the expected verdict of a run.
type ExpectClause struct {
	Safe      *bool  `yaml:"safe,omitempty"`
	Governing string `yaml:"governing,omitempty"`

	// Components maps component IDs to their expected run status:
	// ok, degraded, or failed.
	Components map[string]string `yaml:"components,omitempty"`
}

// Assertion is one typed check against a completed run. Which fields
// apply depends on Type.
type Assertion struct {
	Type string `yaml:"type"`

	// result_present, result_value, anomaly_count (optional filter).
	Component string `yaml:"component,omitempty"`

	// result_present, result_value.
	Calc string `yaml:"calc,omitempty"`

	// result_value.
	Value     float64 `yaml:"value,omitempty"`
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// anomaly_count.
	Category string `yaml:"category,omitempty"`
	Count    int    `yaml:"count,omitempty"`

	// final_state.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type identifiers.
const (
	AssertResultPresent = "result_present"
	AssertResultValue   = "result_value"
	AssertAnomalyCount  = "anomaly_count"
	AssertAuditClean    = "audit_clean"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and validates a scenario file. Referenced paths
// are resolved relative to the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario and resolves its referenced
// paths against basePath instead of the scenario file's directory.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	scenario.Definition = resolvePath(basePath, scenario.Definition)
	scenario.StressTable = resolvePath(basePath, scenario.StressTable)
	scenario.Config = resolvePath(basePath, scenario.Config)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Definition == "" {
		return fmt.Errorf("definition is required")
	}
	if _, err := os.Stat(s.Definition); err != nil {
		return fmt.Errorf("definition %s: %w", s.Definition, err)
	}
	if s.StressTable != "" {
		if _, err := os.Stat(s.StressTable); err != nil {
			return fmt.Errorf("stress_table %s: %w", s.StressTable, err)
		}
	}
	if s.Config != "" {
		if _, err := os.Stat(s.Config); err != nil {
			return fmt.Errorf("config %s: %w", s.Config, err)
		}
	}

	if s.Expect != nil {
		for id, status := range s.Expect.Components {
			if id == "" {
				return fmt.Errorf("expect.components: empty component ID")
			}
			if !validStatus(status) {
				return fmt.Errorf("expect.components[%s]: unknown status %q (want ok, degraded, or failed)", id, status)
			}
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("at least one assertion is required")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertResultPresent:
		if a.Component == "" {
			return fmt.Errorf("assertion %d (%s): component is required", index, a.Type)
		}
		if !validCalcType(a.Calc) {
			return fmt.Errorf("assertion %d (%s): unknown calc %q", index, a.Type, a.Calc)
		}
	case AssertResultValue:
		if a.Component == "" {
			return fmt.Errorf("assertion %d (%s): component is required", index, a.Type)
		}
		if !validCalcType(a.Calc) {
			return fmt.Errorf("assertion %d (%s): unknown calc %q", index, a.Type, a.Calc)
		}
		if a.Tolerance <= 0 {
			return fmt.Errorf("assertion %d (%s): tolerance must be positive", index, a.Type)
		}
	case AssertAnomalyCount:
		if a.Count < 0 {
			return fmt.Errorf("assertion %d (%s): count cannot be negative", index, a.Type)
		}
		if a.Category != "" && !validCategory(a.Category) {
			return fmt.Errorf("assertion %d (%s): unknown category %q", index, a.Type, a.Category)
		}
	case AssertAuditClean:
		// No parameters.
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertion %d (%s): table is required", index, a.Type)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertion %d (%s): expect is required", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertion %d: type is required", index)
	default:
		return fmt.Errorf("assertion %d: unknown type %q", index, a.Type)
	}
	return nil
}

func validStatus(s string) bool {
	switch s {
	case "ok", "degraded", "failed":
		return true
	}
	return false
}

func validCalcType(s string) bool {
	switch calc.Type(s) {
	case calc.TypeRequiredThickness, calc.TypeMAWP, calc.TypeCorrosionRate,
		calc.TypeRemainingLife, calc.TypeNozzleMinimum, calc.TypeReinforcement:
		return true
	}
	return false
}

func validCategory(s string) bool {
	switch anomaly.Category(s) {
	case anomaly.CategoryBelowMinimum, anomaly.CategoryHighRate,
		anomaly.CategoryNegativeLife, anomaly.CategoryMissingEfficiency,
		anomaly.CategoryExcessVariation, anomaly.CategoryUnusualMAWP,
		anomaly.CategoryIncompleteData:
		return true
	}
	return false
}
