package stress

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// tableDoc is the YAML wire form of a stress table.
type tableDoc struct {
	Version   string                `yaml:"version"`
	Materials map[string][]pointDoc `yaml:"materials"`
}

type pointDoc struct {
	TemperatureF float64 `yaml:"temperature_f"`
	StressPSI    float64 `yaml:"stress_psi"`
}

// ParseYAML decodes and validates a stress table document.
// Unknown fields are rejected so a typo in a dataset cannot silently
// drop a column.
func ParseYAML(data []byte) (*Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc tableDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse stress table: %w", err)
	}

	materials := make(map[string][]Point, len(doc.Materials))
	for spec, points := range doc.Materials {
		converted := make([]Point, len(points))
		for i, p := range points {
			converted[i] = Point{TemperatureF: p.TemperatureF, StressPSI: p.StressPSI}
		}
		materials[spec] = converted
	}

	return NewTable(doc.Version, materials)
}

// LoadFile reads and parses a stress table from a YAML file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load stress table: %w", err)
	}
	table, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("load stress table %s: %w", path, err)
	}
	return table, nil
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return ParseYAML(defaultsYAML)
})

// Default returns the stress table compiled into the binary. It is the
// fallback when no dataset has been loaded into the store.
func Default() (*Table, error) {
	return loadDefault()
}
