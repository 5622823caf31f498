package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/snap"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// Columns holding structured data store canonical JSON TEXT so equal
// records serialize to equal bytes; database dumps diff cleanly and
// golden traces stay stable.

// storeTime renders a timestamp column value: RFC 3339 in UTC.
func storeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a timestamp column. Empty means zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// marshalGeometry converts a geometry variant to canonical JSON TEXT.
func marshalGeometry(g vessel.Geometry) (string, error) {
	var obj snap.Object
	switch v := g.(type) {
	case vessel.Shell:
		obj = snap.Object{"inside_radius": snap.Float(v.InsideRadius)}
	case vessel.EllipsoidalHead:
		obj = snap.Object{"inside_diameter": snap.Float(v.InsideDiameter)}
	case vessel.TorisphericalHead:
		obj = snap.Object{
			"crown_radius":   snap.Float(v.CrownRadius),
			"knuckle_radius": snap.Float(v.KnuckleRadius),
		}
	case vessel.HemisphericalHead:
		obj = snap.Object{"inside_radius": snap.Float(v.InsideRadius)}
	case vessel.Nozzle:
		obj = snap.Object{
			"outside_diameter": snap.Float(v.OutsideDiameter),
			"nominal_wall":     snap.Float(v.NominalWall),
			"parent":           snap.String(v.Parent),
		}
		if v.ToleranceOverride != nil {
			obj["tolerance_override"] = snap.Float(*v.ToleranceOverride)
		}
	default:
		return "", fmt.Errorf("marshal geometry: unsupported kind %q", g.Kind())
	}

	data, err := snap.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal geometry: %w", err)
	}
	return string(data), nil
}

// unmarshalGeometry reconstructs a geometry variant from its kind
// label and JSON TEXT.
func unmarshalGeometry(kind, data string) (vessel.Geometry, error) {
	k, err := vessel.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("unmarshal geometry: %w", err)
	}

	switch k {
	case vessel.KindShell:
		var v struct {
			InsideRadius float64 `json:"inside_radius"`
		}
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("unmarshal shell geometry: %w", err)
		}
		return vessel.Shell{InsideRadius: v.InsideRadius}, nil
	case vessel.KindEllipsoidalHead:
		var v struct {
			InsideDiameter float64 `json:"inside_diameter"`
		}
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("unmarshal ellipsoidal geometry: %w", err)
		}
		return vessel.EllipsoidalHead{InsideDiameter: v.InsideDiameter}, nil
	case vessel.KindTorisphericalHead:
		var v struct {
			CrownRadius   float64 `json:"crown_radius"`
			KnuckleRadius float64 `json:"knuckle_radius"`
		}
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("unmarshal torispherical geometry: %w", err)
		}
		return vessel.TorisphericalHead{CrownRadius: v.CrownRadius, KnuckleRadius: v.KnuckleRadius}, nil
	case vessel.KindHemisphericalHead:
		var v struct {
			InsideRadius float64 `json:"inside_radius"`
		}
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("unmarshal hemispherical geometry: %w", err)
		}
		return vessel.HemisphericalHead{InsideRadius: v.InsideRadius}, nil
	case vessel.KindNozzle:
		var v struct {
			OutsideDiameter   float64  `json:"outside_diameter"`
			NominalWall       float64  `json:"nominal_wall"`
			Parent            string   `json:"parent"`
			ToleranceOverride *float64 `json:"tolerance_override"`
		}
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("unmarshal nozzle geometry: %w", err)
		}
		return vessel.Nozzle{
			OutsideDiameter:   v.OutsideDiameter,
			NominalWall:       v.NominalWall,
			Parent:            v.Parent,
			ToleranceOverride: v.ToleranceOverride,
		}, nil
	default:
		return nil, fmt.Errorf("unmarshal geometry: unsupported kind %q", kind)
	}
}

// marshalReadings converts survey readings to canonical JSON TEXT.
func marshalReadings(readings []float64) (string, error) {
	arr := make(snap.Array, len(readings))
	for i, r := range readings {
		arr[i] = snap.Float(r)
	}
	data, err := snap.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal readings: %w", err)
	}
	return string(data), nil
}

// unmarshalReadings parses survey readings from JSON TEXT.
func unmarshalReadings(data string) ([]float64, error) {
	var readings []float64
	if err := json.Unmarshal([]byte(data), &readings); err != nil {
		return nil, fmt.Errorf("unmarshal readings: %w", err)
	}
	return readings, nil
}

// marshalIntermediates converts the ordered intermediate list to
// canonical JSON TEXT. Order is part of the record: intermediates read
// back in the order the calculator emitted them.
func marshalIntermediates(ivs []calc.Intermediate) (string, error) {
	arr := make(snap.Array, len(ivs))
	for i, iv := range ivs {
		arr[i] = snap.Object{
			"name":  snap.String(iv.Name),
			"unit":  snap.String(iv.Unit),
			"value": snap.Float(iv.Value),
		}
	}
	data, err := snap.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal intermediates: %w", err)
	}
	return string(data), nil
}

// unmarshalIntermediates parses the intermediate list from JSON TEXT.
func unmarshalIntermediates(data string) ([]calc.Intermediate, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var raw []struct {
		Name  string  `json:"name"`
		Unit  string  `json:"unit"`
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal intermediates: %w", err)
	}
	ivs := make([]calc.Intermediate, len(raw))
	for i, r := range raw {
		ivs[i] = calc.Intermediate{Name: r.Name, Unit: r.Unit, Value: r.Value}
	}
	return ivs, nil
}

// marshalWarnings converts warning strings to canonical JSON TEXT.
func marshalWarnings(warnings []string) (string, error) {
	arr := make(snap.Array, len(warnings))
	for i, w := range warnings {
		arr[i] = snap.String(w)
	}
	data, err := snap.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}
	return string(data), nil
}

// unmarshalWarnings parses warning strings from JSON TEXT.
func unmarshalWarnings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var warnings []string
	if err := json.Unmarshal([]byte(data), &warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	return warnings, nil
}

// marshalInputs converts an input snapshot to canonical JSON TEXT.
// The stored bytes are exactly the bytes the content hash covers.
func marshalInputs(inputs snap.Object) (string, error) {
	data, err := snap.MarshalCanonical(inputs)
	if err != nil {
		return "", fmt.Errorf("marshal inputs: %w", err)
	}
	return string(data), nil
}

// unmarshalInputs parses an input snapshot from canonical JSON TEXT.
// Uses snap.Object.UnmarshalJSON, which preserves the Int/Float
// distinction via json.Number so rehashing reproduces the stored hash.
func unmarshalInputs(data string) (snap.Object, error) {
	if data == "" || data == "{}" {
		return snap.Object{}, nil
	}
	var obj snap.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	return obj, nil
}
