package harness

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/verity-ndt/tminus/internal/store"
)

// validIdentifier guards table and column names interpolated into
// final_state queries. Values always go through placeholders.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionContext carries what store-backed assertions need.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store
}

// AssertionError is a failed assertion with enough context to debug
// it: what was expected, what actually happened, and the full trace.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual:   %s\n", e.Actual)
	if len(e.Trace) > 0 {
		buf.WriteString("\nfull trace:\n")
		for i, event := range e.Trace {
			switch event.Type {
			case "result":
				fmt.Fprintf(&buf, "  [%d] %s %s = %v %s\n", i+1, event.Component, event.Calc, event.Value, event.Unit)
			case "anomaly":
				fmt.Fprintf(&buf, "  [%d] %s anomaly %s (%s)\n", i+1, event.Component, event.Category, event.Severity)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against a completed run and
// returns one failure message per failed assertion, in order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertResultPresent:
			err = assertResultPresent(result.Trace, a)
		case AssertResultValue:
			err = assertResultValue(result.Trace, a)
		case AssertAnomalyCount:
			err = assertAnomalyCount(result.Trace, a)
		case AssertAuditClean:
			err = assertAuditClean(actx.Ctx, actx.Store)
		case AssertFinalState:
			err = assertFinalState(actx.Ctx, actx.Store, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func assertResultPresent(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type == "result" && event.Component == a.Component && event.Calc == a.Calc {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertResultPresent,
		Expected: fmt.Sprintf("%s result for component %s", a.Calc, a.Component),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertResultValue(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type != "result" || event.Component != a.Component || event.Calc != a.Calc {
			continue
		}
		if math.Abs(event.Value-a.Value) <= a.Tolerance {
			return nil
		}
		return &AssertionError{
			Type:     AssertResultValue,
			Expected: fmt.Sprintf("%s for %s within %v of %v", a.Calc, a.Component, a.Tolerance, a.Value),
			Actual:   fmt.Sprintf("%v", event.Value),
			Trace:    trace,
		}
	}
	return &AssertionError{
		Type:     AssertResultValue,
		Expected: fmt.Sprintf("%s result for component %s", a.Calc, a.Component),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertAnomalyCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type != "anomaly" {
			continue
		}
		if a.Component != "" && event.Component != a.Component {
			continue
		}
		if a.Category != "" && event.Category != a.Category {
			continue
		}
		count++
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertAnomalyCount,
			Expected: fmt.Sprintf("%d anomalies%s", a.Count, anomalyFilter(a)),
			Actual:   fmt.Sprintf("%d anomalies", count),
			Trace:    trace,
		}
	}
	return nil
}

func anomalyFilter(a Assertion) string {
	var parts []string
	if a.Component != "" {
		parts = append(parts, "component "+a.Component)
	}
	if a.Category != "" {
		parts = append(parts, "category "+a.Category)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// assertAuditClean re-verifies the persisted audit trail of every
// audited component and checks that no run left results without audit
// coverage.
func assertAuditClean(ctx context.Context, st *store.Store) error {
	ids, err := st.ListAuditedComponents(ctx)
	if err != nil {
		return fmt.Errorf("audit_clean: list components: %w", err)
	}
	for _, id := range ids {
		findings, err := st.VerifyAuditTrail(ctx, id)
		if err != nil {
			return fmt.Errorf("audit_clean: verify %s: %w", id, err)
		}
		if len(findings) > 0 {
			return &AssertionError{
				Type:     AssertAuditClean,
				Expected: "every audit entry verifies against its snapshot",
				Actual:   fmt.Sprintf("%d finding(s) for %s, first: %v", len(findings), id, findings[0].Err),
			}
		}
	}
	incomplete, err := st.FindIncompleteRuns(ctx)
	if err != nil {
		return fmt.Errorf("audit_clean: incomplete runs: %w", err)
	}
	if len(incomplete) > 0 {
		return &AssertionError{
			Type:     AssertAuditClean,
			Expected: "every result covered by an audit entry",
			Actual:   fmt.Sprintf("%d run(s) without full coverage: %s", len(incomplete), strings.Join(incomplete, ", ")),
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of the given table
// matches the where filter and carries the expected column values.
// Expect is a subset match: columns not named are ignored.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("final_state: invalid table name %q", a.Table)
	}
	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}
	query := "SELECT * FROM " + a.Table
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.DB().QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return fmt.Errorf("final_state: query %s: %w", a.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("final_state: columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("final_state: scan %s: %w", a.Table, err)
		}
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("one row in %s matching %v", a.Table, a.Where),
			Actual:   "no matching row",
		}
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return fmt.Errorf("final_state: scan %s: %w", a.Table, err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("one row in %s matching %v", a.Table, a.Where),
			Actual:   "more than one matching row; tighten the where filter",
		}
	}

	row := make(map[string]any, len(cols))
	for i, c := range cols {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[c] = v
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		want := a.Expect[k]
		got, ok := row[k]
		if !ok {
			return fmt.Errorf("final_state: table %s has no column %q", a.Table, k)
		}
		if !stateValuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", a.Table, k, want),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
	}
	return nil
}

// buildWhereClause builds a parameterized WHERE clause with sorted
// column order so queries are deterministic.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		if !validIdentifier.MatchString(k) {
			return "", nil, fmt.Errorf("final_state: invalid column name %q", k)
		}
		clauses = append(clauses, k+" = ?")
		args = append(args, where[k])
	}
	return strings.Join(clauses, " AND "), args, nil
}

// stateValuesEqual compares a YAML-decoded expectation against a
// database value, coercing across the numeric and boolean
// representations SQLite hands back.
func stateValuesEqual(expected, actual any) bool {
	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}
	switch e := expected.(type) {
	case string:
		a, ok := actual.(string)
		return ok && e == a
	case bool:
		switch a := actual.(type) {
		case bool:
			return e == a
		case int64:
			return e == (a != 0)
		}
	case int:
		switch a := actual.(type) {
		case int64:
			return int64(e) == a
		case float64:
			return float64(e) == a
		}
	case int64:
		switch a := actual.(type) {
		case int64:
			return e == a
		case float64:
			return float64(e) == a
		}
	case float64:
		switch a := actual.(type) {
		case float64:
			return e == a
		case int64:
			return e == float64(a)
		}
	}
	return reflect.DeepEqual(expected, actual)
}
