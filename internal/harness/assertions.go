package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/reanchor/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Identifiers cannot be bound as parameters, so only this shape is
// interpolated into queries.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s injected=%d released=%d kept=%d failed=%d unanchored=%d\n",
				event.Seq, event.Reason, event.Injected, event.Released, event.Kept, event.Failed, event.Unanchored)
		}
	}
	return buf.String()
}

// assertPass checks the counts (and optionally the reason) of one pass.
func assertPass(trace []TraceEvent, assertion Assertion) error {
	idx := slices.IndexFunc(trace, func(e TraceEvent) bool { return e.Seq == assertion.Seq })
	if idx < 0 {
		return &AssertionError{
			Type:     AssertPass,
			Expected: fmt.Sprintf("pass #%d", assertion.Seq),
			Actual:   "not found in trace",
			Trace:    trace,
		}
	}
	event := trace[idx]
	counts := event.counts()

	for _, key := range sortedKeys(assertion.Expect) {
		want := assertion.Expect[key]
		var got any = event.Reason
		if key != "reason" {
			got = counts[key]
		}
		if !valuesEqual(got, want) {
			return &AssertionError{
				Type:     AssertPass,
				Expected: fmt.Sprintf("pass #%d %s = %v", assertion.Seq, key, want),
				Actual:   fmt.Sprintf("%s = %v", key, got),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertPassCount checks the number of passes.
func assertPassCount(trace []TraceEvent, assertion Assertion) error {
	if len(trace) != assertion.Count {
		return &AssertionError{
			Type:     AssertPassCount,
			Expected: fmt.Sprintf("%d passes", assertion.Count),
			Actual:   fmt.Sprintf("%d passes", len(trace)),
			Trace:    trace,
		}
	}
	return nil
}

// assertAnchored checks a config's artifact offsets after the last pass.
func assertAnchored(result *Result, assertion Assertion) error {
	last, ok := result.LastPass()
	if !ok {
		return &AssertionError{
			Type:     AssertAnchored,
			Expected: fmt.Sprintf("config %s anchored at %v", assertion.Config, assertion.Offsets),
			Actual:   "no pass ran",
		}
	}

	got := last.Anchors[assertion.Config]
	want := assertion.Offsets
	if len(got) == 0 && len(want) == 0 {
		return nil
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertAnchored,
			Expected: fmt.Sprintf("config %s anchored at %v", assertion.Config, want),
			Actual:   fmt.Sprintf("anchored at %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTagged checks which elements carry a config's id at the end.
func assertTagged(result *Result, assertion Assertion) error {
	got := result.Tagged[assertion.Config]
	if len(got) == 0 && len(assertion.Elements) == 0 {
		return nil
	}
	if !slices.Equal(got, assertion.Elements) {
		return &AssertionError{
			Type:     AssertTagged,
			Expected: fmt.Sprintf("config %s tags %v", assertion.Config, assertion.Elements),
			Actual:   fmt.Sprintf("tags %v", got),
		}
	}
	return nil
}

// assertFinalState checks that exactly one row of an audit table matches
// the where clause and holds the expected values (subset semantics).
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are
// sorted for determinism; column names must be plain identifiers.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL argument.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares an expected YAML value with a SQLite column
// value. SQLite returns integers as int64 and text as string or []byte.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		actualInt, ok := actual.(int64)
		return ok && int64(exp) == actualInt
	case int64:
		actualInt, ok := actual.(int64)
		return ok && exp == actualInt
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		actualInt, ok := actual.(int64)
		return ok && exp == (actualInt != 0)
	}

	return reflect.DeepEqual(expected, actual)
}

// valuesEqual compares a trace value with an expected YAML value.
func valuesEqual(actual, expected any) bool {
	if a, ok := actual.(int); ok {
		if e, ok := expected.(int); ok {
			return a == e
		}
	}
	return reflect.DeepEqual(actual, expected)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides database access for final_state assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPass:
			err = assertPass(result.Trace, assertion)
		case AssertPassCount:
			err = assertPassCount(result.Trace, assertion)
		case AssertAnchored:
			err = assertAnchored(result, assertion)
		case AssertTagged:
			err = assertTagged(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
