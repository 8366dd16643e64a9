package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/cellstore/internal/cell"
	"github.com/roach88/cellstore/internal/poi"
)

// AssertionContext provides what assertions need to query the final store.
type AssertionContext struct {
	Store *poi.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. Evaluation continues past failures.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(actx, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(actx *AssertionContext, a Assertion) error {
	switch a.Type {
	case AssertPoiExists:
		return assertPoiExists(actx, a)
	case AssertPoiAbsent:
		return assertPoiAbsent(actx, a)
	case AssertCellPoiCount, AssertCellKindCount, AssertCellAbsent:
		return assertCell(actx, a)
	case AssertLeafCount, AssertLeafKindCount, AssertLeafLastFetch:
		return assertLeaf(actx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertPoiExists(actx *AssertionContext, a Assertion) error {
	rec, err := actx.Store.Poi(actx.Ctx, a.GUID)
	if err != nil {
		return err
	}
	if rec == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("poi %s stored", a.GUID),
			Actual:   "not found",
		}
	}
	if len(a.Expect) == 0 {
		return nil
	}

	fields, err := poiFields(rec)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(a.Expect) {
		want := a.Expect[key]
		got, ok := fields[key]
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("poi %s field %q = %v", a.GUID, key, want),
				Actual:   "field not present",
			}
		}
		if !valuesEqual(want, got) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("poi %s field %q = %v (type %T)", a.GUID, key, want, want),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, got, got),
			}
		}
	}
	return nil
}

func assertPoiAbsent(actx *AssertionContext, a Assertion) error {
	rec, err := actx.Store.Poi(actx.Ctx, a.GUID)
	if err != nil {
		return err
	}
	if rec != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("poi %s absent", a.GUID),
			Actual:   fmt.Sprintf("stored as %q at (%v, %v)", rec.Name, rec.Lat, rec.Lng),
		}
	}
	return nil
}

func assertCell(actx *AssertionContext, a Assertion) error {
	ll := cell.LatLng{Lat: a.At[0], Lng: a.At[1]}
	stats, err := actx.Store.CellStatsAt(actx.Ctx, ll)
	if err != nil {
		return err
	}

	if a.Type == AssertCellAbsent {
		if stats != nil {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("no statistics for cell %s", stats.ID),
				Actual:   fmt.Sprintf("%d pois, %d leaves", len(stats.Pois), len(stats.Level17)),
			}
		}
		return nil
	}

	got := 0
	if stats != nil {
		if a.Type == AssertCellKindCount {
			got = len(stats.KindToPois[a.Kind])
		} else {
			got = len(stats.Pois)
		}
	}
	return checkCount(a, fmt.Sprintf("cell at %v", ll), got)
}

func assertLeaf(actx *AssertionContext, a Assertion) error {
	ll := cell.LatLng{Lat: a.At[0], Lng: a.At[1]}
	stats, err := actx.Store.CellStatsAt(actx.Ctx, ll)
	if err != nil {
		return err
	}

	var leaf *poi.SubCellStats
	if stats != nil {
		leaf = stats.Level17[cell.MustIDOf(ll, poi.LeafLevel)]
	}

	switch a.Type {
	case AssertLeafCount:
		got := 0
		if stats != nil {
			got = len(stats.Level17)
		}
		return checkCount(a, fmt.Sprintf("leaves of cell at %v", ll), got)
	case AssertLeafKindCount:
		got := 0
		if leaf != nil {
			got = leaf.Kinds[a.Kind]
		}
		return checkCount(a, fmt.Sprintf("leaf at %v", ll), got)
	default:
		var got int64
		if leaf != nil {
			got = leaf.LastFetchDate
		}
		if got != a.FetchDate {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("leaf at %v last fetched at %d", ll, a.FetchDate),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
		return nil
	}
}

func checkCount(a Assertion, what string, got int) error {
	if got == a.Count {
		return nil
	}
	subject := what
	if a.Kind != "" {
		subject = fmt.Sprintf("%s kind %s", what, a.Kind)
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s count %d", subject, a.Count),
		Actual:   fmt.Sprintf("%d", got),
	}
}

// poiFields returns the record's JSON fields plus its derived kind.
func poiFields(rec *poi.PoiRecord) (map[string]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode poi %s: %w", rec.GUID, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode poi %s: %w", rec.GUID, err)
	}
	fields["kind"] = rec.Kind()
	return fields, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valuesEqual compares a YAML-decoded expected value with a JSON-decoded
// actual value. YAML yields int for integers where JSON yields float64.
func valuesEqual(expected, actual any) bool {
	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && ef == af
	}

	switch exp := expected.(type) {
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(exp[i], act[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			if !valuesEqual(v, act[k]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(expected, actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
