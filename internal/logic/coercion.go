// internal/logic/coercion.go
package logic

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/surveylogic/internal/types"
)

/*
 * Answer shape coercion.
 *
 * Answers arrive either JSON-decoded (string, float64, []any, map[string]any)
 * or as typed Go values ([]string, map[string]string, types.MaxDiffAnswer,
 * []types.ClickPoint). Each as*() helper accepts both and reports ok=false on a
 * shape mismatch so operators degrade to their natural non-match instead of
 * panicking.
 *
 * Text conversion mirrors how condition values are authored: numbers print in
 * shortest form ("3", "2.5"), booleans as "true"/"false", null as "null".
 * Numeric parsing is strict: strings are trimmed and must parse completely.
 */

// toText converts a scalar to its comparison string.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case types.QuestionID:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toFloat converts numbers and numeric strings to float64.
// Booleans, blank strings, and composite values fail.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toInt converts to an integer, truncating fractional values.
func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

// isNil reports untyped nil and nil pointers, slices, and maps.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	default:
		return false
	}
}

// isEmptyValue implements isEmpty: nil, blank-after-trim strings, empty
// lists, and empty maps are empty. Zero-valued structs (an unanswered typed
// shape) are empty. A time.Time is never empty.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case time.Time:
		return false
	case *time.Time:
		return t == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isEmptyValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Struct:
		return rv.IsZero()
	default:
		return false
	}
}

// asList returns the elements of any slice or array value. Strings are not lists.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case string, []byte, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// listContains is stringified membership.
func listContains(list []any, want string) bool {
	for _, elem := range list {
		if toText(elem) == want {
			return true
		}
	}
	return false
}

// asStringMap returns a map keyed by string, from any map with string keys.
func asStringMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// maxDiffPick reads the "best" or "worst" pick of a maxdiff answer. A
// missing or null pick is reported as absent.
func maxDiffPick(v any, key string) (string, bool) {
	var md types.MaxDiffAnswer
	switch t := v.(type) {
	case types.MaxDiffAnswer:
		md = t
	case *types.MaxDiffAnswer:
		if t == nil {
			return "", false
		}
		md = *t
	default:
		m, ok := asStringMap(v)
		if !ok {
			return "", false
		}
		pick, ok := m[key]
		if !ok || isNil(pick) {
			return "", false
		}
		return toText(pick), true
	}
	pick := md.Best
	if key == "worst" {
		pick = md.Worst
	}
	return pick, pick != ""
}

// asAssignments reads the card -> category map of a cardsort answer.
func asAssignments(v any) (map[string]string, bool) {
	switch t := v.(type) {
	case types.CardSortAnswer:
		return t.Assignments, true
	case *types.CardSortAnswer:
		if t == nil {
			return nil, false
		}
		return t.Assignments, true
	}
	m, ok := asStringMap(v)
	if !ok {
		return nil, false
	}
	raw, ok := asStringMap(m["assignments"])
	if !ok {
		return map[string]string{}, true
	}
	out := make(map[string]string, len(raw))
	for card, category := range raw {
		if isNil(category) {
			continue
		}
		out[card] = toText(category)
	}
	return out, true
}

// clickCount is the number of recorded clicks; a missing or mis-shaped
// answer has zero.
func clickCount(v any) int {
	list, ok := asList(v)
	if !ok {
		return 0
	}
	return len(list)
}

// clickPoints returns the well-formed click points of a heatmap answer.
func clickPoints(v any) []types.ClickPoint {
	if pts, ok := v.([]types.ClickPoint); ok {
		return pts
	}
	list, ok := asList(v)
	if !ok {
		return nil
	}
	out := make([]types.ClickPoint, 0, len(list))
	for _, elem := range list {
		switch p := elem.(type) {
		case types.ClickPoint:
			out = append(out, p)
			continue
		case *types.ClickPoint:
			if p != nil {
				out = append(out, *p)
			}
			continue
		}
		m, ok := asStringMap(elem)
		if !ok {
			continue
		}
		x, okx := toFloat(m["x"])
		y, oky := toFloat(m["y"])
		if !okx || !oky {
			continue
		}
		out = append(out, types.ClickPoint{X: x, Y: y})
	}
	return out
}

// splitPair splits a compound "first;second" condition value at the first ';'.
func splitPair(v any) (string, string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", "", false
	}
	first, second, found := strings.Cut(s, ";")
	if !found {
		return "", "", false
	}
	return first, second, true
}
