// internal/logic/operators.go
package logic

import (
	"strings"

	"github.com/solatis/surveylogic/internal/types"
)

/*
 * Condition operators.
 *
 * Closed operator set. ParseOperator is the only way a configured operator
 * string becomes an Operator, and compare() has exactly one default arm, so an
 * unknown operator always evaluates to false.
 *
 * Families:
 *   - isEmpty/isNotEmpty: emptiness, evaluated before the missing-answer short-circuit
 *   - eq/ne/contains/notContains: stringified comparison, array membership
 *   - gt/gte/lt/lte: strict float parse of both sides
 *   - clickCount* and clickInArea: heatmap only; a missing answer counts as zero clicks
 *   - rowValueEquals/rowIsAnswered/rowIsNotAnswered: matrix row map
 *   - itemAtRankIs/itemIsRanked: ranking list
 *   - bestIs/worstIs: maxdiff {best, worst}
 *   - cardInCategory/categoryHasCards/categoryIsEmpty: cardsort assignments
 */

// Operator is a condition operator.
type Operator string

const (
	OpIsEmpty          Operator = "isEmpty"
	OpIsNotEmpty       Operator = "isNotEmpty"
	OpEq               Operator = "eq"
	OpNe               Operator = "ne"
	OpGt               Operator = "gt"
	OpGte              Operator = "gte"
	OpLt               Operator = "lt"
	OpLte              Operator = "lte"
	OpContains         Operator = "contains"
	OpNotContains      Operator = "notContains"
	OpClickCountEq     Operator = "clickCountEq"
	OpClickCountGt     Operator = "clickCountGt"
	OpClickCountGte    Operator = "clickCountGte"
	OpClickCountLt     Operator = "clickCountLt"
	OpClickCountLte    Operator = "clickCountLte"
	OpClickInArea      Operator = "clickInArea"
	OpRowValueEquals   Operator = "rowValueEquals"
	OpRowIsAnswered    Operator = "rowIsAnswered"
	OpRowIsNotAnswered Operator = "rowIsNotAnswered"
	OpItemAtRankIs     Operator = "itemAtRankIs"
	OpItemIsRanked     Operator = "itemIsRanked"
	OpBestIs           Operator = "bestIs"
	OpWorstIs          Operator = "worstIs"
	OpCardInCategory   Operator = "cardInCategory"
	OpCategoryHasCards Operator = "categoryHasCards"
	OpCategoryIsEmpty  Operator = "categoryIsEmpty"
)

// Operators lists every known operator in declaration order.
var Operators = []Operator{
	OpIsEmpty, OpIsNotEmpty,
	OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains, OpNotContains,
	OpClickCountEq, OpClickCountGt, OpClickCountGte, OpClickCountLt, OpClickCountLte, OpClickInArea,
	OpRowValueEquals, OpRowIsAnswered, OpRowIsNotAnswered,
	OpItemAtRankIs, OpItemIsRanked,
	OpBestIs, OpWorstIs,
	OpCardInCategory, OpCategoryHasCards, OpCategoryIsEmpty,
}

var operatorSet = func() map[Operator]struct{} {
	m := make(map[Operator]struct{}, len(Operators))
	for _, op := range Operators {
		m[op] = struct{}{}
	}
	return m
}()

// ParseOperator converts a configured operator string. Matching is exact.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(s)
	_, ok := operatorSet[op]
	return op, ok
}

// ClickBased reports whether the operator evaluates even without an answer.
func (op Operator) ClickBased() bool {
	switch op {
	case OpClickCountEq, OpClickCountGt, OpClickCountGte, OpClickCountLt, OpClickCountLte, OpClickInArea:
		return true
	default:
		return false
	}
}

// Compound reports whether the condition value is a "first;second" pair.
func (op Operator) Compound() bool {
	switch op {
	case OpRowValueEquals, OpItemAtRankIs, OpCardInCategory:
		return true
	default:
		return false
	}
}

// Numeric reports whether the condition value must parse as a number.
func (op Operator) Numeric() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte,
		OpClickCountEq, OpClickCountGt, OpClickCountGte, OpClickCountLt, OpClickCountLte:
		return true
	default:
		return false
	}
}

// compare applies op to a present answer (or any answer for click operators).
// Returns the result and, for configuration problems, a reason to log.
func compare(op Operator, q *types.Question, answer, value any) (bool, string) {
	switch op {
	case OpEq:
		return compareEqual(answer, value), ""
	case OpNe:
		return !compareEqual(answer, value), ""
	case OpGt, OpGte, OpLt, OpLte:
		return compareNumeric(op, answer, value)
	case OpContains:
		return compareContains(answer, value), ""
	case OpNotContains:
		return !compareContains(answer, value), ""
	case OpClickCountEq, OpClickCountGt, OpClickCountGte, OpClickCountLt, OpClickCountLte:
		return compareClickCount(op, q, answer, value)
	case OpClickInArea:
		return compareClickInArea(q, answer, value)
	case OpRowValueEquals:
		return compareRowValue(answer, value)
	case OpRowIsAnswered:
		return rowAnswered(answer, toText(value)), ""
	case OpRowIsNotAnswered:
		return !rowAnswered(answer, toText(value)), ""
	case OpItemAtRankIs:
		return compareItemAtRank(answer, value)
	case OpItemIsRanked:
		list, ok := asList(answer)
		return ok && listContains(list, toText(value)), ""
	case OpBestIs:
		best, ok := maxDiffPick(answer, "best")
		return ok && best == toText(value), ""
	case OpWorstIs:
		worst, ok := maxDiffPick(answer, "worst")
		return ok && worst == toText(value), ""
	case OpCardInCategory:
		return compareCardInCategory(answer, value)
	case OpCategoryHasCards:
		return categoryHasCards(answer, toText(value)), ""
	case OpCategoryIsEmpty:
		return !categoryHasCards(answer, toText(value)), ""
	default:
		return false, "operator not implemented"
	}
}

// compareEqual is stringified equality, or membership when the answer is a list.
func compareEqual(answer, value any) bool {
	if list, ok := asList(answer); ok {
		return listContains(list, toText(value))
	}
	return toText(answer) == toText(value)
}

// compareNumeric parses both sides as float64. Either side failing to
// parse is a non-match.
func compareNumeric(op Operator, answer, value any) (bool, string) {
	a, ok := toFloat(answer)
	if !ok {
		return false, ""
	}
	b, ok := toFloat(value)
	if !ok {
		return false, "condition value is not numeric"
	}
	switch op {
	case OpGt:
		return a > b, ""
	case OpGte:
		return a >= b, ""
	case OpLt:
		return a < b, ""
	default:
		return a <= b, ""
	}
}

// compareContains is list membership or case-insensitive substring.
// Other answer shapes never contain anything.
func compareContains(answer, value any) bool {
	if list, ok := asList(answer); ok {
		return listContains(list, toText(value))
	}
	s, ok := answer.(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(toText(value)))
}

func compareClickCount(op Operator, q *types.Question, answer, value any) (bool, string) {
	if q.Type != types.QuestionHeatmap {
		return false, "click operator on non-heatmap question"
	}
	want, ok := toInt(value)
	if !ok {
		return false, "condition value is not numeric"
	}
	n := clickCount(answer)
	switch op {
	case OpClickCountEq:
		return n == want, ""
	case OpClickCountGt:
		return n > want, ""
	case OpClickCountGte:
		return n >= want, ""
	case OpClickCountLt:
		return n < want, ""
	default:
		return n <= want, ""
	}
}

func compareClickInArea(q *types.Question, answer, value any) (bool, string) {
	if q.Type != types.QuestionHeatmap {
		return false, "click operator on non-heatmap question"
	}
	if len(q.DefinedHeatmapAreas) == 0 {
		return false, "question has no defined heatmap areas"
	}
	area, ok := q.Area(toText(value))
	if !ok {
		return false, "heatmap area not defined"
	}
	if !area.WellFormed() {
		return false, "heatmap area has non-numeric bounds"
	}
	for _, p := range clickPoints(answer) {
		if area.Contains(p.X, p.Y) {
			return true, ""
		}
	}
	return false, ""
}

func compareRowValue(answer, value any) (bool, string) {
	row, col, ok := splitPair(value)
	if !ok {
		return false, "condition value is not a row;column pair"
	}
	m, ok := asStringMap(answer)
	if !ok {
		return false, ""
	}
	v, present := m[row]
	return present && !isNil(v) && toText(v) == col, ""
}

// rowAnswered reports a non-blank value at row in a matrix answer.
func rowAnswered(answer any, row string) bool {
	m, ok := asStringMap(answer)
	if !ok {
		return false
	}
	v, present := m[row]
	if !present || isNil(v) {
		return false
	}
	return strings.TrimSpace(toText(v)) != ""
}

func compareItemAtRank(answer, value any) (bool, string) {
	rankText, item, ok := splitPair(value)
	if !ok {
		return false, "condition value is not a rank;item pair"
	}
	rank, ok := toInt(rankText)
	if !ok {
		return false, "rank is not numeric"
	}
	list, ok := asList(answer)
	if !ok || rank < 1 || rank > len(list) {
		return false, ""
	}
	return toText(list[rank-1]) == item, ""
}

func compareCardInCategory(answer, value any) (bool, string) {
	card, category, ok := splitPair(value)
	if !ok {
		return false, "condition value is not a card;category pair"
	}
	assignments, ok := asAssignments(answer)
	if !ok {
		return false, ""
	}
	got, present := assignments[card]
	return present && got == category, ""
}

// categoryHasCards reports whether any card is assigned to category.
// categoryIsEmpty is defined as its negation.
func categoryHasCards(answer any, category string) bool {
	assignments, _ := asAssignments(answer)
	for _, got := range assignments {
		if got == category {
			return true
		}
	}
	return false
}
