// internal/logic/evaluate.go
package logic

import (
	"github.com/rs/zerolog"

	"github.com/solatis/surveylogic/internal/types"
)

/*
 * Rule evaluation orchestration.
 *
 * Evaluates ordered LogicRules against an answer Snapshot: rule -> groups ->
 * conditions, each level an AND/OR with short-circuit.
 *
 * Evaluation flow:
 *   1. Rules in author order; first rule evaluating true wins
 *   2. Rule: overallOperator over groups (rules without groups are skipped)
 *   3. Group: groupOperator over conditions (empty group passes)
 *   4. Condition: resolve source question -> emptiness operators ->
 *      missing-answer short-circuit (except click operators) -> compare
 *
 * Failure policy: configuration errors (unknown operator, dangling question,
 * malformed area, non-numeric operand, unknown AND/OR) evaluate to false and
 * are logged at Warn. Nothing here returns an error or panics; a broken rule
 * set degrades to linear survey flow.
 */

// evaluateCondition evaluates one condition. log carries the rule context.
func evaluateCondition(log zerolog.Logger, cond types.Condition, snap Snapshot, questions QuestionIndex) bool {
	q, ok := questions[cond.SourceQuestionID]
	if !ok || q == nil {
		warnCondition(log, cond, "source question not found")
		return false
	}

	op, ok := ParseOperator(cond.ConditionOperator)
	if !ok {
		warnCondition(log, cond, "unknown operator")
		return false
	}

	answer, _ := snap.Get(cond.SourceQuestionID)

	switch op {
	case OpIsEmpty:
		return isEmptyValue(answer)
	case OpIsNotEmpty:
		return !isEmptyValue(answer)
	}

	if isNil(answer) && !op.ClickBased() {
		return false
	}

	matched, reason := compare(op, q, answer, cond.ConditionValue)
	if reason != "" {
		warnCondition(log, cond, reason)
	}
	return matched
}

// evaluateGroup combines a group's conditions with its operator.
func evaluateGroup(log zerolog.Logger, group types.LogicGroup, snap Snapshot, questions QuestionIndex) bool {
	if len(group.Conditions) == 0 {
		log.Warn().Str("reason", "empty group passes").Msg("permissive logic group")
		return true
	}
	matched, known := combine(group.GroupOperator, len(group.Conditions), func(i int) bool {
		return evaluateCondition(log, group.Conditions[i], snap, questions)
	})
	if !known {
		log.Warn().
			Str("operator", string(group.GroupOperator)).
			Str("reason", "unknown group operator").
			Msg("logic group evaluated to false")
	}
	return matched
}

// evaluateRule combines a rule's groups with its overall operator.
// Callers skip rules without groups before calling.
func evaluateRule(log zerolog.Logger, rule types.LogicRule, snap Snapshot, questions QuestionIndex) bool {
	matched, known := combine(rule.OverallOperator, len(rule.Groups), func(i int) bool {
		return evaluateGroup(log, rule.Groups[i], snap, questions)
	})
	if !known {
		log.Warn().
			Str("operator", string(rule.OverallOperator)).
			Str("reason", "unknown overall operator").
			Msg("logic rule evaluated to false")
	}
	return matched
}

// combine folds n boolean terms with AND/OR semantics, short-circuiting.
// known is false for any other operator, which evaluates to false.
func combine(op types.LogicOperator, n int, term func(i int) bool) (matched, known bool) {
	switch op {
	case types.OperatorAnd:
		for i := 0; i < n; i++ {
			if !term(i) {
				return false, true
			}
		}
		return true, true
	case types.OperatorOr:
		for i := 0; i < n; i++ {
			if term(i) {
				return true, true
			}
		}
		return false, true
	default:
		return false, false
	}
}

func warnCondition(log zerolog.Logger, cond types.Condition, reason string) {
	log.Warn().
		Str("question", string(cond.SourceQuestionID)).
		Str("operator", cond.ConditionOperator).
		Str("reason", reason).
		Msg("logic condition evaluated to false")
}
