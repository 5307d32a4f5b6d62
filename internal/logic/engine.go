// Package logic evaluates survey skip logic: ordered rules of AND/OR groups of
// conditions over a respondent's answers, returning the navigation action of
// the first rule that fires.
//
// Evaluation is pure and synchronous. An Engine holds only a logger, so one
// instance may be shared by any number of concurrent requests.
package logic

import (
	"github.com/rs/zerolog"

	"github.com/solatis/surveylogic/internal/types"
)

// Engine evaluates logic rules and logs configuration problems it fails closed on.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates an engine that reports configuration warnings to logger.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "logic").Logger()}
}

var defaultEngine = NewEngine(zerolog.Nop())

// Result describes the outcome of walking a rule list.
type Result struct {
	Matched   bool
	RuleIndex int // -1 when nothing matched
	RuleName  string
	Action    types.Action
}

// ActionOrNil returns a copy of the fired action, or nil when no rule fired.
func (r Result) ActionOrNil() *types.Action {
	if !r.Matched {
		return nil
	}
	action := r.Action
	return &action
}

// Evaluate walks rules in order against a prepared snapshot and index.
// The first rule evaluating true wins; later rules are not evaluated.
func (e *Engine) Evaluate(rules []types.LogicRule, snap Snapshot, questions QuestionIndex) Result {
	result := Result{RuleIndex: -1}
	if len(rules) == 0 {
		return result
	}
	if len(questions) == 0 {
		e.logger.Warn().Int("rules", len(rules)).Msg("logic evaluation skipped: no questions supplied")
		return result
	}

	for i, rule := range rules {
		log := e.logger.With().Str("rule", rule.RuleName).Int("rule_index", i).Logger()
		if len(rule.Groups) == 0 {
			log.Warn().Str("reason", "rule has no groups").Msg("logic rule skipped")
			continue
		}
		if evaluateRule(log, rule, snap, questions) {
			result.Matched = true
			result.RuleIndex = i
			result.RuleName = rule.RuleName
			result.Action = rule.Action
			return result
		}
	}
	return result
}

// EvaluateAll builds the snapshot from answer records and returns the action
// of the first firing rule, or nil.
func (e *Engine) EvaluateAll(rules []types.LogicRule, answers []types.AnswerRecord, questions []types.Question) *types.Action {
	if len(rules) == 0 {
		return nil
	}
	return e.Evaluate(rules, NewSnapshot(answers), IndexQuestions(questions)).ActionOrNil()
}

// EvaluateAnswerMap is EvaluateAll for clients holding a questionId -> value map.
func (e *Engine) EvaluateAnswerMap(rules []types.LogicRule, answers map[string]any, questions []types.Question) *types.Action {
	if len(rules) == 0 {
		return nil
	}
	return e.Evaluate(rules, SnapshotFromMap(answers), IndexQuestions(questions)).ActionOrNil()
}

// EvaluateCondition evaluates a single condition.
func (e *Engine) EvaluateCondition(cond types.Condition, snap Snapshot, questions QuestionIndex) bool {
	return evaluateCondition(e.logger, cond, snap, questions)
}

// EvaluateLogicGroup evaluates a single group.
func (e *Engine) EvaluateLogicGroup(group types.LogicGroup, snap Snapshot, questions QuestionIndex) bool {
	return evaluateGroup(e.logger, group, snap, questions)
}

// EvaluateAllLogic evaluates rules without logging.
func EvaluateAllLogic(rules []types.LogicRule, answers []types.AnswerRecord, questions []types.Question) *types.Action {
	return defaultEngine.EvaluateAll(rules, answers, questions)
}

// EvaluateCondition evaluates one condition without logging.
func EvaluateCondition(cond types.Condition, snap Snapshot, questions QuestionIndex) bool {
	return defaultEngine.EvaluateCondition(cond, snap, questions)
}

// EvaluateLogicGroup evaluates one group without logging.
func EvaluateLogicGroup(group types.LogicGroup, snap Snapshot, questions QuestionIndex) bool {
	return defaultEngine.EvaluateLogicGroup(group, snap, questions)
}
