// internal/types/rules.go
package types

/*
 * Domain types for skip-logic evaluation.
 *
 * Provides LogicRule, LogicGroup, Condition, and Action structures used by
 * internal/logic for evaluation and internal/navigation for applying the
 * result. Rules are authored once in survey/question documents and are
 * read-only during evaluation.
 *
 * Key types:
 *   - LogicRule: named AND/OR over groups, paired with one Action
 *   - LogicGroup: AND/OR over conditions
 *   - Condition: one operator comparing a source question's answer to a value
 *   - Action: navigation effect applied when the rule fires
 *
 * Operator is a plain string here; internal/logic owns the closed operator set
 * so unknown operators survive decoding and fail closed at evaluation.
 */

// LogicOperator combines groups or conditions.
type LogicOperator string

const (
	OperatorAnd LogicOperator = "AND"
	OperatorOr  LogicOperator = "OR"
)

// Condition is an atomic comparison against one question's answer.
// ConditionValue is operator-dependent: a scalar, an area id, or a compound
// "a;b" string.
type Condition struct {
	SourceQuestionID  QuestionID `json:"sourceQuestionId" validate:"required"`
	ConditionOperator string     `json:"conditionOperator" validate:"required,skipoperator"`
	ConditionValue    any        `json:"conditionValue,omitempty"`
}

// LogicGroup combines conditions with GroupOperator.
type LogicGroup struct {
	GroupOperator LogicOperator `json:"groupOperator" validate:"required,oneof=AND OR"`
	Conditions    []Condition   `json:"conditions" validate:"dive"`
}

// LogicRule combines groups with OverallOperator and fires Action when true.
type LogicRule struct {
	RuleName        string        `json:"ruleName" validate:"required"`
	OverallOperator LogicOperator `json:"overallOperator" validate:"required,oneof=AND OR"`
	Groups          []LogicGroup  `json:"groups" validate:"dive"`
	Action          Action        `json:"action"`
}

// ActionType is the navigation effect of a fired rule.
type ActionType string

const (
	ActionSkipToQuestion       ActionType = "skipToQuestion"
	ActionHideQuestion         ActionType = "hideQuestion"
	ActionJumpToEndOfSurvey    ActionType = "jumpToEndOfSurvey"
	ActionDisqualifyRespondent ActionType = "disqualifyRespondent"
	ActionMarkAsCompleted      ActionType = "markAsCompleted"
)

// NeedsTarget reports whether the action type requires TargetQuestionID.
func (t ActionType) NeedsTarget() bool {
	return t == ActionSkipToQuestion || t == ActionHideQuestion
}

// Action is returned by the engine when a rule fires.
type Action struct {
	Type                    ActionType `json:"type" validate:"required,oneof=skipToQuestion hideQuestion jumpToEndOfSurvey disqualifyRespondent markAsCompleted"`
	TargetQuestionID        QuestionID `json:"targetQuestionId,omitempty" validate:"required_if=Type skipToQuestion,required_if=Type hideQuestion"`
	DisqualificationMessage string     `json:"disqualificationMessage,omitempty"`
}
