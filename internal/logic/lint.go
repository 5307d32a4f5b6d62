// internal/logic/lint.go
package logic

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/solatis/surveylogic/internal/types"
)

/*
 * Static rule-set checks.
 *
 * Lint reports everything the engine would silently fail closed on, so
 * authors and operators can see it before respondents do. It never changes
 * evaluation: a rule set with issues still evaluates exactly as documented.
 *
 * Structural checks run through validator struct tags on internal/types
 * (required fields, AND/OR, action types, target for skip/hide, operator set).
 * Cross-reference checks (questions, heatmap areas, compound values) need the
 * question list and are done by hand below.
 */

// LintIssue is one configuration problem. Group and Condition are -1 when
// the issue is not specific to one.
type LintIssue struct {
	Scope     string `json:"scope,omitempty"`
	Rule      int    `json:"rule"`
	Group     int    `json:"group"`
	Condition int    `json:"condition"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

func (i LintIssue) String() string {
	var parts []string
	if i.Scope != "" {
		parts = append(parts, i.Scope)
	}
	if i.Rule >= 0 {
		loc := fmt.Sprintf("rule[%d]", i.Rule)
		if i.Group >= 0 {
			loc += fmt.Sprintf(".groups[%d]", i.Group)
		}
		if i.Condition >= 0 {
			loc += fmt.Sprintf(".conditions[%d]", i.Condition)
		}
		parts = append(parts, loc)
	} else if i.Scope == "" {
		parts = append(parts, "rules")
	}
	if i.Field != "" {
		parts = append(parts, i.Field)
	}
	return strings.Join(parts, " ") + ": " + i.Message
}

var validate = mustValidator()

func mustValidator() *validator.Validate {
	v, err := newValidator()
	if err != nil {
		panic(err)
	}
	return v
}

func newValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("skipoperator", func(fl validator.FieldLevel) bool {
		_, ok := ParseOperator(fl.Field().String())
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("register skipoperator validation: %w", err)
	}
	return v, nil
}

// Lint checks rules against the questions they reference.
func Lint(rules []types.LogicRule, questions []types.Question) []LintIssue {
	var issues []LintIssue
	if len(rules) > types.MaxRulesPerSurvey {
		issues = append(issues, LintIssue{Rule: -1, Group: -1, Condition: -1,
			Message: fmt.Sprintf("%d rules exceeds maximum of %d", len(rules), types.MaxRulesPerSurvey)})
	}

	idx := IndexQuestions(questions)
	for ri, rule := range rules {
		issues = append(issues, structIssues(ri, rule)...)

		if len(rule.Groups) == 0 {
			issues = append(issues, issueAt(ri, -1, -1, "groups", "rule has no groups and never fires"))
		}
		if len(rule.Groups) > types.MaxGroupsPerRule {
			issues = append(issues, issueAt(ri, -1, -1, "groups",
				fmt.Sprintf("%d groups exceeds maximum of %d", len(rule.Groups), types.MaxGroupsPerRule)))
		}
		if rule.Action.Type.NeedsTarget() && rule.Action.TargetQuestionID != "" {
			if _, ok := idx[rule.Action.TargetQuestionID]; !ok {
				issues = append(issues, issueAt(ri, -1, -1, "action.targetQuestionId",
					fmt.Sprintf("target question %q does not exist", rule.Action.TargetQuestionID)))
			}
		}

		for gi, group := range rule.Groups {
			if len(group.Conditions) == 0 {
				issues = append(issues, issueAt(ri, gi, -1, "conditions", "empty group always passes"))
			}
			if len(group.Conditions) > types.MaxConditionsPerGroup {
				issues = append(issues, issueAt(ri, gi, -1, "conditions",
					fmt.Sprintf("%d conditions exceeds maximum of %d", len(group.Conditions), types.MaxConditionsPerGroup)))
			}
			for ci, cond := range group.Conditions {
				for _, msg := range conditionIssues(cond, idx) {
					issues = append(issues, issueAt(ri, gi, ci, "", msg))
				}
			}
		}
	}
	return issues
}

// conditionIssues reports reference and operand problems for one condition.
func conditionIssues(cond types.Condition, idx QuestionIndex) []string {
	var msgs []string
	q, ok := idx[cond.SourceQuestionID]
	if !ok {
		msgs = append(msgs, fmt.Sprintf("source question %q does not exist", cond.SourceQuestionID))
	}
	op, known := ParseOperator(cond.ConditionOperator)
	if !known {
		// reported by the struct validator
		return msgs
	}

	if op.ClickBased() && q != nil && q.Type != types.QuestionHeatmap {
		msgs = append(msgs, fmt.Sprintf("%s requires a heatmap question, %q is %s", op, q.ID, q.Type))
	}
	if op == OpClickInArea && q != nil && q.Type == types.QuestionHeatmap {
		area, ok := q.Area(toText(cond.ConditionValue))
		switch {
		case !ok:
			msgs = append(msgs, fmt.Sprintf("heatmap area %q is not defined on %q", toText(cond.ConditionValue), q.ID))
		case !area.WellFormed():
			msgs = append(msgs, fmt.Sprintf("heatmap area %q has non-numeric bounds", area.ID))
		case !area.InsideImage():
			msgs = append(msgs, fmt.Sprintf("heatmap area %q extends outside the image", area.ID))
		}
	}
	if op.Compound() {
		if _, _, ok := splitPair(cond.ConditionValue); !ok {
			msgs = append(msgs, fmt.Sprintf("%s expects a value of the form a;b", op))
		}
	}
	if op.Numeric() {
		if _, ok := toFloat(cond.ConditionValue); !ok {
			msgs = append(msgs, fmt.Sprintf("%s expects a numeric value", op))
		}
	}
	return msgs
}

func structIssues(ri int, rule types.LogicRule) []LintIssue {
	err := validate.Struct(rule)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []LintIssue{issueAt(ri, -1, -1, "", err.Error())}
	}
	issues := make([]LintIssue, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "LogicRule.")
		issues = append(issues, issueAt(ri, -1, -1, field, describeTag(fe)))
	}
	return issues
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", fe.Value(), fe.Param())
	case "skipoperator":
		return fmt.Sprintf("unknown operator %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func issueAt(rule, group, cond int, field, msg string) LintIssue {
	return LintIssue{Rule: rule, Group: group, Condition: cond, Field: field, Message: msg}
}

// LintSurvey lints the survey-level rules and every question's skip logic
// against the survey's own questions. Issues carry the rule list they came
// from in Scope. Duplicate question ids and unknown question types are
// reported as well.
func LintSurvey(survey *types.Survey) []LintIssue {
	var issues []LintIssue

	seen := make(map[types.QuestionID]bool, len(survey.Questions))
	for i, q := range survey.Questions {
		scope := fmt.Sprintf("questions[%d]", i)
		if q.ID == "" {
			issues = append(issues, LintIssue{Scope: scope, Rule: -1, Group: -1, Condition: -1, Field: "id", Message: "is required"})
		} else if seen[q.ID] {
			issues = append(issues, LintIssue{Scope: scope, Rule: -1, Group: -1, Condition: -1, Field: "id",
				Message: fmt.Sprintf("duplicate question id %q", q.ID)})
		}
		seen[q.ID] = true
		if !q.Type.Valid() {
			issues = append(issues, LintIssue{Scope: scope, Rule: -1, Group: -1, Condition: -1, Field: "type",
				Message: fmt.Sprintf("unknown question type %q", q.Type)})
		}
	}

	for _, issue := range Lint(survey.LogicRules, survey.Questions) {
		issue.Scope = "logicRules"
		issues = append(issues, issue)
	}
	for _, q := range survey.Questions {
		for _, issue := range Lint(q.SkipLogic, survey.Questions) {
			issue.Scope = fmt.Sprintf("questions[%s].skipLogic", q.ID)
			issues = append(issues, issue)
		}
	}
	return issues
}
