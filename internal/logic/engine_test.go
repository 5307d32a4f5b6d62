package logic

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/solatis/surveylogic/internal/types"
)

func eqCond(q types.QuestionID, value any) types.Condition {
	return types.Condition{SourceQuestionID: q, ConditionOperator: "eq", ConditionValue: value}
}

func singleRule(name string, cond types.Condition, action types.Action) types.LogicRule {
	return types.LogicRule{
		RuleName:        name,
		OverallOperator: types.OperatorAnd,
		Groups: []types.LogicGroup{
			{GroupOperator: types.OperatorAnd, Conditions: []types.Condition{cond}},
		},
		Action: action,
	}
}

func textQuestions(ids ...types.QuestionID) []types.Question {
	qs := make([]types.Question, len(ids))
	for i, id := range ids {
		qs[i] = types.Question{ID: id, Type: types.QuestionText}
	}
	return qs
}

func TestEvaluateAllLogic_SingleRule(t *testing.T) {
	rules := []types.LogicRule{
		singleRule("end-on-yes", eqCond("q1", "yes"), types.Action{Type: types.ActionJumpToEndOfSurvey}),
	}
	questions := textQuestions("q1")

	got := EvaluateAllLogic(rules, []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "yes"}}, questions)
	if got == nil {
		t.Fatalf("EvaluateAllLogic() = nil, want jumpToEndOfSurvey")
	}
	if got.Type != types.ActionJumpToEndOfSurvey {
		t.Errorf("Type = %v, want jumpToEndOfSurvey", got.Type)
	}

	got = EvaluateAllLogic(rules, []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "no"}}, questions)
	if got != nil {
		t.Errorf("EvaluateAllLogic() = %+v, want nil", got)
	}
}

func TestEvaluateAllLogic_FirstMatchWins(t *testing.T) {
	rules := []types.LogicRule{
		singleRule("disqualify-no", eqCond("q1", "no"), types.Action{
			Type:                    types.ActionDisqualifyRespondent,
			DisqualificationMessage: "Not eligible",
		}),
		{
			RuleName:        "skip-unsure",
			OverallOperator: types.OperatorAnd,
			Groups: []types.LogicGroup{{
				GroupOperator: types.OperatorOr,
				Conditions:    []types.Condition{eqCond("q1", "no"), eqCond("q1", "maybe")},
			}},
			Action: types.Action{Type: types.ActionSkipToQuestion, TargetQuestionID: "q3"},
		},
	}
	questions := textQuestions("q1", "q2", "q3")

	got := EvaluateAllLogic(rules, []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "no"}}, questions)
	if got == nil {
		t.Fatalf("EvaluateAllLogic() = nil, want disqualify")
	}
	if got.Type != types.ActionDisqualifyRespondent {
		t.Errorf("Type = %v, want disqualifyRespondent", got.Type)
	}
	if got.DisqualificationMessage != "Not eligible" {
		t.Errorf("DisqualificationMessage = %q, want %q", got.DisqualificationMessage, "Not eligible")
	}

	got = EvaluateAllLogic(rules, []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "maybe"}}, questions)
	if got == nil || got.Type != types.ActionSkipToQuestion || got.TargetQuestionID != "q3" {
		t.Errorf("EvaluateAllLogic() = %+v, want skipToQuestion q3", got)
	}
}

func TestEvaluateAllLogic_EmptyRules(t *testing.T) {
	answers := []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "yes"}}
	if got := EvaluateAllLogic(nil, answers, textQuestions("q1")); got != nil {
		t.Errorf("EvaluateAllLogic(nil) = %+v, want nil", got)
	}
	if got := EvaluateAllLogic([]types.LogicRule{}, answers, nil); got != nil {
		t.Errorf("EvaluateAllLogic([]) = %+v, want nil", got)
	}
}

func TestEvaluate_ResultIdentifiesRule(t *testing.T) {
	rules := []types.LogicRule{
		singleRule("first", eqCond("q1", "a"), types.Action{Type: types.ActionMarkAsCompleted}),
		singleRule("second", eqCond("q1", "b"), types.Action{Type: types.ActionJumpToEndOfSurvey}),
	}
	questions := textQuestions("q1")

	result := defaultEngine.Evaluate(rules, SnapshotFromMap(map[string]any{"q1": "b"}), IndexQuestions(questions))
	if !result.Matched {
		t.Fatalf("Matched = false, want true")
	}
	if result.RuleIndex != 1 {
		t.Errorf("RuleIndex = %d, want 1", result.RuleIndex)
	}
	if result.RuleName != "second" {
		t.Errorf("RuleName = %q, want second", result.RuleName)
	}

	result = defaultEngine.Evaluate(rules, SnapshotFromMap(map[string]any{"q1": "c"}), IndexQuestions(questions))
	if result.Matched || result.RuleIndex != -1 {
		t.Errorf("Result = %+v, want no match with RuleIndex -1", result)
	}
	if result.ActionOrNil() != nil {
		t.Errorf("ActionOrNil() = %+v, want nil", result.ActionOrNil())
	}
}

func TestEvaluateAllLogic_ReturnedActionIsCopy(t *testing.T) {
	rules := []types.LogicRule{
		singleRule("skip", eqCond("q1", "x"), types.Action{Type: types.ActionSkipToQuestion, TargetQuestionID: "q2"}),
	}
	got := EvaluateAllLogic(rules, []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "x"}}, textQuestions("q1", "q2"))
	if got == nil {
		t.Fatalf("EvaluateAllLogic() = nil, want action")
	}
	got.TargetQuestionID = "mutated"
	if rules[0].Action.TargetQuestionID != "q2" {
		t.Errorf("rule action mutated through result: %q", rules[0].Action.TargetQuestionID)
	}
}

func TestEvaluateAllLogic_AnswerLastWriteWins(t *testing.T) {
	rules := []types.LogicRule{
		singleRule("end", eqCond("q1", "yes"), types.Action{Type: types.ActionJumpToEndOfSurvey}),
	}
	answers := []types.AnswerRecord{
		{QuestionID: "q1", AnswerValue: "no"},
		{QuestionID: "q1", AnswerValue: "yes"},
	}
	if got := EvaluateAllLogic(rules, answers, textQuestions("q1")); got == nil {
		t.Errorf("EvaluateAllLogic() = nil, want action from latest answer")
	}
}

func TestEvaluateAllLogic_OverallOperator(t *testing.T) {
	groupA := types.LogicGroup{GroupOperator: types.OperatorAnd, Conditions: []types.Condition{eqCond("q1", "a")}}
	groupB := types.LogicGroup{GroupOperator: types.OperatorAnd, Conditions: []types.Condition{eqCond("q2", "b")}}
	questions := textQuestions("q1", "q2")
	answers := []types.AnswerRecord{
		{QuestionID: "q1", AnswerValue: "a"},
		{QuestionID: "q2", AnswerValue: "z"},
	}

	tests := []struct {
		name string
		op   types.LogicOperator
		want bool
	}{
		{name: "AND with one false group", op: types.OperatorAnd, want: false},
		{name: "OR with one true group", op: types.OperatorOr, want: true},
		{name: "unknown operator", op: "XOR", want: false},
		{name: "lowercase operator", op: "or", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := []types.LogicRule{{
				RuleName:        "r",
				OverallOperator: tt.op,
				Groups:          []types.LogicGroup{groupA, groupB},
				Action:          types.Action{Type: types.ActionMarkAsCompleted},
			}}
			got := EvaluateAllLogic(rules, answers, questions) != nil
			if got != tt.want {
				t.Errorf("fired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateLogicGroup(t *testing.T) {
	questions := IndexQuestions(textQuestions("q1", "q2"))
	snap := SnapshotFromMap(map[string]any{"q1": "a", "q2": "b"})

	tests := []struct {
		name  string
		group types.LogicGroup
		want  bool
	}{
		{
			name:  "AND all true",
			group: types.LogicGroup{GroupOperator: types.OperatorAnd, Conditions: []types.Condition{eqCond("q1", "a"), eqCond("q2", "b")}},
			want:  true,
		},
		{
			name:  "AND one false",
			group: types.LogicGroup{GroupOperator: types.OperatorAnd, Conditions: []types.Condition{eqCond("q1", "a"), eqCond("q2", "x")}},
			want:  false,
		},
		{
			name:  "OR one true",
			group: types.LogicGroup{GroupOperator: types.OperatorOr, Conditions: []types.Condition{eqCond("q1", "x"), eqCond("q2", "b")}},
			want:  true,
		},
		{
			name:  "OR none true",
			group: types.LogicGroup{GroupOperator: types.OperatorOr, Conditions: []types.Condition{eqCond("q1", "x"), eqCond("q2", "x")}},
			want:  false,
		},
		{
			name:  "empty group passes",
			group: types.LogicGroup{GroupOperator: types.OperatorAnd},
			want:  true,
		},
		{
			name:  "empty OR group passes",
			group: types.LogicGroup{GroupOperator: types.OperatorOr},
			want:  true,
		},
		{
			name:  "unknown group operator",
			group: types.LogicGroup{GroupOperator: "NAND", Conditions: []types.Condition{eqCond("q1", "a")}},
			want:  false,
		},
		{
			name:  "dangling question in OR does not block others",
			group: types.LogicGroup{GroupOperator: types.OperatorOr, Conditions: []types.Condition{eqCond("gone", "a"), eqCond("q1", "a")}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateLogicGroup(tt.group, snap, questions); got != tt.want {
				t.Errorf("EvaluateLogicGroup() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_RuleWithoutGroupsIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	engine := NewEngine(zerolog.New(&buf))

	rules := []types.LogicRule{
		{RuleName: "hollow", OverallOperator: types.OperatorAnd, Action: types.Action{Type: types.ActionDisqualifyRespondent}},
		singleRule("real", eqCond("q1", "a"), types.Action{Type: types.ActionMarkAsCompleted}),
	}
	got := engine.EvaluateAll(rules, []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "a"}}, textQuestions("q1"))
	if got == nil || got.Type != types.ActionMarkAsCompleted {
		t.Fatalf("EvaluateAll() = %+v, want markAsCompleted", got)
	}

	out := buf.String()
	if !strings.Contains(out, `"rule":"hollow"`) || !strings.Contains(out, "rule has no groups") {
		t.Errorf("log output missing skipped rule warning: %s", out)
	}
}

func TestEvaluate_NoQuestionsLogsAndReturnsNil(t *testing.T) {
	var buf bytes.Buffer
	engine := NewEngine(zerolog.New(&buf))

	rules := []types.LogicRule{
		singleRule("r", types.Condition{SourceQuestionID: "q1", ConditionOperator: "isEmpty"}, types.Action{Type: types.ActionMarkAsCompleted}),
	}
	if got := engine.EvaluateAll(rules, nil, nil); got != nil {
		t.Errorf("EvaluateAll() = %+v, want nil", got)
	}
	if !strings.Contains(buf.String(), "no questions supplied") {
		t.Errorf("log output = %s, want no-questions warning", buf.String())
	}
}

func TestEvaluate_ConfigurationWarnings(t *testing.T) {
	questions := []types.Question{
		{ID: "q1", Type: types.QuestionText},
		{ID: "q2", Type: types.QuestionHeatmap, DefinedHeatmapAreas: []types.DefinedArea{{ID: "a", X: 0, Y: 0, Width: 0.5, Height: 0.5}}},
	}

	tests := []struct {
		name   string
		cond   types.Condition
		reason string
	}{
		{name: "unknown operator", cond: types.Condition{SourceQuestionID: "q1", ConditionOperator: "matches", ConditionValue: "x"}, reason: "unknown operator"},
		{name: "dangling question", cond: eqCond("missing", "x"), reason: "source question not found"},
		{name: "non-numeric comparison", cond: types.Condition{SourceQuestionID: "q1", ConditionOperator: "gt", ConditionValue: "ten"}, reason: "condition value is not numeric"},
		{name: "click operator on text", cond: types.Condition{SourceQuestionID: "q1", ConditionOperator: "clickCountGt", ConditionValue: 1}, reason: "click operator on non-heatmap question"},
		{name: "undefined area", cond: types.Condition{SourceQuestionID: "q2", ConditionOperator: "clickInArea", ConditionValue: "b"}, reason: "heatmap area not defined"},
		{name: "malformed compound value", cond: types.Condition{SourceQuestionID: "q1", ConditionOperator: "rowValueEquals", ConditionValue: "row1"}, reason: "row;column pair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			engine := NewEngine(zerolog.New(&buf))
			rules := []types.LogicRule{singleRule("broken", tt.cond, types.Action{Type: types.ActionMarkAsCompleted})}
			answers := []types.AnswerRecord{
				{QuestionID: "q1", AnswerValue: "12"},
				{QuestionID: "q2", AnswerValue: []any{map[string]any{"x": 0.1, "y": 0.1}}},
			}

			if got := engine.EvaluateAll(rules, answers, questions); got != nil {
				t.Errorf("EvaluateAll() = %+v, want nil", got)
			}
			out := buf.String()
			if !strings.Contains(out, tt.reason) {
				t.Errorf("log output missing reason %q: %s", tt.reason, out)
			}
			if !strings.Contains(out, `"level":"warn"`) {
				t.Errorf("log output not at warn level: %s", out)
			}
			if !strings.Contains(out, `"rule":"broken"`) {
				t.Errorf("log output missing rule context: %s", out)
			}
		})
	}
}

func TestEvaluate_EmptyGroupWarns(t *testing.T) {
	var buf bytes.Buffer
	engine := NewEngine(zerolog.New(&buf))

	rules := []types.LogicRule{{
		RuleName:        "permissive",
		OverallOperator: types.OperatorAnd,
		Groups:          []types.LogicGroup{{GroupOperator: types.OperatorAnd}},
		Action:          types.Action{Type: types.ActionJumpToEndOfSurvey},
	}}
	got := engine.EvaluateAll(rules, nil, textQuestions("q1"))
	if got == nil {
		t.Fatalf("EvaluateAll() = nil, want action from empty group")
	}
	if !strings.Contains(buf.String(), "permissive logic group") {
		t.Errorf("log output missing empty group warning: %s", buf.String())
	}
}

func TestEvaluateAnswerMap(t *testing.T) {
	rules := []types.LogicRule{
		singleRule("nps-detractor", types.Condition{SourceQuestionID: "7", ConditionOperator: "lte", ConditionValue: "6"},
			types.Action{Type: types.ActionSkipToQuestion, TargetQuestionID: "9"}),
	}
	questions := []types.Question{
		{ID: "7", Type: types.QuestionNPS},
		{ID: "8", Type: types.QuestionText},
		{ID: "9", Type: types.QuestionTextarea},
	}

	got := defaultEngine.EvaluateAnswerMap(rules, map[string]any{"7": float64(3)}, questions)
	if got == nil || got.TargetQuestionID != "9" {
		t.Errorf("EvaluateAnswerMap() = %+v, want skip to 9", got)
	}
	if got := defaultEngine.EvaluateAnswerMap(rules, map[string]any{"7": float64(9)}, questions); got != nil {
		t.Errorf("EvaluateAnswerMap() = %+v, want nil", got)
	}
}
