package db

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/solatis/surveylogic/internal/types"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Open("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := MigrateUp(database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return database
}

func newTestStore(t *testing.T, logger zerolog.Logger) (*Store, *sqlx.DB) {
	t.Helper()
	database := openTestDB(t)
	queries, err := LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	return NewStore(database, queries, logger), database
}

func sampleSurvey() *types.Survey {
	return &types.Survey{
		Title: "Car survey",
		Questions: []types.Question{
			{ID: "q1", Type: types.QuestionMultipleChoice, Title: "Own a car?", Required: true, SkipLogic: []types.LogicRule{{
				RuleName:        "no-car",
				OverallOperator: types.OperatorAnd,
				Groups: []types.LogicGroup{{
					GroupOperator: types.OperatorAnd,
					Conditions:    []types.Condition{{SourceQuestionID: "q1", ConditionOperator: "eq", ConditionValue: "no"}},
				}},
				Action: types.Action{Type: types.ActionDisqualifyRespondent, DisqualificationMessage: "Car owners only"},
			}}},
			{ID: "q2", Type: types.QuestionHeatmap, DefinedHeatmapAreas: []types.DefinedArea{
				{ID: "logo", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2},
			}, Config: []byte(`{"image":"ad.png"}`)},
			{ID: "q3", Type: types.QuestionText},
		},
		LogicRules: []types.LogicRule{{
			RuleName:        "end",
			OverallOperator: types.OperatorOr,
			Groups: []types.LogicGroup{{
				GroupOperator: types.OperatorAnd,
				Conditions:    []types.Condition{{SourceQuestionID: "q3", ConditionOperator: "isNotEmpty"}},
			}},
			Action: types.Action{Type: types.ActionJumpToEndOfSurvey},
		}},
	}
}

func TestStore_SurveyRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, zerolog.Nop())
	ctx := context.Background()

	in := sampleSurvey()
	if err := store.CreateSurvey(ctx, in); err != nil {
		t.Fatalf("CreateSurvey() error = %v", err)
	}
	if in.ID == "" || in.Status != types.SurveyDraft || in.CreatedAt.IsZero() {
		t.Fatalf("CreateSurvey() left survey = %+v, want id, draft status and creation time set", in)
	}

	got, err := store.GetSurvey(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetSurvey() error = %v", err)
	}
	if got.Title != in.Title || got.Status != types.SurveyDraft {
		t.Errorf("GetSurvey() = %+v, want title and status preserved", got)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, in.CreatedAt)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("len(Questions) = %d, want 3", len(got.Questions))
	}
	for i, q := range got.Questions {
		if q.ID != in.Questions[i].ID || q.Position != i {
			t.Errorf("Questions[%d] = %s at %d, want %s at %d", i, q.ID, q.Position, in.Questions[i].ID, i)
		}
	}
	if !got.Questions[0].Required {
		t.Errorf("Questions[0].Required = false, want true")
	}
	if !reflect.DeepEqual(got.Questions[0].SkipLogic, in.Questions[0].SkipLogic) {
		t.Errorf("SkipLogic = %+v, want %+v", got.Questions[0].SkipLogic, in.Questions[0].SkipLogic)
	}
	if !reflect.DeepEqual(got.Questions[1].DefinedHeatmapAreas, in.Questions[1].DefinedHeatmapAreas) {
		t.Errorf("DefinedHeatmapAreas = %+v, want %+v", got.Questions[1].DefinedHeatmapAreas, in.Questions[1].DefinedHeatmapAreas)
	}
	if string(got.Questions[1].Config) != `{"image":"ad.png"}` {
		t.Errorf("Config = %s, want stored document", got.Questions[1].Config)
	}
	if got.Questions[2].Config != nil {
		t.Errorf("Questions[2].Config = %s, want nil", got.Questions[2].Config)
	}
	if len(got.LogicRules) != 1 || got.LogicRules[0].RuleName != "end" {
		t.Errorf("LogicRules = %+v, want [end]", got.LogicRules)
	}
}

func TestStore_GetSurveyNotFound(t *testing.T) {
	store, _ := newTestStore(t, zerolog.Nop())
	_, err := store.GetSurvey(context.Background(), "missing")
	if !errors.Is(err, types.ErrSurveyNotFound) {
		t.Errorf("GetSurvey() error = %v, want ErrSurveyNotFound", err)
	}
}

func TestStore_MalformedStoredRuleIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	store, database := newTestStore(t, zerolog.New(&buf))
	ctx := context.Background()

	survey := sampleSurvey()
	if err := store.CreateSurvey(ctx, survey); err != nil {
		t.Fatalf("CreateSurvey() error = %v", err)
	}

	raw := `[{"ruleName":5},{"ruleName":"kept","overallOperator":"AND","groups":[],"action":{"type":"markAsCompleted"}}]`
	if _, err := database.Exec("UPDATE surveys SET logic_rules = ? WHERE survey_id = ?", raw, string(survey.ID)); err != nil {
		t.Fatalf("UPDATE error = %v", err)
	}
	if _, err := database.Exec("UPDATE questions SET heatmap_areas = ? WHERE survey_id = ? AND question_id = ?", "{not json", string(survey.ID), "q2"); err != nil {
		t.Fatalf("UPDATE error = %v", err)
	}

	got, err := store.GetSurvey(ctx, survey.ID)
	if err != nil {
		t.Fatalf("GetSurvey() error = %v", err)
	}
	if len(got.LogicRules) != 1 || got.LogicRules[0].RuleName != "kept" {
		t.Errorf("LogicRules = %+v, want only the well-formed rule", got.LogicRules)
	}
	if got.Questions[1].DefinedHeatmapAreas != nil {
		t.Errorf("DefinedHeatmapAreas = %+v, want nil", got.Questions[1].DefinedHeatmapAreas)
	}

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, "malformed rule skipped", `"rule_index":0`, "malformed heatmap areas ignored"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestStore_SetSurveyStatus(t *testing.T) {
	store, _ := newTestStore(t, zerolog.Nop())
	ctx := context.Background()

	survey := sampleSurvey()
	if err := store.CreateSurvey(ctx, survey); err != nil {
		t.Fatalf("CreateSurvey() error = %v", err)
	}
	if err := store.SetSurveyStatus(ctx, survey.ID, types.SurveyActive); err != nil {
		t.Fatalf("SetSurveyStatus() error = %v", err)
	}
	got, err := store.GetSurvey(ctx, survey.ID)
	if err != nil {
		t.Fatalf("GetSurvey() error = %v", err)
	}
	if got.Status != types.SurveyActive {
		t.Errorf("Status = %s, want active", got.Status)
	}

	if err := store.SetSurveyStatus(ctx, "missing", types.SurveyActive); !errors.Is(err, types.ErrSurveyNotFound) {
		t.Errorf("SetSurveyStatus(missing) error = %v, want ErrSurveyNotFound", err)
	}
}

func TestStore_ResponseLifecycle(t *testing.T) {
	store, _ := newTestStore(t, zerolog.Nop())
	ctx := context.Background()

	survey := sampleSurvey()
	if err := store.CreateSurvey(ctx, survey); err != nil {
		t.Fatalf("CreateSurvey() error = %v", err)
	}

	resp, err := store.CreateResponse(ctx, survey.ID, "q1")
	if err != nil {
		t.Fatalf("CreateResponse() error = %v", err)
	}
	if resp.Status != types.ResponseInProgress {
		t.Errorf("Status = %s, want in_progress", resp.Status)
	}

	resp.Status = types.ResponseDisqualified
	resp.CurrentQuestionID = ""
	resp.DisqualificationMessage = "Car owners only"
	if err := store.UpdateResponse(ctx, resp); err != nil {
		t.Fatalf("UpdateResponse() error = %v", err)
	}

	got, err := store.GetResponse(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if got.Status != types.ResponseDisqualified || got.DisqualificationMessage != "Car owners only" {
		t.Errorf("GetResponse() = %+v, want disqualified with message", got)
	}
	if got.SurveyID != survey.ID {
		t.Errorf("SurveyID = %s, want %s", got.SurveyID, survey.ID)
	}

	if _, err := store.GetResponse(ctx, "missing"); !errors.Is(err, types.ErrResponseNotFound) {
		t.Errorf("GetResponse(missing) error = %v, want ErrResponseNotFound", err)
	}
	missing := &types.Response{ID: "missing", Status: types.ResponseCompleted}
	if err := store.UpdateResponse(ctx, missing); !errors.Is(err, types.ErrResponseNotFound) {
		t.Errorf("UpdateResponse(missing) error = %v, want ErrResponseNotFound", err)
	}
}

func TestStore_Answers(t *testing.T) {
	store, _ := newTestStore(t, zerolog.Nop())
	ctx := context.Background()

	survey := sampleSurvey()
	if err := store.CreateSurvey(ctx, survey); err != nil {
		t.Fatalf("CreateSurvey() error = %v", err)
	}
	resp, err := store.CreateResponse(ctx, survey.ID, "q1")
	if err != nil {
		t.Fatalf("CreateResponse() error = %v", err)
	}

	if err := store.SaveAnswers(ctx, resp.ID, []types.AnswerRecord{
		{QuestionID: "q1", AnswerValue: "yes"},
		{QuestionID: "q2", AnswerValue: []any{map[string]any{"x": 0.15, "y": 0.15}}},
	}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}
	// Second batch overwrites q1 and moves it after q2.
	if err := store.SaveAnswers(ctx, resp.ID, []types.AnswerRecord{
		{QuestionID: "q1", AnswerValue: "no"},
		{QuestionID: "q3", AnswerValue: float64(7)},
	}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}

	got, err := store.ListAnswers(ctx, resp.ID)
	if err != nil {
		t.Fatalf("ListAnswers() error = %v", err)
	}
	want := []types.AnswerRecord{
		{QuestionID: "q2", AnswerValue: []any{map[string]any{"x": 0.15, "y": 0.15}}},
		{QuestionID: "q1", AnswerValue: "no"},
		{QuestionID: "q3", AnswerValue: float64(7)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListAnswers() = %+v, want %+v", got, want)
	}

	n, err := store.DeleteAnswers(ctx, resp.ID, []types.QuestionID{"q1", "q9"})
	if err != nil {
		t.Fatalf("DeleteAnswers() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteAnswers() = %d, want 1", n)
	}
	got, err = store.ListAnswers(ctx, resp.ID)
	if err != nil {
		t.Fatalf("ListAnswers() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(ListAnswers()) = %d, want 2 after delete", len(got))
	}
}

func TestStore_ListAnswersSkipsMalformed(t *testing.T) {
	var buf bytes.Buffer
	store, database := newTestStore(t, zerolog.New(&buf))
	ctx := context.Background()

	survey := sampleSurvey()
	if err := store.CreateSurvey(ctx, survey); err != nil {
		t.Fatalf("CreateSurvey() error = %v", err)
	}
	resp, err := store.CreateResponse(ctx, survey.ID, "q1")
	if err != nil {
		t.Fatalf("CreateResponse() error = %v", err)
	}
	if err := store.SaveAnswers(ctx, resp.ID, []types.AnswerRecord{{QuestionID: "q1", AnswerValue: "yes"}}); err != nil {
		t.Fatalf("SaveAnswers() error = %v", err)
	}
	if _, err := database.Exec(
		"INSERT INTO answers (response_id, question_id, value, answered_at, answered_seq) VALUES (?, ?, ?, ?, ?)",
		string(resp.ID), "q3", "{broken", time.Now().UTC(), time.Now().UnixNano(),
	); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	got, err := store.ListAnswers(ctx, resp.ID)
	if err != nil {
		t.Fatalf("ListAnswers() error = %v", err)
	}
	if len(got) != 1 || got[0].QuestionID != "q1" {
		t.Errorf("ListAnswers() = %+v, want only q1", got)
	}
	if !strings.Contains(buf.String(), "malformed stored answer skipped") {
		t.Errorf("log output missing warning: %s", buf.String())
	}
}

func TestStore_APIKeys(t *testing.T) {
	store, database := newTestStore(t, zerolog.Nop())
	ctx := context.Background()

	id, err := store.CreateAPIKey(ctx, "ci", "0123456789abcdef0123456789abcdef", []byte("hash-1"))
	if err != nil {
		t.Fatalf("CreateAPIKey() error = %v", err)
	}
	if err := store.RevokeAPIKey(ctx, id); err != nil {
		t.Fatalf("RevokeAPIKey() error = %v", err)
	}
	if err := store.RevokeAPIKey(ctx, id); err != nil {
		t.Errorf("RevokeAPIKey() second call error = %v, want nil", err)
	}

	var revoked int
	if err := database.Get(&revoked, "SELECT COUNT(*) FROM api_keys WHERE revoked_at IS NOT NULL"); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if revoked != 1 {
		t.Errorf("revoked keys = %d, want 1", revoked)
	}

	if _, err := store.CreateAPIKey(ctx, "dup", "0123456789abcdef0123456789abcdef", []byte("hash-1")); err == nil {
		t.Errorf("CreateAPIKey() with duplicate hash error = nil, want error")
	}
}

func TestMigrateStatus(t *testing.T) {
	database := openTestDB(t)

	statuses, err := MigrateStatus(database)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("len(MigrateStatus()) = %d, want 2", len(statuses))
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %s = %+v, want applied with timestamp", s.ID, s)
		}
	}

	applied, err := IsApplied(database, "002_api_keys.sql")
	if err != nil {
		t.Fatalf("IsApplied() error = %v", err)
	}
	if !applied {
		t.Errorf("IsApplied(002_api_keys.sql) = false, want true")
	}
	applied, err = IsApplied(database, "999_future.sql")
	if err != nil {
		t.Fatalf("IsApplied() error = %v", err)
	}
	if applied {
		t.Errorf("IsApplied(999_future.sql) = true, want false")
	}

	// Running again is a no-op.
	if err := MigrateUp(database); err != nil {
		t.Errorf("MigrateUp() second run error = %v", err)
	}
}

func TestStripComments(t *testing.T) {
	got := stripComments("-- header\n  -- indented\nCREATE TABLE t (id INTEGER)\n")
	if got != "CREATE TABLE t (id INTEGER)" {
		t.Errorf("stripComments() = %q", got)
	}
	if got := stripComments("-- only a comment\n"); got != "" {
		t.Errorf("stripComments(comment) = %q, want empty", got)
	}
}
