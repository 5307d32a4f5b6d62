package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// QuestionType is the declared type of a question. It decides how the
// question's answer value is shaped.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionTextarea       QuestionType = "textarea"
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionDropdown       QuestionType = "dropdown"
	QuestionRating         QuestionType = "rating"
	QuestionNPS            QuestionType = "nps"
	QuestionMatrix         QuestionType = "matrix"
	QuestionSlider         QuestionType = "slider"
	QuestionRanking        QuestionType = "ranking"
	QuestionHeatmap        QuestionType = "heatmap"
	QuestionMaxDiff        QuestionType = "maxdiff"
	QuestionConjoint       QuestionType = "conjoint"
	QuestionCardSort       QuestionType = "cardsort"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionTextarea, QuestionMultipleChoice, QuestionCheckbox,
		QuestionDropdown, QuestionRating, QuestionNPS, QuestionMatrix, QuestionSlider,
		QuestionRanking, QuestionHeatmap, QuestionMaxDiff, QuestionConjoint, QuestionCardSort:
		return true
	default:
		return false
	}
}

// DefinedArea is an author-configured rectangle on a heatmap image.
// Bounds are fractions of the image dimensions.
type DefinedArea struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AreaTolerance absorbs float drift from the authoring UI when checking
// that an area stays inside the image.
const AreaTolerance = 1e-5

// UnmarshalJSON accepts numbers or numeric strings for the bounds.
// Anything else decodes to NaN so the evaluator can treat the area as
// malformed instead of failing the whole question document.
func (a *DefinedArea) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		Name   string          `json:"name"`
		X      json.RawMessage `json:"x"`
		Y      json.RawMessage `json:"y"`
		Width  json.RawMessage `json:"width"`
		Height json.RawMessage `json:"height"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var id QuestionID
	if len(raw.ID) > 0 {
		if err := json.Unmarshal(raw.ID, &id); err != nil {
			return err
		}
	}
	*a = DefinedArea{
		ID:     string(id),
		Name:   raw.Name,
		X:      decodeBound(raw.X),
		Y:      decodeBound(raw.Y),
		Width:  decodeBound(raw.Width),
		Height: decodeBound(raw.Height),
	}
	return nil
}

// MarshalJSON writes non-finite bounds as null so a malformed area
// round-trips through storage and stays malformed.
func (a DefinedArea) MarshalJSON() ([]byte, error) {
	type bounds struct {
		ID     string   `json:"id"`
		Name   string   `json:"name,omitempty"`
		X      *float64 `json:"x"`
		Y      *float64 `json:"y"`
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
	}
	return json.Marshal(bounds{
		ID:     a.ID,
		Name:   a.Name,
		X:      finite(a.X),
		Y:      finite(a.Y),
		Width:  finite(a.Width),
		Height: finite(a.Height),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func decodeBound(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// WellFormed reports whether all bounds are finite numbers.
func (a DefinedArea) WellFormed() bool {
	for _, v := range []float64{a.X, a.Y, a.Width, a.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// InsideImage reports whether the area fits the unit square within AreaTolerance.
func (a DefinedArea) InsideImage() bool {
	if !a.WellFormed() || a.X < -AreaTolerance || a.Y < -AreaTolerance || a.Width < 0 || a.Height < 0 {
		return false
	}
	return a.X+a.Width <= 1+AreaTolerance && a.Y+a.Height <= 1+AreaTolerance
}

// Contains reports whether (x, y) lies inside the area, bounds inclusive.
func (a DefinedArea) Contains(x, y float64) bool {
	x2 := a.X + a.Width
	y2 := a.Y + a.Height
	return a.X <= x && x <= x2 && a.Y <= y && y <= y2
}

// ClickPoint is one recorded heatmap click in normalized image coordinates.
type ClickPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MaxDiffAnswer is the answer shape of a maxdiff question.
type MaxDiffAnswer struct {
	Best  string `json:"best"`
	Worst string `json:"worst"`
}

// CardSortAnswer is the answer shape of a cardsort question (card id -> category id).
type CardSortAnswer struct {
	Assignments map[string]string `json:"assignments"`
}

// Question is the read-only view of a survey question the engine consumes.
// Fields beyond Type and DefinedHeatmapAreas are opaque to evaluation.
type Question struct {
	ID                  QuestionID      `json:"id"`
	Type                QuestionType    `json:"type"`
	Title               string          `json:"title,omitempty"`
	Position            int             `json:"position,omitempty"`
	Required            bool            `json:"required,omitempty"`
	DefinedHeatmapAreas []DefinedArea   `json:"definedHeatmapAreas,omitempty"`
	SkipLogic           []LogicRule     `json:"skipLogic,omitempty"`
	Config              json.RawMessage `json:"config,omitempty"`
}

// Area returns the defined heatmap area with the given id.
func (q *Question) Area(id string) (DefinedArea, bool) {
	for _, a := range q.DefinedHeatmapAreas {
		if a.ID == id {
			return a, true
		}
	}
	return DefinedArea{}, false
}

// AnswerRecord is one stored answer: question id and its type-shaped value.
type AnswerRecord struct {
	QuestionID  QuestionID `json:"questionId" db:"question_id"`
	AnswerValue any        `json:"answerValue"`
}

// SurveyStatus is the publication state of a survey.
type SurveyStatus string

const (
	SurveyDraft  SurveyStatus = "draft"
	SurveyActive SurveyStatus = "active"
	SurveyClosed SurveyStatus = "closed"
)

// Survey is an ordered question list plus survey-level skip logic.
type Survey struct {
	ID         SurveyID     `json:"id"`
	Title      string       `json:"title"`
	Status     SurveyStatus `json:"status"`
	Questions  []Question   `json:"questions"`
	LogicRules []LogicRule  `json:"logicRules,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// ResponseStatus is the lifecycle state of a respondent's session.
type ResponseStatus string

const (
	ResponseInProgress   ResponseStatus = "in_progress"
	ResponseCompleted    ResponseStatus = "completed"
	ResponseDisqualified ResponseStatus = "disqualified"
)

// Closed reports whether the response no longer accepts answers.
func (s ResponseStatus) Closed() bool {
	return s == ResponseCompleted || s == ResponseDisqualified
}

// Response is one respondent's session through a survey.
type Response struct {
	ID                      ResponseID     `json:"id"`
	SurveyID                SurveyID       `json:"surveyId"`
	Status                  ResponseStatus `json:"status"`
	CurrentQuestionID       QuestionID     `json:"currentQuestionId,omitempty"`
	DisqualificationMessage string         `json:"disqualificationMessage,omitempty"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
}
