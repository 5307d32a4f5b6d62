// Package types provides domain models shared across surveylogic components.
//
// Wire-format agnostic: API and storage layers decode JSON into these types and
// hand them to internal/logic and internal/navigation. Only ids.go pulls in a
// third-party dependency (uuid) so the engine packages stay lightweight.
package types

import (
	"bytes"
	"encoding/json"
)

// SurveyID identifies a survey. UUIDv7 for surveys created by this service,
// arbitrary strings for imported surveys.
type SurveyID string

// ResponseID represents a UUIDv7 response identifier.
type ResponseID string

// QuestionID identifies a question within a survey.
// Lookups are always keyed by the string form, so JSON numbers are accepted
// and stringified on decode (17 and "17" name the same question).
type QuestionID string

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = QuestionID(n.String())
	return nil
}

// String returns the lookup key form of the id.
func (id QuestionID) String() string {
	return string(id)
}

// Resource limits enforced at the API boundary and reported by the linter.
const (
	// MaxRulesPerSurvey bounds the first-match walk per evaluation.
	MaxRulesPerSurvey = 256

	// MaxGroupsPerRule bounds the rule-level AND/OR fan-out.
	MaxGroupsPerRule = 32

	// MaxConditionsPerGroup bounds the group-level AND/OR fan-out.
	MaxConditionsPerGroup = 64

	// MaxAnswersPerRequest limits answer records accepted in one request.
	MaxAnswersPerRequest = 500

	// MaxQuestionsPerSurvey bounds navigation replay length.
	MaxQuestionsPerSurvey = 1000
)
