package logic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/solatis/surveylogic/internal/types"
)

// AnswerInput decodes answers given either as a list of
// {questionId, answerValue} records or as a {questionId: value} object.
type AnswerInput struct {
	records []types.AnswerRecord
	byID    map[string]any
}

func (a *AnswerInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '[':
		return json.Unmarshal(data, &a.records)
	case len(data) > 0 && data[0] == '{':
		return json.Unmarshal(data, &a.byID)
	default:
		return fmt.Errorf("answers must be a list or an object")
	}
}

// Len is the number of answer entries supplied.
func (a AnswerInput) Len() int {
	return len(a.records) + len(a.byID)
}

// Snapshot builds the evaluation snapshot.
func (a AnswerInput) Snapshot() Snapshot {
	if a.byID != nil {
		return SnapshotFromMap(a.byID)
	}
	return NewSnapshot(a.records)
}

// Records returns the answers as records; object input is ordered by the
// given questions, unknown ids last.
func (a AnswerInput) Records(order []types.Question) []types.AnswerRecord {
	if a.byID != nil {
		return SnapshotFromMap(a.byID).Records(order)
	}
	return a.records
}
