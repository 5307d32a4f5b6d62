package logic

import (
	"sort"

	"github.com/solatis/surveylogic/internal/types"
)

// Snapshot maps question id to the respondent's current answer value.
// Built fresh for every evaluation; never cached across calls.
type Snapshot map[types.QuestionID]any

// NewSnapshot builds a snapshot from stored answer records.
// Duplicate question ids resolve last-write-wins.
func NewSnapshot(records []types.AnswerRecord) Snapshot {
	snap := make(Snapshot, len(records))
	for _, r := range records {
		snap[r.QuestionID] = r.AnswerValue
	}
	return snap
}

// SnapshotFromMap builds a snapshot from a questionId -> value map, the
// shape live navigation clients send.
func SnapshotFromMap(answers map[string]any) Snapshot {
	snap := make(Snapshot, len(answers))
	for id, v := range answers {
		snap[types.QuestionID(id)] = v
	}
	return snap
}

// Get returns the answer for id and whether one was recorded.
func (s Snapshot) Get(id types.QuestionID) (any, bool) {
	v, ok := s[id]
	return v, ok
}

// Records converts the snapshot back to answer records, ordered by the
// given question order; answers to unknown questions follow sorted by id.
func (s Snapshot) Records(order []types.Question) []types.AnswerRecord {
	out := make([]types.AnswerRecord, 0, len(s))
	seen := make(map[types.QuestionID]bool, len(order))
	for _, q := range order {
		if v, ok := s[q.ID]; ok {
			out = append(out, types.AnswerRecord{QuestionID: q.ID, AnswerValue: v})
			seen[q.ID] = true
		}
	}
	var rest []types.QuestionID
	for id := range s {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, id := range rest {
		out = append(out, types.AnswerRecord{QuestionID: id, AnswerValue: s[id]})
	}
	return out
}

// QuestionIndex maps question id to question metadata.
type QuestionIndex map[types.QuestionID]*types.Question

// IndexQuestions builds a lookup over questions. Later duplicates win.
func IndexQuestions(questions []types.Question) QuestionIndex {
	idx := make(QuestionIndex, len(questions))
	for i := range questions {
		idx[questions[i].ID] = &questions[i]
	}
	return idx
}
