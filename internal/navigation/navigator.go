// Package navigation applies skip-logic actions to a survey's ordered
// question list. It decides which question a respondent sees next and,
// at submission, replays the full answer set to enforce branching
// server-side.
package navigation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/solatis/surveylogic/internal/logic"
	"github.com/solatis/surveylogic/internal/types"
)

/*
 * Navigation flow for one step:
 *   0. Rebuild the path from the first question; rules only see answers to
 *      questions on it, and hides from earlier steps carry forward
 *   1. Locate the current question in survey order (unknown -> ErrUnknownQuestion)
 *   2. Evaluate the current question's own rules; if none fire, the
 *      survey-level rules (first match wins within each list)
 *   3. Apply the action:
 *        skipToQuestion       -> that question (missing target: linear flow)
 *        hideQuestion         -> hide target, continue linearly
 *        jumpToEndOfSurvey    -> end
 *        disqualifyRespondent -> disqualified + message
 *        markAsCompleted      -> completed
 *   4. Linear flow: next question after the current one that is not hidden,
 *      or end when none remain
 *
 * Survey question order is the slice order; stores load questions sorted by
 * position.
 */

// StepKind identifies what the respondent sees next.
type StepKind string

const (
	StepQuestion     StepKind = "question"
	StepEnd          StepKind = "end"
	StepDisqualified StepKind = "disqualified"
	StepCompleted    StepKind = "completed"
)

// Step is the result of one navigation decision.
type Step struct {
	Kind       StepKind           `json:"kind"`
	QuestionID types.QuestionID   `json:"questionId,omitempty"`
	Hidden     []types.QuestionID `json:"hidden,omitempty"`
	Message    string             `json:"message,omitempty"`
	RuleName   string             `json:"ruleName,omitempty"`
}

// Terminal reports whether the step ends the response.
func (s Step) Terminal() bool {
	return s.Kind != StepQuestion
}

// Outcome is the final state of a replayed response.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeDisqualified Outcome = "disqualified"
)

// Status maps the outcome to the stored response status.
func (o Outcome) Status() types.ResponseStatus {
	if o == OutcomeDisqualified {
		return types.ResponseDisqualified
	}
	return types.ResponseCompleted
}

// Path is the result of replaying a full answer set through a survey.
type Path struct {
	Visited   []types.QuestionID `json:"visited"`
	Hidden    []types.QuestionID `json:"hidden,omitempty"`
	Outcome   Outcome            `json:"outcome"`
	Message   string             `json:"message,omitempty"`
	Discarded []types.QuestionID `json:"discarded,omitempty"`
}

// Navigator evaluates survey logic and turns the fired action into a Step.
// Safe for concurrent use.
type Navigator struct {
	logger zerolog.Logger
	engine *logic.Engine
}

// New creates a Navigator logging through logger.
func New(logger zerolog.Logger) *Navigator {
	return &Navigator{
		logger: logger.With().Str("component", "navigation").Logger(),
		engine: logic.NewEngine(logger),
	}
}

// survey-scoped lookups built once per call
type plan struct {
	survey    *types.Survey
	position  map[types.QuestionID]int
	questions logic.QuestionIndex
}

func newPlan(survey *types.Survey) *plan {
	pos := make(map[types.QuestionID]int, len(survey.Questions))
	for i, q := range survey.Questions {
		if _, dup := pos[q.ID]; !dup {
			pos[q.ID] = i
		}
	}
	return &plan{survey: survey, position: pos, questions: logic.IndexQuestions(survey.Questions)}
}

// Start returns the first question of the survey, or end for an empty survey.
func (n *Navigator) Start(survey *types.Survey) Step {
	if len(survey.Questions) == 0 {
		return Step{Kind: StepEnd}
	}
	return Step{Kind: StepQuestion, QuestionID: survey.Questions[0].ID}
}

// Next decides the step after currentQuestionID given the respondent's answers.
// The path from the first question is rebuilt from the stored answers so
// hides applied on earlier steps still hold, and rules only see answers to
// questions on that path.
func (n *Navigator) Next(survey *types.Survey, currentQuestionID types.QuestionID, answers []types.AnswerRecord) (Step, error) {
	p := newPlan(survey)
	if _, ok := p.position[currentQuestionID]; !ok {
		return Step{}, fmt.Errorf("%w: %s", types.ErrUnknownQuestion, currentQuestionID)
	}

	w := newWalk(answers)
	current := survey.Questions[0].ID
	for current != currentQuestionID {
		step := n.visit(p, w, current)
		if step.Terminal() || w.visited[step.QuestionID] || len(w.path) >= types.MaxQuestionsPerSurvey {
			// currentQuestionID is off the rebuilt path
			break
		}
		current = step.QuestionID
	}
	return n.visit(p, w, currentQuestionID), nil
}

// walk is the state of one pass through the survey: the answers seen so
// far, questions hidden so far and the path taken.
type walk struct {
	all     logic.Snapshot
	seen    logic.Snapshot
	hidden  map[types.QuestionID]bool
	visited map[types.QuestionID]bool
	path    []types.QuestionID
}

func newWalk(answers []types.AnswerRecord) *walk {
	return &walk{
		all:     logic.NewSnapshot(answers),
		seen:    logic.Snapshot{},
		hidden:  map[types.QuestionID]bool{},
		visited: map[types.QuestionID]bool{},
	}
}

// visit records current on the path, adds its answer to the snapshot the
// rules see, and decides the following step.
func (n *Navigator) visit(p *plan, w *walk, current types.QuestionID) Step {
	if v, ok := w.all.Get(current); ok {
		w.seen[current] = v
	}
	w.visited[current] = true
	w.path = append(w.path, current)
	return n.next(p, current, w.seen, w.hidden)
}

func (n *Navigator) next(p *plan, current types.QuestionID, snap logic.Snapshot, hidden map[types.QuestionID]bool) Step {
	pos := p.position[current]
	q := &p.survey.Questions[pos]

	res := n.engine.Evaluate(q.SkipLogic, snap, p.questions)
	if !res.Matched {
		res = n.engine.Evaluate(p.survey.LogicRules, snap, p.questions)
	}
	if !res.Matched {
		return p.linear(pos, hidden)
	}

	log := n.logger.With().
		Str("survey", string(p.survey.ID)).
		Str("question", string(current)).
		Str("rule", res.RuleName).
		Str("action", string(res.Action.Type)).
		Logger()

	action := res.Action
	var step Step
	switch action.Type {
	case types.ActionSkipToQuestion:
		if _, ok := p.position[action.TargetQuestionID]; !ok {
			log.Warn().
				Str("target", string(action.TargetQuestionID)).
				Str("reason", "target question not found").
				Msg("skip ignored, continuing linearly")
			step = p.linear(pos, hidden)
			break
		}
		step = Step{Kind: StepQuestion, QuestionID: action.TargetQuestionID}
	case types.ActionHideQuestion:
		if _, ok := p.position[action.TargetQuestionID]; !ok {
			log.Warn().
				Str("target", string(action.TargetQuestionID)).
				Str("reason", "target question not found").
				Msg("hide ignored")
		} else {
			hidden[action.TargetQuestionID] = true
		}
		step = p.linear(pos, hidden)
	case types.ActionJumpToEndOfSurvey:
		step = Step{Kind: StepEnd}
	case types.ActionDisqualifyRespondent:
		step = Step{Kind: StepDisqualified, Message: action.DisqualificationMessage}
	case types.ActionMarkAsCompleted:
		step = Step{Kind: StepCompleted}
	default:
		log.Warn().Str("reason", "unknown action type").Msg("action ignored, continuing linearly")
		step = p.linear(pos, hidden)
	}
	step.RuleName = res.RuleName
	log.Debug().Str("step", string(step.Kind)).Str("next", string(step.QuestionID)).Msg("logic rule applied")
	return step
}

// linear returns the first non-hidden question after pos.
func (p *plan) linear(pos int, hidden map[types.QuestionID]bool) Step {
	step := Step{Kind: StepEnd, Hidden: hiddenList(p, hidden)}
	for i := pos + 1; i < len(p.survey.Questions); i++ {
		id := p.survey.Questions[i].ID
		if hidden[id] {
			continue
		}
		step.Kind = StepQuestion
		step.QuestionID = id
		break
	}
	return step
}

// hiddenList returns hidden ids in survey order.
func hiddenList(p *plan, hidden map[types.QuestionID]bool) []types.QuestionID {
	if len(hidden) == 0 {
		return nil
	}
	out := make([]types.QuestionID, 0, len(hidden))
	for id := range hidden {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return p.position[out[i]] < p.position[out[j]] })
	return out
}

// Replay walks the survey from its first question, applying logic at every
// step, and reports the path a respondent with these answers must have taken.
// Answers to questions off that path are returned in Discarded.
func (n *Navigator) Replay(survey *types.Survey, answers []types.AnswerRecord) (Path, error) {
	if len(survey.Questions) == 0 {
		return Path{}, types.ErrEmptySurvey
	}

	p := newPlan(survey)
	w := newWalk(answers)

	path := Path{Outcome: OutcomeCompleted}
	current := survey.Questions[0].ID
	for {
		step := n.visit(p, w, current)
		if step.Terminal() {
			if step.Kind == StepDisqualified {
				path.Outcome = OutcomeDisqualified
				path.Message = step.Message
			}
			break
		}
		if w.visited[step.QuestionID] || len(w.path) >= types.MaxQuestionsPerSurvey {
			n.logger.Warn().
				Str("survey", string(survey.ID)).
				Str("question", string(step.QuestionID)).
				Str("reason", "navigation cycle").
				Msg("replay stopped at revisited question")
			break
		}
		current = step.QuestionID
	}

	path.Visited = w.path
	path.Hidden = hiddenList(p, w.hidden)
	for _, rec := range w.all.Records(survey.Questions) {
		if !w.visited[rec.QuestionID] {
			path.Discarded = append(path.Discarded, rec.QuestionID)
		}
	}
	return path, nil
}
