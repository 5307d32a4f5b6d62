package types

import "errors"

// Sentinel errors for surveylogic operations.
// The logic engine itself never returns errors; these belong to the
// navigation, storage, and API layers around it.
var (
	// ErrSurveyNotFound indicates no survey exists with the requested id.
	ErrSurveyNotFound = errors.New("survey not found")

	// ErrSurveyNotActive indicates the survey does not accept responses.
	ErrSurveyNotActive = errors.New("survey is not accepting responses")

	// ErrResponseNotFound indicates no response exists with the requested id.
	ErrResponseNotFound = errors.New("response not found")

	// ErrResponseClosed indicates the response was already completed or disqualified.
	ErrResponseClosed = errors.New("response is closed")

	// ErrUnknownQuestion indicates a question id that is not part of the survey.
	ErrUnknownQuestion = errors.New("question not part of survey")

	// ErrEmptySurvey indicates a survey without questions.
	ErrEmptySurvey = errors.New("survey has no questions")

	// ErrTooManyRules indicates a rule list exceeds the configured maximum.
	ErrTooManyRules = errors.New("too many logic rules")

	// ErrTooManyAnswers indicates an answer batch exceeds the configured maximum.
	ErrTooManyAnswers = errors.New("too many answers")

	// ErrInvalidRuleSet indicates a rule set failed lint checks where lint is enforced.
	ErrInvalidRuleSet = errors.New("invalid logic rule set")
)
