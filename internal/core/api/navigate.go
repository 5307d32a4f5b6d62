package api

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/surveylogic/internal/logic"
	"github.com/solatis/surveylogic/internal/navigation"
	"github.com/solatis/surveylogic/internal/types"
)

type startResponseRequest struct {
	SurveyID types.SurveyID `json:"surveyId"`
}

type startResponseResponse struct {
	ResponseID types.ResponseID `json:"responseId"`
	Step       navigation.Step  `json:"step"`
}

// StartResponse opens a response on an active survey, positioned at its
// first question.
func (s *NavigationService) StartResponse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req startResponseRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, toStatus(s.logger, MethodStartResponse, err)
	}
	if req.SurveyID == "" {
		return nil, toStatus(s.logger, MethodStartResponse, invalidf("surveyId is required"))
	}

	survey, err := s.store.GetSurvey(ctx, req.SurveyID)
	if err != nil {
		return nil, toStatus(s.logger, MethodStartResponse, err)
	}
	if survey.Status != types.SurveyActive {
		return nil, toStatus(s.logger, MethodStartResponse, fmt.Errorf("%w: %s is %s", types.ErrSurveyNotActive, survey.ID, survey.Status))
	}

	step := s.navigator.Start(survey)
	if step.Kind != navigation.StepQuestion {
		return nil, toStatus(s.logger, MethodStartResponse, fmt.Errorf("%w: %s", types.ErrEmptySurvey, survey.ID))
	}

	resp, err := s.store.CreateResponse(ctx, survey.ID, step.QuestionID)
	if err != nil {
		return nil, toStatus(s.logger, MethodStartResponse, err)
	}

	s.logger.Info().
		Str("survey", string(survey.ID)).
		Str("response", string(resp.ID)).
		Msg("response started")

	out, err := encodeResponse(startResponseResponse{ResponseID: resp.ID, Step: step})
	if err != nil {
		return nil, toStatus(s.logger, MethodStartResponse, err)
	}
	return out, nil
}

type navigateRequest struct {
	ResponseID        string            `json:"responseId"`
	CurrentQuestionID types.QuestionID  `json:"currentQuestionId"`
	Answers           logic.AnswerInput `json:"answers"`
}

type navigateResponse struct {
	Step navigation.Step `json:"step"`
}

// Navigate stores the submitted answers, then decides the step after the
// current question using every answer recorded so far.
//
// Terminal steps leave the response in progress with no current question;
// the final status is only written by SubmitResponse, which replays the
// whole answer set.
func (s *NavigationService) Navigate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req navigateRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, toStatus(s.logger, MethodNavigate, err)
	}
	if req.CurrentQuestionID == "" {
		return nil, toStatus(s.logger, MethodNavigate, invalidf("currentQuestionId is required"))
	}
	if req.Answers.Len() > s.cfg.MaxAnswers {
		return nil, toStatus(s.logger, MethodNavigate,
			fmt.Errorf("%w: %d answers exceeds maximum of %d", types.ErrTooManyAnswers, req.Answers.Len(), s.cfg.MaxAnswers))
	}

	resp, survey, err := s.openResponse(ctx, req.ResponseID)
	if err != nil {
		return nil, toStatus(s.logger, MethodNavigate, err)
	}
	// Reject before anything is written
	if !hasQuestion(survey, req.CurrentQuestionID) {
		return nil, toStatus(s.logger, MethodNavigate, fmt.Errorf("%w: %s", types.ErrUnknownQuestion, req.CurrentQuestionID))
	}

	if err := s.store.SaveAnswers(ctx, resp.ID, req.Answers.Records(survey.Questions)); err != nil {
		return nil, toStatus(s.logger, MethodNavigate, err)
	}
	answers, err := s.store.ListAnswers(ctx, resp.ID)
	if err != nil {
		return nil, toStatus(s.logger, MethodNavigate, err)
	}

	step, err := s.navigator.Next(survey, req.CurrentQuestionID, answers)
	if err != nil {
		return nil, toStatus(s.logger, MethodNavigate, err)
	}

	resp.CurrentQuestionID = step.QuestionID
	if err := s.store.UpdateResponse(ctx, resp); err != nil {
		return nil, toStatus(s.logger, MethodNavigate, err)
	}

	s.logger.Debug().
		Str("response", string(resp.ID)).
		Str("from", string(req.CurrentQuestionID)).
		Str("step", string(step.Kind)).
		Str("to", string(step.QuestionID)).
		Str("rule", step.RuleName).
		Msg("navigated")

	out, err := encodeResponse(navigateResponse{Step: step})
	if err != nil {
		return nil, toStatus(s.logger, MethodNavigate, err)
	}
	return out, nil
}

type submitResponseRequest struct {
	ResponseID string `json:"responseId"`
}

type submitResponseResponse struct {
	ResponseID  types.ResponseID   `json:"responseId"`
	Outcome     navigation.Outcome `json:"outcome"`
	Path        []types.QuestionID `json:"path"`
	Hidden      []types.QuestionID `json:"hidden,omitempty"`
	Discarded   []types.QuestionID `json:"discarded,omitempty"`
	Message     string             `json:"message,omitempty"`
	SubmittedAt string             `json:"submittedAt"`
}

// SubmitResponse replays every stored answer through the survey logic,
// discards answers to questions off the replayed path, and records the
// final status.
func (s *NavigationService) SubmitResponse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req submitResponseRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, toStatus(s.logger, MethodSubmitResponse, err)
	}

	resp, survey, err := s.openResponse(ctx, req.ResponseID)
	if err != nil {
		return nil, toStatus(s.logger, MethodSubmitResponse, err)
	}

	answers, err := s.store.ListAnswers(ctx, resp.ID)
	if err != nil {
		return nil, toStatus(s.logger, MethodSubmitResponse, err)
	}

	path, err := s.navigator.Replay(survey, answers)
	if err != nil {
		return nil, toStatus(s.logger, MethodSubmitResponse, err)
	}

	if len(path.Discarded) > 0 {
		n, err := s.store.DeleteAnswers(ctx, resp.ID, path.Discarded)
		if err != nil {
			return nil, toStatus(s.logger, MethodSubmitResponse, err)
		}
		s.logger.Info().
			Str("response", string(resp.ID)).
			Int64("deleted", n).
			Strs("questions", questionStrings(path.Discarded)).
			Msg("off-path answers discarded")
	}

	resp.Status = path.Outcome.Status()
	resp.CurrentQuestionID = ""
	resp.DisqualificationMessage = path.Message
	if err := s.store.UpdateResponse(ctx, resp); err != nil {
		return nil, toStatus(s.logger, MethodSubmitResponse, err)
	}

	submittedAt, err := formatTimestamp(resp.UpdatedAt)
	if err != nil {
		return nil, toStatus(s.logger, MethodSubmitResponse, err)
	}

	s.logger.Info().
		Str("survey", string(survey.ID)).
		Str("response", string(resp.ID)).
		Str("outcome", string(path.Outcome)).
		Int("visited", len(path.Visited)).
		Msg("response submitted")

	out, err := encodeResponse(submitResponseResponse{
		ResponseID:  resp.ID,
		Outcome:     path.Outcome,
		Path:        path.Visited,
		Hidden:      path.Hidden,
		Discarded:   path.Discarded,
		Message:     path.Message,
		SubmittedAt: submittedAt,
	})
	if err != nil {
		return nil, toStatus(s.logger, MethodSubmitResponse, err)
	}
	return out, nil
}

// openResponse loads an in-progress response and its survey.
func (s *NavigationService) openResponse(ctx context.Context, rawID string) (*types.Response, *types.Survey, error) {
	if rawID == "" {
		return nil, nil, invalidf("responseId is required")
	}
	id, err := types.ParseResponseID(rawID)
	if err != nil {
		return nil, nil, invalidf("responseId: %v", err)
	}

	resp, err := s.store.GetResponse(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if resp.Status.Closed() {
		return nil, nil, fmt.Errorf("%w: %s is %s", types.ErrResponseClosed, resp.ID, resp.Status)
	}

	survey, err := s.store.GetSurvey(ctx, resp.SurveyID)
	if err != nil {
		return nil, nil, err
	}
	return resp, survey, nil
}

func questionStrings(ids []types.QuestionID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func hasQuestion(survey *types.Survey, id types.QuestionID) bool {
	for _, q := range survey.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}
