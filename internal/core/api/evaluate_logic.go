package api

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/surveylogic/internal/logic"
	"github.com/solatis/surveylogic/internal/types"
)

type evaluateLogicRequest struct {
	Rules     []types.LogicRule `json:"rules"`
	Answers   logic.AnswerInput `json:"answers"`
	Questions []types.Question  `json:"questions"`
}

type evaluateLogicResponse struct {
	Action    *types.Action `json:"action"`
	RuleName  string        `json:"ruleName,omitempty"`
	RuleIndex int           `json:"ruleIndex"`
}

// EvaluateLogic runs a rule list against supplied answers and questions.
// Stateless: nothing is read from or written to the store.
func (s *NavigationService) EvaluateLogic(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req evaluateLogicRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, toStatus(s.logger, MethodEvaluateLogic, err)
	}

	if len(req.Rules) > s.cfg.MaxRules {
		return nil, toStatus(s.logger, MethodEvaluateLogic,
			fmt.Errorf("%w: %d rules exceeds maximum of %d", types.ErrTooManyRules, len(req.Rules), s.cfg.MaxRules))
	}
	if req.Answers.Len() > s.cfg.MaxAnswers {
		return nil, toStatus(s.logger, MethodEvaluateLogic,
			fmt.Errorf("%w: %d answers exceeds maximum of %d", types.ErrTooManyAnswers, req.Answers.Len(), s.cfg.MaxAnswers))
	}
	if len(req.Questions) > types.MaxQuestionsPerSurvey {
		return nil, toStatus(s.logger, MethodEvaluateLogic,
			invalidf("%d questions exceeds maximum of %d", len(req.Questions), types.MaxQuestionsPerSurvey))
	}
	if err := ctx.Err(); err != nil {
		return nil, toStatus(s.logger, MethodEvaluateLogic, err)
	}

	result := s.engine.Evaluate(req.Rules, req.Answers.Snapshot(), logic.IndexQuestions(req.Questions))

	out, err := encodeResponse(evaluateLogicResponse{
		Action:    result.ActionOrNil(),
		RuleName:  result.RuleName,
		RuleIndex: result.RuleIndex,
	})
	if err != nil {
		return nil, toStatus(s.logger, MethodEvaluateLogic, err)
	}
	return out, nil
}
