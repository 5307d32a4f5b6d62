// Package api provides the gRPC NavigationAPI: stateless skip-logic
// evaluation plus server-tracked response navigation and submission.
package api

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/solatis/surveylogic/internal/core/config"
	"github.com/solatis/surveylogic/internal/logic"
	"github.com/solatis/surveylogic/internal/navigation"
	"github.com/solatis/surveylogic/internal/types"
)

// Store is the persistence the navigation service needs.
// Implemented by *db.Store.
type Store interface {
	GetSurvey(ctx context.Context, id types.SurveyID) (*types.Survey, error)
	CreateResponse(ctx context.Context, surveyID types.SurveyID, currentQuestionID types.QuestionID) (*types.Response, error)
	GetResponse(ctx context.Context, id types.ResponseID) (*types.Response, error)
	UpdateResponse(ctx context.Context, resp *types.Response) error
	SaveAnswers(ctx context.Context, responseID types.ResponseID, answers []types.AnswerRecord) error
	ListAnswers(ctx context.Context, responseID types.ResponseID) ([]types.AnswerRecord, error)
	DeleteAnswers(ctx context.Context, responseID types.ResponseID, questionIDs []types.QuestionID) (int64, error)
}

// NavigationService implements NavigationAPIServer.
// Thin orchestration layer delegating to logic, navigation, and the store.
type NavigationService struct {
	store     Store
	engine    *logic.Engine
	navigator *navigation.Navigator
	cfg       *config.NavigationAPIConfig
	logger    zerolog.Logger
}

var _ NavigationAPIServer = (*NavigationService)(nil)

// NewNavigationService creates service instance with dependencies.
func NewNavigationService(store Store, cfg *config.NavigationAPIConfig, logger zerolog.Logger) (*NavigationService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}

	return &NavigationService{
		store:     store,
		engine:    logic.NewEngine(logger),
		navigator: navigation.New(logger),
		cfg:       cfg,
		logger:    logger.With().Str("component", "api").Logger(),
	}, nil
}
