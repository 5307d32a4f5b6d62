package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/solatis/surveylogic/internal/types"
)

/*
 * Survey and response persistence.
 *
 * Surveys are written once with their questions (CreateSurvey) and read back
 * as a whole (GetSurvey). Logic rules, skip logic and heatmap areas live in
 * JSON columns. A malformed rule inside a stored rule list is skipped with a
 * warning so one bad rule cannot take a whole survey offline; the remaining
 * rules keep their order.
 *
 * Answers are upserted per (response_id, question_id). answered_seq records
 * write order so ListAnswers returns records oldest first, which keeps
 * last-write-wins semantics when callers rebuild a snapshot.
 */

// Store provides survey and response persistence over named queries.
type Store struct {
	db      *sqlx.DB
	queries *Queries
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStore creates a Store.
func NewStore(db *sqlx.DB, queries *Queries, logger zerolog.Logger) *Store {
	return &Store{
		db:      db,
		queries: queries,
		logger:  logger.With().Str("component", "store").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type surveyRow struct {
	SurveyID   string    `db:"survey_id"`
	Title      string    `db:"title"`
	Status     string    `db:"status"`
	LogicRules string    `db:"logic_rules"`
	CreatedAt  time.Time `db:"created_at"`
}

type questionRow struct {
	SurveyID     string         `db:"survey_id"`
	QuestionID   string         `db:"question_id"`
	Position     int            `db:"position"`
	Type         string         `db:"type"`
	Title        string         `db:"title"`
	Required     bool           `db:"required"`
	HeatmapAreas string         `db:"heatmap_areas"`
	SkipLogic    string         `db:"skip_logic"`
	Config       sql.NullString `db:"config"`
}

type responseRow struct {
	ResponseID              string    `db:"response_id"`
	SurveyID                string    `db:"survey_id"`
	Status                  string    `db:"status"`
	CurrentQuestionID       string    `db:"current_question_id"`
	DisqualificationMessage string    `db:"disqualification_message"`
	CreatedAt               time.Time `db:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"`
}

type answerRow struct {
	QuestionID string `db:"question_id"`
	Value      string `db:"value"`
}

// GetSurvey loads a survey with its questions in position order.
func (s *Store) GetSurvey(ctx context.Context, id types.SurveyID) (*types.Survey, error) {
	var row surveyRow
	err := s.queries.GetContext(ctx, "get-survey", &row, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrSurveyNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	var qrows []questionRow
	if err := s.queries.SelectContext(ctx, "list-questions", &qrows, string(id)); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	log := s.logger.With().Str("survey", row.SurveyID).Logger()
	survey := &types.Survey{
		ID:         types.SurveyID(row.SurveyID),
		Title:      row.Title,
		Status:     types.SurveyStatus(row.Status),
		LogicRules: decodeRules(log, "logic_rules", row.LogicRules),
		CreatedAt:  row.CreatedAt.UTC(),
		Questions:  make([]types.Question, 0, len(qrows)),
	}

	for _, qr := range qrows {
		qlog := log.With().Str("question", qr.QuestionID).Logger()
		q := types.Question{
			ID:        types.QuestionID(qr.QuestionID),
			Type:      types.QuestionType(qr.Type),
			Title:     qr.Title,
			Position:  qr.Position,
			Required:  qr.Required,
			SkipLogic: decodeRules(qlog, "skip_logic", qr.SkipLogic),
		}
		if qr.HeatmapAreas != "" {
			if err := json.Unmarshal([]byte(qr.HeatmapAreas), &q.DefinedHeatmapAreas); err != nil {
				qlog.Warn().Err(err).Str("column", "heatmap_areas").Msg("malformed heatmap areas ignored")
				q.DefinedHeatmapAreas = nil
			}
		}
		if qr.Config.Valid && qr.Config.String != "" {
			q.Config = json.RawMessage(qr.Config.String)
		}
		survey.Questions = append(survey.Questions, q)
	}
	return survey, nil
}

// decodeRules decodes a stored rule list, skipping rules that fail to decode.
func decodeRules(log zerolog.Logger, column, raw string) []types.LogicRule {
	if raw == "" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Warn().Err(err).Str("column", column).Msg("malformed rule list ignored")
		return nil
	}
	rules := make([]types.LogicRule, 0, len(items))
	for i, item := range items {
		var rule types.LogicRule
		if err := json.Unmarshal(item, &rule); err != nil {
			// Skip malformed rule - continue processing others
			log.Warn().Err(err).Str("column", column).Int("rule_index", i).Msg("malformed rule skipped")
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// CreateSurvey inserts a survey and its questions in one transaction.
// Assigns an ID and creation time when unset; question positions follow
// slice order.
func (s *Store) CreateSurvey(ctx context.Context, survey *types.Survey) error {
	if survey.ID == "" {
		survey.ID = types.NewSurveyID()
	}
	if survey.Status == "" {
		survey.Status = types.SurveyDraft
	}
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = s.now()
	}
	if len(survey.Questions) > types.MaxQuestionsPerSurvey {
		return fmt.Errorf("survey has %d questions, maximum is %d", len(survey.Questions), types.MaxQuestionsPerSurvey)
	}

	rules, err := marshalJSON(survey.LogicRules, "[]")
	if err != nil {
		return fmt.Errorf("encode logic rules: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.queries.TxExec(ctx, tx, "insert-survey",
		string(survey.ID), survey.Title, string(survey.Status), rules, survey.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}

	for i := range survey.Questions {
		q := &survey.Questions[i]
		q.Position = i

		areas, err := marshalJSON(q.DefinedHeatmapAreas, "[]")
		if err != nil {
			return fmt.Errorf("encode heatmap areas for %s: %w", q.ID, err)
		}
		skip, err := marshalJSON(q.SkipLogic, "[]")
		if err != nil {
			return fmt.Errorf("encode skip logic for %s: %w", q.ID, err)
		}
		var config sql.NullString
		if len(q.Config) > 0 {
			config = sql.NullString{String: string(q.Config), Valid: true}
		}

		if _, err := s.queries.TxExec(ctx, tx, "insert-question",
			string(survey.ID), string(q.ID), q.Position, string(q.Type), q.Title, q.Required, areas, skip, config,
		); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

// SetSurveyStatus changes a survey's publication state.
func (s *Store) SetSurveyStatus(ctx context.Context, id types.SurveyID, status types.SurveyStatus) error {
	res, err := s.queries.ExecContext(ctx, "update-survey-status", string(status), string(id))
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrSurveyNotFound, id)
	}
	return nil
}

// CreateResponse starts an in-progress response positioned at currentQuestionID.
func (s *Store) CreateResponse(ctx context.Context, surveyID types.SurveyID, currentQuestionID types.QuestionID) (*types.Response, error) {
	now := s.now()
	resp := &types.Response{
		ID:                types.NewResponseID(),
		SurveyID:          surveyID,
		Status:            types.ResponseInProgress,
		CurrentQuestionID: currentQuestionID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := s.queries.ExecContext(ctx, "insert-response",
		string(resp.ID), string(resp.SurveyID), string(resp.Status), string(resp.CurrentQuestionID),
		resp.DisqualificationMessage, resp.CreatedAt, resp.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return resp, nil
}

// GetResponse loads a response.
func (s *Store) GetResponse(ctx context.Context, id types.ResponseID) (*types.Response, error) {
	var row responseRow
	err := s.queries.GetContext(ctx, "get-response", &row, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrResponseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &types.Response{
		ID:                      types.ResponseID(row.ResponseID),
		SurveyID:                types.SurveyID(row.SurveyID),
		Status:                  types.ResponseStatus(row.Status),
		CurrentQuestionID:       types.QuestionID(row.CurrentQuestionID),
		DisqualificationMessage: row.DisqualificationMessage,
		CreatedAt:               row.CreatedAt.UTC(),
		UpdatedAt:               row.UpdatedAt.UTC(),
	}, nil
}

// UpdateResponse persists status, current question and disqualification message.
func (s *Store) UpdateResponse(ctx context.Context, resp *types.Response) error {
	resp.UpdatedAt = s.now()
	res, err := s.queries.ExecContext(ctx, "update-response",
		string(resp.Status), string(resp.CurrentQuestionID), resp.DisqualificationMessage, resp.UpdatedAt, string(resp.ID),
	)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrResponseNotFound, resp.ID)
	}
	return nil
}

// SaveAnswers upserts answer records in one transaction. Later records for
// the same question overwrite earlier ones.
func (s *Store) SaveAnswers(ctx context.Context, responseID types.ResponseID, answers []types.AnswerRecord) error {
	if len(answers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	seq := now.UnixNano()
	for i, a := range answers {
		value, err := json.Marshal(a.AnswerValue)
		if err != nil {
			return fmt.Errorf("encode answer for %s: %w", a.QuestionID, err)
		}
		if _, err := s.queries.TxExec(ctx, tx, "upsert-answer",
			string(responseID), string(a.QuestionID), string(value), now, seq+int64(i),
		); err != nil {
			return fmt.Errorf("save answer %s: %w", a.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

// ListAnswers returns a response's answers in write order.
func (s *Store) ListAnswers(ctx context.Context, responseID types.ResponseID) ([]types.AnswerRecord, error) {
	var rows []answerRow
	if err := s.queries.SelectContext(ctx, "list-answers", &rows, string(responseID)); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	records := make([]types.AnswerRecord, 0, len(rows))
	for _, r := range rows {
		var value any
		if err := json.Unmarshal([]byte(r.Value), &value); err != nil {
			s.logger.Warn().Err(err).
				Str("response", string(responseID)).
				Str("question", r.QuestionID).
				Msg("malformed stored answer skipped")
			continue
		}
		records = append(records, types.AnswerRecord{QuestionID: types.QuestionID(r.QuestionID), AnswerValue: value})
	}
	return records, nil
}

// DeleteAnswers removes the given questions' answers and returns how many
// rows were deleted.
func (s *Store) DeleteAnswers(ctx context.Context, responseID types.ResponseID, questionIDs []types.QuestionID) (int64, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	defer tx.Rollback()

	var deleted int64
	for _, id := range questionIDs {
		res, err := s.queries.TxExec(ctx, tx, "delete-answer", string(responseID), string(id))
		if err != nil {
			return 0, fmt.Errorf("delete answer %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	return deleted, nil
}

// CreateAPIKey records the HMAC hash of a newly issued API key.
func (s *Store) CreateAPIKey(ctx context.Context, name, secretID string, keyHash []byte) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	if _, err := s.queries.ExecContext(ctx, "insert-api-key", id, name, secretID, keyHash, s.now()); err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}
	return id, nil
}

// RevokeAPIKey marks an API key revoked. Revoking twice is a no-op.
func (s *Store) RevokeAPIKey(ctx context.Context, apiKeyID string) error {
	if _, err := s.queries.ExecContext(ctx, "revoke-api-key", s.now(), apiKeyID); err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

// marshalJSON encodes v, using empty for nil slices.
func marshalJSON[T any](v []T, empty string) (string, error) {
	if len(v) == 0 {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
