package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/store"
)

// Store implements store.Store on top of a SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db}
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", store.ErrConflict, sqliteErr.Error())
	}
	return err
}

func (s *Store) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, summary, published, published_at, created_at
		FROM survey
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		survey, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, survey)
	}
	return surveys, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row scanner) (s model.Survey, err error) {
	var publishedAt sql.NullTime
	err = row.Scan(&s.ID, &s.Title, &s.Summary, &s.Published, &publishedAt, &s.CreatedAt)
	if publishedAt.Valid {
		s.PublishedAt = &publishedAt.Time
	}
	return
}

// GetSurvey loads the survey with its questions.
func (s *Store) GetSurvey(ctx context.Context, id int64) (model.Survey, error) {
	survey, err := scanSurvey(s.db.QueryRowContext(ctx, `
		SELECT id, title, summary, published, published_at, created_at
		FROM survey
		WHERE id = ?`,
		id,
	))
	if err != nil {
		return model.Survey{}, translate(err)
	}

	survey.Questions, err = s.Questions(ctx, id)
	if err != nil {
		return model.Survey{}, err
	}
	return survey, nil
}

func (s *Store) CreateSurvey(ctx context.Context, survey *model.Survey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = time.Now()
	}
	if survey.Published && survey.PublishedAt == nil {
		now := time.Now()
		survey.PublishedAt = &now
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO survey (title, summary, published, published_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		survey.Title,
		survey.Summary,
		survey.Published,
		survey.PublishedAt,
		survey.CreatedAt,
	).Scan(&survey.ID)
	if err != nil {
		return fmt.Errorf("insert survey: %w", translate(err))
	}

	for i := range survey.Questions {
		q := &survey.Questions[i]
		q.SurveyID = survey.ID
		err = insertQuestion(ctx, tx, q)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertQuestion(ctx context.Context, db queryRower, q *model.Question) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO question (survey_id, prompt, description, question_type)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		q.SurveyID,
		q.Prompt,
		q.Description,
		q.Type,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("insert question: %w", translate(err))
	}
	return nil
}

// UpdateSurvey rewrites the survey metadata. Questions are left untouched.
func (s *Store) UpdateSurvey(ctx context.Context, survey *model.Survey) error {
	if survey.Published && survey.PublishedAt == nil {
		now := time.Now()
		survey.PublishedAt = &now
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE survey
		SET
			title = ?,
			summary = ?,
			published = ?,
			published_at = ?
		WHERE id = ?`,
		survey.Title,
		survey.Summary,
		survey.Published,
		survey.PublishedAt,
		survey.ID,
	)
	if err != nil {
		return translate(err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSurvey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM survey WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	return expectAffected(res)
}

func (s *Store) AddQuestion(ctx context.Context, question *model.Question) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM survey WHERE id = ?`, question.SurveyID).Scan(&exists)
	if err != nil {
		return translate(err)
	}
	return insertQuestion(ctx, s.db, question)
}

// Questions has no explicit ordering column: primary key order is creation order.
func (s *Store) Questions(ctx context.Context, surveyID int64) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, survey_id, prompt, description, question_type
		FROM question
		WHERE survey_id = ?
		ORDER BY id`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		err = rows.Scan(&q.ID, &q.SurveyID, &q.Prompt, &q.Description, &q.Type)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) GetOrCreateResponse(ctx context.Context, token string, surveyID int64, respondent *string) (model.SurveyResponse, error) {
	if token != "" {
		resp, err := s.FindResponse(ctx, token, surveyID)
		switch {
		case err == nil:
			return resp, nil
		case !errors.Is(err, store.ErrNotFound):
			return model.SurveyResponse{}, err
		}
	}

	resp := model.SurveyResponse{SurveyID: surveyID, Respondent: respondent}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO survey_response (survey_id, respondent)
		VALUES (?, ?)
		RETURNING id`,
		surveyID,
		respondent,
	).Scan(&resp.ID)
	if err != nil {
		return model.SurveyResponse{}, fmt.Errorf("insert survey_response: %w", translate(err))
	}
	return resp, nil
}

// FindResponse resolves a client token. Malformed tokens and tokens of
// another survey are reported as store.ErrNotFound.
func (s *Store) FindResponse(ctx context.Context, token string, surveyID int64) (model.SurveyResponse, error) {
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return model.SurveyResponse{}, store.ErrNotFound
	}

	resp := model.SurveyResponse{}
	var respondent sql.NullString
	var completedAt sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT id, survey_id, respondent, completed_at
		FROM survey_response
		WHERE id = ?
			AND survey_id = ?`,
		id,
		surveyID,
	).Scan(&resp.ID, &resp.SurveyID, &respondent, &completedAt)
	if err != nil {
		return model.SurveyResponse{}, translate(err)
	}
	if respondent.Valid {
		resp.Respondent = &respondent.String
	}
	if completedAt.Valid {
		resp.CompletedAt = &completedAt.Time
	}
	return resp, nil
}

func (s *Store) CompleteResponse(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey_response
		SET completed_at = ?
		WHERE id = ?`,
		at,
		id,
	)
	if err != nil {
		return translate(err)
	}
	return expectAffected(res)
}

func (s *Store) CountResponses(ctx context.Context, surveyID int64) (n int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM survey_response WHERE survey_id = ?`,
		surveyID,
	).Scan(&n)
	return
}

func (s *Store) FindTextAnswer(ctx context.Context, questionID, responseID int64) (model.TextAnswer, error) {
	a := model.TextAnswer{}
	var response sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_id, survey_response_id, response
		FROM text_answer
		WHERE question_id = ?
			AND survey_response_id = ?`,
		questionID,
		responseID,
	).Scan(&a.ID, &a.QuestionID, &a.ResponseID, &response)
	if err != nil {
		return model.TextAnswer{}, translate(err)
	}
	if response.Valid {
		a.Response = &response.String
	}
	return a, nil
}

func (s *Store) SaveTextAnswer(ctx context.Context, a *model.TextAnswer) error {
	if a.ID != 0 {
		res, err := s.db.ExecContext(ctx, `
			UPDATE text_answer
			SET response = ?
			WHERE id = ?`,
			a.Response,
			a.ID,
		)
		if err != nil {
			return translate(err)
		}
		return expectAffected(res)
	}

	// a concurrent insert for the same pair loses on the unique index
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO text_answer (question_id, survey_response_id, response)
		VALUES (?, ?, ?)
		RETURNING id`,
		a.QuestionID,
		a.ResponseID,
		a.Response,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert text_answer: %w", translate(err))
	}
	return nil
}
