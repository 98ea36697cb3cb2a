// Package store declares the persistence contract used by the survey flow
// and the admin API. The SQLite implementation lives in package database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mbolis/survey-app/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

type Surveys interface {
	ListSurveys(ctx context.Context) ([]model.Survey, error)
	GetSurvey(ctx context.Context, id int64) (model.Survey, error)
	CreateSurvey(ctx context.Context, survey *model.Survey) error
	UpdateSurvey(ctx context.Context, survey *model.Survey) error
	DeleteSurvey(ctx context.Context, id int64) error
	AddQuestion(ctx context.Context, question *model.Question) error
	// Questions returns the questions of a survey in creation order.
	Questions(ctx context.Context, surveyID int64) ([]model.Question, error)
}

type Responses interface {
	// GetOrCreateResponse resolves token to an existing response of the survey,
	// or creates a fresh one when token is empty, malformed or stale.
	GetOrCreateResponse(ctx context.Context, token string, surveyID int64, respondent *string) (model.SurveyResponse, error)
	FindResponse(ctx context.Context, token string, surveyID int64) (model.SurveyResponse, error)
	CompleteResponse(ctx context.Context, id int64, at time.Time) error
	CountResponses(ctx context.Context, surveyID int64) (int, error)
}

type TextAnswers interface {
	FindTextAnswer(ctx context.Context, questionID, responseID int64) (model.TextAnswer, error)
	// SaveTextAnswer updates the answer in place when it has an ID, inserts it otherwise.
	SaveTextAnswer(ctx context.Context, answer *model.TextAnswer) error
}

type Store interface {
	Surveys
	Responses
	TextAnswers
}
