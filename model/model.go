package model

import (
	"strconv"
	"time"
)

// QuestionType tags the kind of answer a question expects.
type QuestionType string

const (
	Description QuestionType = "DESC"
	Text        QuestionType = "TEXT"
)

type Survey struct {
	ID          int64      `json:"id,omitempty"`
	Title       string     `json:"title" validate:"required,max=255"`
	Summary     string     `json:"summary" validate:"max=400"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `json:"questions,omitempty" validate:"dive"`
}

// URL is the public detail page of the survey.
func (s Survey) URL() string {
	return "/surveys/" + strconv.FormatInt(s.ID, 10)
}

type Question struct {
	ID          int64        `json:"id,omitempty"`
	SurveyID    int64        `json:"survey_id,omitempty"`
	Prompt      string       `json:"prompt" validate:"required,max=255"`
	Description string       `json:"description"`
	Type        QuestionType `json:"question_type" validate:"required,max=255"`
}

// SurveyResponse is one attempt at a survey. Respondent is nil for anonymous attempts.
type SurveyResponse struct {
	ID          int64      `json:"id"`
	SurveyID    int64      `json:"survey_id"`
	Respondent  *string    `json:"respondent,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Token is the value held by the client to resume this response.
func (r SurveyResponse) Token() string {
	return strconv.FormatInt(r.ID, 10)
}

func (r SurveyResponse) Completed() bool {
	return r.CompletedAt != nil
}

type TextAnswer struct {
	ID         int64
	QuestionID int64
	ResponseID int64
	Response   *string
}
