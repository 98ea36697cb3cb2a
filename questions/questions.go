// Package questions holds the answer handlers of each question type and the
// registry the survey flow resolves them from.
//
// A handler renders a Form for a (question, response) pair, pre-populated
// with the stored answer if there is one, and validates and persists
// submitted data for that pair. Adding a question type means adding a
// Handler and an Entry in Default; the flow controller does not change.
package questions

import (
	"context"
	"net/url"

	"github.com/mbolis/survey-app/model"
)

type Handler interface {
	Type() model.QuestionType
	// Load returns the form for the pair, bound to the existing answer if any.
	Load(ctx context.Context, q model.Question, resp model.SurveyResponse) (*Form, error)
	// Save validates data and persists it. Validation failures are reported
	// through the returned Form, not the error.
	Save(ctx context.Context, q model.Question, resp model.SurveyResponse, data url.Values) (*Form, error)
}

// Form is what a question template renders. A nil Form renders no input.
type Form struct {
	Question model.Question
	Response model.SurveyResponse
	// Value is the current content of the answer field.
	Value  string
	Errors map[string]string
}

func (f *Form) Valid() bool {
	return f == nil || len(f.Errors) == 0
}

func (f *Form) AddError(field, msg string) {
	if f.Errors == nil {
		f.Errors = map[string]string{}
	}
	f.Errors[field] = msg
}

// nullHandler serves question types nobody registered.
type nullHandler struct {
	tag model.QuestionType
}

func (h nullHandler) Type() model.QuestionType {
	return h.tag
}

func (nullHandler) Load(context.Context, model.Question, model.SurveyResponse) (*Form, error) {
	return nil, nil
}

func (nullHandler) Save(context.Context, model.Question, model.SurveyResponse, url.Values) (*Form, error) {
	return nil, nil
}

// Describe handles informational questions: there is nothing to answer.
type Describe struct{}

func (Describe) Type() model.QuestionType {
	return model.Description
}

func (Describe) Load(_ context.Context, q model.Question, resp model.SurveyResponse) (*Form, error) {
	return &Form{Question: q, Response: resp}, nil
}

func (d Describe) Save(ctx context.Context, q model.Question, resp model.SurveyResponse, _ url.Values) (*Form, error) {
	return d.Load(ctx, q, resp)
}
