package questions

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ajg/form"
	"github.com/go-playground/validator/v10"

	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/store"
)

// MaxTextLength bounds free-text answers, in characters.
const MaxTextLength = 255

var textRule = fmt.Sprintf("max=%d", MaxTextLength)

type textSubmission struct {
	Response string `form:"response"`
}

type TextHandler struct {
	answers  store.TextAnswers
	validate *validator.Validate
}

func NewTextHandler(answers store.TextAnswers) *TextHandler {
	return &TextHandler{
		answers:  answers,
		validate: validator.New(),
	}
}

func (*TextHandler) Type() model.QuestionType {
	return model.Text
}

func (h *TextHandler) Load(ctx context.Context, q model.Question, resp model.SurveyResponse) (*Form, error) {
	f := &Form{Question: q, Response: resp}

	answer, err := h.answers.FindTextAnswer(ctx, q.ID, resp.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("load text answer: %w", err)
	}

	if answer.Response != nil {
		f.Value = *answer.Response
	}
	return f, nil
}

func (h *TextHandler) Save(ctx context.Context, q model.Question, resp model.SurveyResponse, data url.Values) (*Form, error) {
	f := &Form{Question: q, Response: resp}

	var sub textSubmission
	dec := form.NewDecoder(nil)
	dec.IgnoreUnknownKeys(true)
	err := dec.DecodeValues(&sub, data)
	if err != nil {
		f.AddError("response", "Enter a valid value.")
		return f, nil
	}
	f.Value = sub.Response

	err = h.validate.Var(sub.Response, textRule)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			f.AddError("response", fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param()))
		}
		return f, nil
	}

	answer, err := h.answers.FindTextAnswer(ctx, q.ID, resp.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		answer = model.TextAnswer{QuestionID: q.ID, ResponseID: resp.ID}
	case err != nil:
		return nil, fmt.Errorf("load text answer: %w", err)
	}

	answer.Response = nil
	if sub.Response != "" {
		answer.Response = &sub.Response
	}

	err = h.answers.SaveTextAnswer(ctx, &answer)
	if err != nil {
		return nil, fmt.Errorf("save text answer: %w", err)
	}
	return f, nil
}
