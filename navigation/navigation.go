// Package navigation sequences the questions of a survey. Questions are
// addressed by a 1-based index; index N+1 leads to the finish step.
package navigation

import (
	"fmt"

	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/store"
)

// ErrOutOfRange is returned for indexes outside [1, N]. It matches store.ErrNotFound.
var ErrOutOfRange = fmt.Errorf("question index out of range: %w", store.ErrNotFound)

const ThankYouURL = "/thank-you"

func TakeURL(surveyID int64, index int) string {
	return fmt.Sprintf("/surveys/%d/take/%d", surveyID, index)
}

func FinishURL(surveyID int64) string {
	return fmt.Sprintf("/surveys/%d/finish", surveyID)
}

// CookieName is keyed per survey so attempts at different surveys stay independent.
func CookieName(surveyID int64) string {
	return fmt.Sprintf("survey_response_id_%d", surveyID)
}

// QuestionAt expects questions in creation order.
func QuestionAt(questions []model.Question, index int) (model.Question, error) {
	if index < 1 || index > len(questions) {
		return model.Question{}, ErrOutOfRange
	}
	return questions[index-1], nil
}

func NextURL(surveyID int64, count, index int) string {
	if index+1 <= count {
		return TakeURL(surveyID, index+1)
	}
	return FinishURL(surveyID)
}
