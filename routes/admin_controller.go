package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/mbolis/survey-app/app"
	"github.com/mbolis/survey-app/httpx"
	"github.com/mbolis/survey-app/log"
	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/store"
)

var validate = validator.New()

// checkQuestionTypes rejects types the registry cannot serve.
func checkQuestionTypes(app app.App, qs ...model.Question) error {
	for _, q := range qs {
		known := false
		for _, tag := range app.Questions.Types() {
			if q.Type == tag {
				known = true
				break
			}
		}
		if !known {
			return errors.New("unknown question type " + string(q.Type))
		}
	}
	return nil
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = validate.Struct(survey)
		if err == nil {
			err = checkQuestionTypes(app, survey.Questions...)
		}
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		survey.ID = 0
		err = app.Store.CreateSurvey(r.Context(), &survey)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": survey.ID,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Store.ListSurveys(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := surveyID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey, err := app.GetSurvey(r.Context(), id)
		if err != nil {
			httpx.LogStoreError(w, "get_survey", id, err)
			return
		}

		render.JSON(w, r, survey)
	}
}

type surveyUpdate struct {
	Title     string `json:"title" validate:"required,max=255"`
	Summary   string `json:"summary" validate:"max=400"`
	Published bool   `json:"published"`
}

// UpdateSurvey only changes metadata: questions are append-only through AddQuestion.
func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := surveyID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		update := surveyUpdate{}
		err = render.DecodeJSON(r.Body, &update)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		err = validate.Struct(update)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		survey, err := app.GetSurvey(r.Context(), id)
		if err != nil {
			httpx.LogStoreError(w, "update_survey", id, err)
			return
		}
		survey.Title = update.Title
		survey.Summary = update.Summary
		if !update.Published {
			survey.PublishedAt = nil
		}
		survey.Published = update.Published

		err = app.Store.UpdateSurvey(r.Context(), &survey)
		if err != nil {
			httpx.LogStoreError(w, "update_survey", id, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := surveyID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = app.Store.DeleteSurvey(r.Context(), id)
		if err != nil {
			httpx.LogStoreError(w, "delete_survey", id, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// AddQuestion appends a question. Surveys with responses are frozen, since
// reordering under a live attempt would shift the question indexes.
func AddQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := surveyID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		question := model.Question{}
		err = render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		err = validate.Struct(question)
		if err == nil {
			err = checkQuestionTypes(app, question)
		}
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		n, err := app.CountResponses(r.Context(), id)
		if err != nil {
			httpx.LogInternalError(w, "db.add_question.count_responses", err)
			return
		}
		if n > 0 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "add_question.has_responses")
			return
		}

		question.ID = 0
		question.SurveyID = id
		err = app.Store.AddQuestion(r.Context(), &question)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "add_question", id)
			} else {
				httpx.LogInternalError(w, "db.add_question", err)
			}
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": question.ID,
		})
	}
}
