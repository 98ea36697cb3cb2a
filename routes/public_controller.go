package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mbolis/survey-app/app"
	"github.com/mbolis/survey-app/httpx"
	"github.com/mbolis/survey-app/log"
	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/navigation"
)

func surveyID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func renderPage(app app.App, w http.ResponseWriter, status int, name string, data any) {
	err := app.Templates.Render(w, status, name, data)
	if err != nil {
		httpx.LogInternalError(w, "render", err)
	}
}

func SurveysPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.ListSurveys(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.list_surveys", err)
			return
		}

		renderPage(app, w, http.StatusOK, "surveys.html", map[string]any{
			"Surveys": surveys,
		})
	}
}

type surveyPage struct {
	Survey   model.Survey
	StartURL string
}

func SurveyPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := surveyID(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusNotFound, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey, err := app.GetSurvey(r.Context(), id)
		if err != nil {
			httpx.LogStoreError(w, "get_survey", id, err)
			return
		}

		renderPage(app, w, http.StatusOK, "survey.html", surveyPage{
			Survey:   survey,
			StartURL: navigation.TakeURL(id, 1),
		})
	}
}

func ThankYouPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(app, w, http.StatusOK, "thank_you.html", nil)
	}
}
