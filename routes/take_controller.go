package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbolis/survey-app/app"
	"github.com/mbolis/survey-app/httpx"
	"github.com/mbolis/survey-app/log"
	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/navigation"
	"github.com/mbolis/survey-app/questions"
	"github.com/mbolis/survey-app/routes/middlewares"
)

type questionPage struct {
	Survey   model.Survey
	Question model.Question
	Index    int
	Count    int
	Form     *questions.Form
	URL      string
	NextURL  string
	PrevURL  string
}

// step is the state shared by GET and POST on a question.
type step struct {
	survey   model.Survey
	question model.Question
	index    int
	response model.SurveyResponse
}

func (s step) page(form *questions.Form) questionPage {
	id := s.survey.ID
	p := questionPage{
		Survey:   s.survey,
		Question: s.question,
		Index:    s.index,
		Count:    len(s.survey.Questions),
		Form:     form,
		URL:      navigation.TakeURL(id, s.index),
		NextURL:  navigation.NextURL(id, len(s.survey.Questions), s.index),
	}
	if s.index > 1 {
		p.PrevURL = navigation.TakeURL(id, s.index-1)
	}
	return p
}

func (s step) fields() log.Fields {
	return log.Fields{"survey": s.survey.ID, "index": s.index, "response": s.response.ID}
}

// resolveStep writes the failure response itself and reports false when the step cannot be served.
func resolveStep(app app.App, w http.ResponseWriter, r *http.Request) (s step, ok bool) {
	id, err := surveyID(r)
	if err != nil {
		httpx.LogStatus(w, http.StatusNotFound, log.DebugLevel, "request.get_url_param.id")
		return
	}
	s.index, err = strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.LogStatus(w, http.StatusNotFound, log.DebugLevel, "request.get_url_param.index")
		return
	}

	s.survey, err = app.GetSurvey(r.Context(), id)
	if err != nil {
		httpx.LogStoreError(w, "get_survey", id, err)
		return
	}

	// bounds are checked before any response row gets created
	s.question, err = navigation.QuestionAt(s.survey.Questions, s.index)
	if err != nil {
		httpx.LogNotFound(w, "take_survey.question", s.index)
		return
	}

	s.response, err = responseFor(app, r, id)
	if err != nil {
		httpx.LogInternalError(w, "db.get_or_create_response", err)
		return
	}

	setResponseCookie(app, w, s.response)
	return s, true
}

func responseFor(app app.App, r *http.Request, surveyID int64) (model.SurveyResponse, error) {
	var token string
	if c, err := r.Cookie(navigation.CookieName(surveyID)); err == nil {
		token = c.Value
	}

	respondent := middlewares.Respondent(r)
	resp, err := app.GetOrCreateResponse(r.Context(), token, surveyID, respondent)
	if err != nil || !resp.Completed() {
		return resp, err
	}
	// a completed attempt is closed: start over
	return app.GetOrCreateResponse(r.Context(), "", surveyID, respondent)
}

func setResponseCookie(app app.App, w http.ResponseWriter, resp model.SurveyResponse) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     navigation.CookieName(resp.SurveyID),
		Value:    resp.Token(),
		HttpOnly: true,
		Secure:   app.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearResponseCookie(app app.App, w http.ResponseWriter, surveyID int64) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     navigation.CookieName(surveyID),
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   app.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func TakeSurveyPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := resolveStep(app, w, r)
		if !ok {
			return
		}

		handler := app.Questions.Resolve(s.question.Type)
		form, err := handler.Load(r.Context(), s.question, s.response)
		if err != nil {
			httpx.LogInternalError(w, "take_survey.load", err)
			return
		}

		log.WithFields(s.fields()).Debug("take_survey.render")
		renderPage(app, w, http.StatusOK, app.Questions.Template(s.question.Type), s.page(form))
	}
}

func SubmitAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := resolveStep(app, w, r)
		if !ok {
			return
		}

		err := r.ParseForm()
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_form")
			return
		}

		handler := app.Questions.Resolve(s.question.Type)
		form, err := handler.Save(r.Context(), s.question, s.response, r.PostForm)
		if err != nil {
			// a lost race on the answer uniqueness lands here too
			httpx.LogInternalError(w, "take_survey.save", err)
			return
		}

		if !form.Valid() {
			log.WithFields(s.fields()).Debugf("take_survey.invalid: %v", form.Errors)
			renderPage(app, w, http.StatusOK, app.Questions.Template(s.question.Type), s.page(form))
			return
		}

		next := navigation.NextURL(s.survey.ID, len(s.survey.Questions), s.index)
		log.WithFields(s.fields()).Debugf("take_survey.saved: next %s", next)
		http.Redirect(w, r, next, http.StatusFound)
	}
}

type finishPage struct {
	Survey    model.Survey
	Response  model.SurveyResponse
	URL       string
	ReviewURL string
}

// resolveFinish only finds responses, it never creates one.
func resolveFinish(app app.App, w http.ResponseWriter, r *http.Request) (survey model.Survey, resp model.SurveyResponse, ok bool) {
	id, err := surveyID(r)
	if err != nil {
		httpx.LogStatus(w, http.StatusNotFound, log.DebugLevel, "request.get_url_param.id")
		return
	}

	survey, err = app.GetSurvey(r.Context(), id)
	if err != nil {
		httpx.LogStoreError(w, "get_survey", id, err)
		return
	}

	c, err := r.Cookie(navigation.CookieName(id))
	if err != nil {
		httpx.LogNotFound(w, "finish.cookie", id)
		return
	}

	resp, err = app.FindResponse(r.Context(), c.Value, id)
	if err != nil {
		httpx.LogStoreError(w, "finish.response", c.Value, err)
		return
	}
	return survey, resp, true
}

func FinishPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, resp, ok := resolveFinish(app, w, r)
		if !ok {
			return
		}

		renderPage(app, w, http.StatusOK, "finish.html", finishPage{
			Survey:    survey,
			Response:  resp,
			URL:       navigation.FinishURL(survey.ID),
			ReviewURL: navigation.TakeURL(survey.ID, 1),
		})
	}
}

func FinishSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, resp, ok := resolveFinish(app, w, r)
		if !ok {
			return
		}

		if !resp.Completed() {
			err := app.CompleteResponse(r.Context(), resp.ID, time.Now())
			if err != nil {
				httpx.LogStoreError(w, "complete_response", resp.ID, err)
				return
			}
		}

		log.WithFields(log.Fields{"survey": survey.ID, "response": resp.ID}).Info("survey response completed")
		clearResponseCookie(app, w, survey.ID)
		http.Redirect(w, r, navigation.ThankYouURL, http.StatusFound)
	}
}
