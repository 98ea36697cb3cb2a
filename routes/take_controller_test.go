package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/navigation"
	"github.com/mbolis/survey-app/questions"
	"github.com/mbolis/survey-app/store"
	"github.com/mbolis/survey-app/testutil"
)

type page struct {
	status   int
	body     string
	location string
}

func get(t *testing.T, c *http.Client, u string) page {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	return readPage(t, resp)
}

func post(t *testing.T, c *http.Client, u string, data url.Values) page {
	t.Helper()
	resp, err := c.PostForm(u, data)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	return readPage(t, resp)
}

func readPage(t *testing.T, resp *http.Response) page {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return page{resp.StatusCode, string(body), resp.Header.Get("Location")}
}

func responseCookie(t *testing.T, c *http.Client, base string, surveyID int64) string {
	t.Helper()
	u, _ := url.Parse(base)
	for _, cookie := range c.Jar.Cookies(u) {
		if cookie.Name == navigation.CookieName(surveyID) {
			return cookie.Value
		}
	}
	return ""
}

func TestTakeSurveyScenario(t *testing.T) {
	a, db := testutil.NewApp(t)
	survey := testutil.CreateSurvey(t, a, model.Description, model.Text, model.Description)
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)

	take := func(i int) string { return srv.URL + navigation.TakeURL(survey.ID, i) }

	p := get(t, c, take(1))
	if p.status != http.StatusOK {
		t.Fatalf("GET 1: status %d", p.status)
	}
	if !strings.Contains(p.body, `<p class="question-description">Description 1</p>`) {
		t.Errorf("GET 1 should render the DESC template:\n%s", p.body)
	}
	token := responseCookie(t, c, srv.URL, survey.ID)
	if token == "" {
		t.Fatal("response cookie not set")
	}

	p = get(t, c, take(2))
	if !strings.Contains(p.body, `maxlength="255"></textarea>`) {
		t.Errorf("GET 2 should render an empty text input:\n%s", p.body)
	}

	p = post(t, c, take(2), url.Values{"response": {"hello"}})
	if p.status != http.StatusFound {
		t.Fatalf("POST 2: status %d, body %s", p.status, p.body)
	}
	if p.location != navigation.TakeURL(survey.ID, 3) {
		t.Errorf("POST 2 redirected to %q", p.location)
	}

	p = get(t, c, take(2))
	if !strings.Contains(p.body, `maxlength="255">hello</textarea>`) {
		t.Errorf("GET 2 should be pre-populated:\n%s", p.body)
	}

	if got := responseCookie(t, c, srv.URL, survey.ID); got != token {
		t.Errorf("cookie changed from %s to %s", token, got)
	}
	if n, _ := a.CountResponses(context.Background(), survey.ID); n != 1 {
		t.Errorf("responses = %d, want 1", n)
	}

	p = post(t, c, take(2), url.Values{"response": {"hello again"}})
	if p.status != http.StatusFound {
		t.Fatalf("resubmit: status %d", p.status)
	}
	var rows int
	db.QueryRow(`SELECT COUNT(*) FROM text_answer WHERE question_id = ?`, survey.Questions[1].ID).Scan(&rows)
	if rows != 1 {
		t.Errorf("answer rows = %d, want 1", rows)
	}

	p = post(t, c, take(3), nil)
	if p.status != http.StatusFound || p.location != navigation.FinishURL(survey.ID) {
		t.Errorf("POST last: status %d, location %q", p.status, p.location)
	}
}

func TestTakeSurveyValidationFailure(t *testing.T) {
	a, db := testutil.NewApp(t)
	survey := testutil.CreateSurvey(t, a, model.Text)
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)

	p := post(t, c, srv.URL+navigation.TakeURL(survey.ID, 1), url.Values{"response": {strings.Repeat("x", 256)}})
	if p.status != http.StatusOK {
		t.Fatalf("status %d, want 200", p.status)
	}
	if !strings.Contains(p.body, `class="error"`) {
		t.Errorf("errors not rendered:\n%s", p.body)
	}

	var rows int
	db.QueryRow(`SELECT COUNT(*) FROM text_answer`).Scan(&rows)
	if rows != 0 {
		t.Errorf("answer rows = %d, want 0", rows)
	}
}

func TestTakeSurveyNotFound(t *testing.T) {
	a, _ := testutil.NewApp(t)
	survey := testutil.CreateSurvey(t, a, model.Description, model.Text, model.Description)
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)

	for _, path := range []string{
		navigation.TakeURL(survey.ID, 0),
		navigation.TakeURL(survey.ID, 4),
		navigation.TakeURL(survey.ID, -1),
		navigation.TakeURL(survey.ID+1, 1),
		"/surveys/abc/take/1",
	} {
		if p := get(t, c, srv.URL+path); p.status != http.StatusNotFound {
			t.Errorf("GET %s: status %d, want 404", path, p.status)
		}
	}
	if p := post(t, c, srv.URL+navigation.TakeURL(survey.ID, 4), url.Values{"response": {"x"}}); p.status != http.StatusNotFound {
		t.Errorf("POST past end: status %d, want 404", p.status)
	}
	if n, _ := a.CountResponses(context.Background(), survey.ID); n != 0 {
		t.Errorf("responses = %d, want 0", n)
	}
}

func TestFinishScenario(t *testing.T) {
	a, _ := testutil.NewApp(t)
	survey := testutil.CreateSurvey(t, a, model.Text)
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)
	finish := srv.URL + navigation.FinishURL(survey.ID)

	if p := get(t, c, finish); p.status != http.StatusNotFound {
		t.Errorf("GET finish without cookie: status %d, want 404", p.status)
	}

	get(t, c, srv.URL+navigation.TakeURL(survey.ID, 1))
	token := responseCookie(t, c, srv.URL, survey.ID)

	p := get(t, c, finish)
	if p.status != http.StatusOK {
		t.Fatalf("GET finish: status %d", p.status)
	}
	if !strings.Contains(p.body, `href="`+navigation.TakeURL(survey.ID, 1)+`"`) {
		t.Errorf("review link missing:\n%s", p.body)
	}

	p = post(t, c, finish, nil)
	if p.status != http.StatusFound || p.location != navigation.ThankYouURL {
		t.Fatalf("POST finish: status %d, location %q", p.status, p.location)
	}
	if got := responseCookie(t, c, srv.URL, survey.ID); got != "" {
		t.Errorf("cookie still set: %q", got)
	}

	resp, err := a.FindResponse(context.Background(), token, survey.ID)
	if err != nil {
		t.Fatalf("FindResponse: %v", err)
	}
	if !resp.Completed() {
		t.Error("completion timestamp not set")
	}

	if p := get(t, c, finish); p.status != http.StatusNotFound {
		t.Errorf("GET finish after completion: status %d, want 404", p.status)
	}
	if p := get(t, c, srv.URL+navigation.ThankYouURL); p.status != http.StatusOK {
		t.Errorf("GET thank-you: status %d", p.status)
	}
}

func TestCompletedTokenStartsOver(t *testing.T) {
	a, _ := testutil.NewApp(t)
	survey := testutil.CreateSurvey(t, a, model.Text)
	srv := testutil.NewServer(t, Wire(context.Background(), a))

	done, _ := a.GetOrCreateResponse(context.Background(), "", survey.ID, nil)
	a.CompleteResponse(context.Background(), done.ID, time.Now())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+navigation.TakeURL(survey.ID, 1), nil)
	req.AddCookie(&http.Cookie{Name: navigation.CookieName(survey.ID), Value: done.Token()})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == navigation.CookieName(survey.ID) && cookie.Value == done.Token() {
			t.Error("completed response was resumed")
		}
	}
	if n, _ := a.CountResponses(context.Background(), survey.ID); n != 2 {
		t.Errorf("responses = %d, want 2", n)
	}
}

func TestIndependentSurveyCookies(t *testing.T) {
	a, _ := testutil.NewApp(t)
	first := testutil.CreateSurvey(t, a, model.Text)
	second := testutil.CreateSurvey(t, a, model.Text)
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)

	post(t, c, srv.URL+navigation.TakeURL(first.ID, 1), url.Values{"response": {"one"}})
	post(t, c, srv.URL+navigation.TakeURL(second.ID, 1), url.Values{"response": {"two"}})

	t1 := responseCookie(t, c, srv.URL, first.ID)
	t2 := responseCookie(t, c, srv.URL, second.ID)
	if t1 == "" || t2 == "" || t1 == t2 {
		t.Fatalf("cookies = %q, %q", t1, t2)
	}

	p := get(t, c, srv.URL+navigation.TakeURL(first.ID, 1))
	if !strings.Contains(p.body, ">one</textarea>") {
		t.Errorf("first survey lost its answer:\n%s", p.body)
	}
}

// conflictingStore loses every answer write, as after a concurrent insert
// for the same question and response.
type conflictingStore struct{ store.Store }

func (conflictingStore) SaveTextAnswer(context.Context, *model.TextAnswer) error {
	return store.ErrConflict
}

func TestSubmitAnswerConflictIsServerError(t *testing.T) {
	a, db := testutil.NewApp(t)
	survey := testutil.CreateSurvey(t, a, model.Text)
	a.Store = conflictingStore{a.Store}
	registry, err := questions.Default(a.Store)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	a.Questions = registry
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)
	take := srv.URL + navigation.TakeURL(survey.ID, 1)

	get(t, c, take)
	token := responseCookie(t, c, srv.URL, survey.ID)
	_, err = db.Exec(`INSERT INTO text_answer (question_id, survey_response_id, response) VALUES (?, ?, 'original')`, survey.Questions[0].ID, token)
	if err != nil {
		t.Fatalf("Failed to insert answer: %v", err)
	}

	p := post(t, c, take, url.Values{"response": {"overwrite"}})
	if p.status != http.StatusInternalServerError {
		t.Errorf("status %d, want 500", p.status)
	}

	var stored string
	err = db.QueryRow(`SELECT response FROM text_answer WHERE survey_response_id = ?`, token).Scan(&stored)
	if err != nil {
		t.Fatalf("Failed to read answer: %v", err)
	}
	if stored != "original" {
		t.Errorf("stored answer = %q, want it untouched", stored)
	}
}

func TestUnknownQuestionTypeDegrades(t *testing.T) {
	a, db := testutil.NewApp(t)
	survey := testutil.CreateSurvey(t, a)
	_, err := db.Exec(`INSERT INTO question (survey_id, prompt, description, question_type) VALUES (?, 'Rate us', '', 'RATING')`, survey.ID)
	if err != nil {
		t.Fatalf("Failed to insert question: %v", err)
	}
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)
	take := srv.URL + navigation.TakeURL(survey.ID, 1)

	p := get(t, c, take)
	if p.status != http.StatusOK || !strings.Contains(p.body, "Rate us") {
		t.Errorf("GET: status %d\n%s", p.status, p.body)
	}
	p = post(t, c, take, url.Values{"response": {"5"}})
	if p.status != http.StatusFound || p.location != navigation.FinishURL(survey.ID) {
		t.Errorf("POST: status %d, location %q", p.status, p.location)
	}
}

func TestSurveyPages(t *testing.T) {
	a, _ := testutil.NewApp(t)
	full := testutil.CreateSurvey(t, a, model.Text)
	empty := testutil.CreateSurvey(t, a)
	srv := testutil.NewServer(t, Wire(context.Background(), a))
	c := testutil.NewClient(t)

	p := get(t, c, srv.URL+"/")
	if p.status != http.StatusOK {
		t.Fatalf("GET /: status %d", p.status)
	}
	for _, s := range []model.Survey{full, empty} {
		if !strings.Contains(p.body, fmt.Sprintf(`id="survey_%d"`, s.ID)) {
			t.Errorf("survey %d not listed", s.ID)
		}
	}

	p = get(t, c, srv.URL+full.URL())
	if !strings.Contains(p.body, `<a id="btn_takesurvey" class="btn" href="`+navigation.TakeURL(full.ID, 1)+`"`) {
		t.Errorf("start action missing:\n%s", p.body)
	}

	p = get(t, c, srv.URL+empty.URL())
	if !strings.Contains(p.body, `<button id="btn_takesurvey" class="btn" disabled>`) {
		t.Errorf("start action should be disabled:\n%s", p.body)
	}

	if p := get(t, c, srv.URL+"/surveys/999"); p.status != http.StatusNotFound {
		t.Errorf("GET missing survey: status %d", p.status)
	}
}
