// Package testutil builds a fully wired application on a throwaway
// SQLite database for HTTP-level tests.
package testutil

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbolis/survey-app/app"
	"github.com/mbolis/survey-app/config"
	"github.com/mbolis/survey-app/database"
	"github.com/mbolis/survey-app/httpx"
	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/questions"
	"github.com/mbolis/survey-app/web"
)

const (
	TokenSecret   = "test-secret"
	AdminUser     = "admin"
	AdminPassword = "admin-password"
)

// NewApp returns an App backed by a fresh database holding one admin account.
func NewApp(t *testing.T) (app.App, *sql.DB) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.EnsureUser(context.Background(), db, AdminUser, AdminPassword); err != nil {
		t.Fatalf("Failed to create admin user: %v", err)
	}

	st := database.NewStore(db)
	registry, err := questions.Default(st)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	templates, err := web.Load()
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}
	if err := registry.Validate(templates.Has); err != nil {
		t.Fatalf("Registry/templates mismatch: %v", err)
	}

	cfg := config.Config{
		TokenSecret: TokenSecret,
		TokenTTL:    time.Minute,
		SubmitRate:  6000,
		SubmitBurst: 1000,
	}
	return app.App{
		Store:        st,
		BearerServer: httpx.NewBearerServer(db, cfg.TokenSecret, cfg.TokenTTL),
		Config:       cfg,
		Questions:    registry,
		Templates:    templates,
	}, db
}

// CreateSurvey stores a survey with one question per type, in order.
func CreateSurvey(t *testing.T, a app.App, types ...model.QuestionType) model.Survey {
	t.Helper()

	survey := model.Survey{
		Title:   "Your favourite candidate",
		Summary: "Answer questions like who is your favourite candidate and why",
	}
	for i, typ := range types {
		survey.Questions = append(survey.Questions, model.Question{
			Prompt:      "Prompt " + string(rune('1'+i)),
			Description: "Description " + string(rune('1'+i)),
			Type:        typ,
		})
	}
	if err := a.CreateSurvey(context.Background(), &survey); err != nil {
		t.Fatalf("Failed to create test survey: %v", err)
	}
	return survey
}

// NewClient returns a cookie-keeping client that does not follow redirects.
func NewClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewServer serves handler until the test ends.
func NewServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}
