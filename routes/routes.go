package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/survey-app/app"
	"github.com/mbolis/survey-app/routes/middlewares"
)

// Wire builds the HTTP handler. Background work started here stops with ctx.
func Wire(ctx context.Context, app app.App) http.Handler {
	limiter := middlewares.NewIPRateLimiter(ctx, app.SubmitRate, app.SubmitBurst, 10*time.Minute)
	limit := middlewares.RateLimit(limiter)

	root := chi.NewRouter()
	root.Use(middleware.RequestID, middlewares.TrustedRealIP(app.TrustedProxies), middleware.Logger, middleware.Recoverer)

	root.Get("/", SurveysPage(app))
	root.Get("/thank-you", ThankYouPage(app))

	root.Route(`/surveys/{id:\d+}`, func(r chi.Router) {
		r.Use(middlewares.OptionalAuth(app.TokenSecret))

		r.Get("/", SurveyPage(app))
		r.Get(`/take/{index:-?\d+}`, TakeSurveyPage(app))
		r.With(limit).Post(`/take/{index:-?\d+}`, SubmitAnswer(app))
		r.Get("/finish", FinishPage(app))
		r.With(limit).Post("/finish", FinishSurvey(app))
	})

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get(`/surveys/{id:\d+}`, GetSurveyById(app))
		r.Put(`/surveys/{id:\d+}`, UpdateSurvey(app))
		r.Delete(`/surveys/{id:\d+}`, DeleteSurvey(app))

		r.Post(`/surveys/{id:\d+}/questions`, AddQuestion(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
