package app

import (
	"github.com/go-chi/oauth"

	"github.com/mbolis/survey-app/config"
	"github.com/mbolis/survey-app/questions"
	"github.com/mbolis/survey-app/store"
	"github.com/mbolis/survey-app/web"
)

// App carries the dependencies shared by every route.
type App struct {
	store.Store
	*oauth.BearerServer
	config.Config
	Questions *questions.Registry
	Templates *web.Templates
}
