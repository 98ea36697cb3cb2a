package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/survey-app/app"
	"github.com/mbolis/survey-app/config"
	"github.com/mbolis/survey-app/database"
	"github.com/mbolis/survey-app/httpx"
	"github.com/mbolis/survey-app/log"
	"github.com/mbolis/survey-app/questions"
	"github.com/mbolis/survey-app/routes"
	"github.com/mbolis/survey-app/web"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.AdminUser != "" {
		err = database.EnsureUser(ctx, db, cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			log.Fatal("main.db.admin_user:", err)
		}
	}

	st := database.NewStore(db)

	registry, err := questions.Default(st)
	if err != nil {
		log.Fatal("main.questions:", err)
	}
	templates, err := web.Load()
	if err != nil {
		log.Fatal("main.templates:", err)
	}
	err = registry.Validate(templates.Has)
	if err != nil {
		log.Fatal("main.questions.templates:", err)
	}

	app := app.App{
		Store:        st,
		BearerServer: httpx.NewBearerServer(db, cfg.TokenSecret, cfg.TokenTTL),
		Config:       cfg,
		Questions:    registry,
		Templates:    templates,
	}

	handler := routes.Wire(ctx, app)

	err = runServer(ctx, cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
	log.Info("Server closed")
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
