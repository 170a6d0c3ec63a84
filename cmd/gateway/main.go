package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/paceboard/paceboard/internal/api/http"
	auth "github.com/paceboard/paceboard/internal/auth/middleware"
	"github.com/paceboard/paceboard/internal/config"
	"github.com/paceboard/paceboard/internal/db"
	"github.com/paceboard/paceboard/internal/lesson"
	"github.com/paceboard/paceboard/internal/rbac"
	"github.com/paceboard/paceboard/internal/realtime"
	syncx "github.com/paceboard/paceboard/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	var zl *zap.Logger
	var err error
	if cfg.Mode == config.ModeOnline {
		zl, err = zap.NewProduction()
	} else {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()
	log := zl.Sugar()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalw("db open failed", "error", err)
	}
	store := lesson.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh)

	// --- Realtime fan-out (best-effort; in-process bus without redis) ---
	var notifier realtime.Notifier
	if cfg.RedisAddr != "" {
		notifier, err = realtime.NewRedisNotifier(cfg.RedisAddr, cfg.RedisPrefix, log)
		if err != nil {
			log.Fatalw("redis connect failed", "addr", cfg.RedisAddr, "error", err)
		}
	} else {
		notifier = realtime.NewBus()
	}
	defer func() { _ = notifier.Close() }()

	svc := lesson.NewService(store, notifier, events, log)

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TeacherUser, cfg.TeacherPassHash)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// Protected API (JWT -> identity in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Lessons and schemas (teacher)
		pr.With(rbac.Require("lesson:create")).
			Post("/lessons", api.CreateLessonHandler(svc))
		pr.With(rbac.Require("lesson:view")).
			Get("/lessons/{lessonID}", api.GetLessonHandler(svc))
		pr.With(rbac.Require("schema:edit")).
			Put("/lessons/{lessonID}/slides/{slideID}/schema", api.PutSchemaHandler(svc))

		// Sessions
		pr.With(rbac.Require("session:create")).
			Post("/sessions", api.CreateSessionHandler(svc))
		pr.With(rbac.Require("session:view")).
			Get("/sessions/{sessionID}", api.GetSessionHandler(svc))
		pr.With(rbac.Require("session:view")).
			Get("/sessions/{sessionID}/pacing", api.GetPacingHandler(svc))

		// Pacing, reveal, freeze, timer (teacher)
		pr.With(rbac.Require("pacing:edit")).
			Patch("/sessions/{sessionID}/pacing", api.UpdatePacingHandler(svc))
		pr.With(rbac.Require("blocks:reveal")).
			Post("/sessions/{sessionID}/slides/{slideID}/reveal", api.RevealBlocksHandler(svc))
		pr.With(rbac.Require("session:freeze")).
			Post("/sessions/{sessionID}/freeze", api.FreezeHandler(svc))
		pr.With(rbac.Require("session:pacing-mode")).
			Post("/sessions/{sessionID}/pacing-mode", api.PacingModeHandler(svc))
		pr.With(rbac.Require("session:timer")).
			Post("/sessions/{sessionID}/timer", api.TimerHandler(svc))

		// Student flow
		pr.With(rbac.Require("blocks:view")).
			Get("/sessions/{sessionID}/slides/{slideID}/blocks", api.VisibleBlocksHandler(svc))
		pr.With(rbac.Require("working:save")).
			Put("/sessions/{sessionID}/slides/{slideID}/working", api.SaveWorkingStateHandler(svc))
		pr.With(rbac.Require("response:submit")).
			Post("/sessions/{sessionID}/slides/{slideID}/submit", api.SubmitResponseHandler(svc))
		pr.With(rbac.Require("session:navigate")).
			Post("/sessions/{sessionID}/navigate", api.NavigateHandler(svc))

		// Teacher dashboard / heatmap / assessment feed
		pr.With(rbac.Require("board:view")).
			Get("/sessions/{sessionID}/board", api.BoardHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Infow("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
	log.Fatalw("server exited", "error", http.ListenAndServe(cfg.HTTPAddr, r))
}
