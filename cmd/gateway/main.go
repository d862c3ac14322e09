package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/classlight/classlight-lms/internal/api/http"
	"github.com/classlight/classlight-lms/internal/assessment"
	"github.com/classlight/classlight-lms/internal/auth"
	"github.com/classlight/classlight-lms/internal/config"
	"github.com/classlight/classlight-lms/internal/db"
	"github.com/classlight/classlight-lms/internal/rbac"
	"github.com/classlight/classlight-lms/internal/recorder"
	"github.com/classlight/classlight-lms/internal/session"
	"github.com/classlight/classlight-lms/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := bootstrapAdmin(ctx, dbh, cfg); err != nil {
		log.Fatalf("admin bootstrap: %v", err)
	}

	// --- Services ---
	store := assessment.NewSQLStore(dbh)
	svc := assessment.NewService(store)
	rec := recorder.NewSQLRecorder(dbh)
	registry := session.NewRegistry(time.Duration(cfg.SessionTTLMinutes) * time.Minute)
	authSvc := auth.NewService(cfg.AuthSecret)
	checker := rbac.NewChecker(nil)

	bs, err := storage.NewFSStore(cfg.MediaBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

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

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// assets (protected; upload is teacher-only)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(authSvc))
		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs, rbac.Require("asset:upload"))
		})
	})

	// Protected API (JWT -> subject+role in context -> RBAC per route)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(authSvc))

		// Authoring (teacher/admin)
		pr.With(rbac.Require("exercise:create")).
			Post("/exercises", api.PutExerciseHandler(store))
		pr.With(rbac.Require("exercise:update")).
			Put("/exercises/{exerciseID}", api.PutExerciseHandler(store))
		pr.With(rbac.Require("assessment:create")).
			Post("/assessments", api.PutAssessmentHandler(store))
		pr.With(rbac.Require("assessment:update")).
			Put("/assessments/{assessmentID}", api.PutAssessmentHandler(store))

		// Catalog
		pr.With(rbac.Require("exercise:view")).
			Get("/exercises/{exerciseID}", api.GetExerciseHandler(store, checker))
		pr.With(rbac.Require("exercise:view")).
			Get("/exercise-types", api.ListExerciseTypesHandler())
		pr.With(rbac.Require("assessment:view")).
			Get("/assessments/{assessmentID}", api.GetAssessmentHandler(store))

		// Assessment attempts (student flow)
		pr.With(rbac.Require("attempt:start")).
			Post("/assessments/{assessmentID}/attempts", api.StartAttemptHandler(svc))
		pr.With(rbac.Require("attempt:answer")).
			Post("/attempts/{attemptID}/answers", api.RecordAnswerHandler(svc))
		pr.With(rbac.Require("attempt:complete")).
			Post("/attempts/{attemptID}/complete", api.CompleteAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(svc, checker))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(svc, checker))
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grades", api.ManualGradeHandler(svc))

		// Single-exercise live sessions
		practice := api.PracticeDeps{
			Store:             store,
			Registry:          registry,
			Recorder:          rec,
			RetryAfterCorrect: cfg.PracticeRetryAfterCorrect,
		}
		pr.With(rbac.Require("practice:play")).
			Post("/practice/sessions", api.OpenSessionHandler(practice))
		pr.With(rbac.Require("practice:play")).
			Post("/practice/sessions/{sessionID}/submit", api.SubmitSessionHandler(practice))
		pr.With(rbac.Require("practice:play")).
			Post("/practice/sessions/{sessionID}/retry", api.RetrySessionHandler(practice))
		pr.With(rbac.Require("practice:play")).
			Post("/practice/sessions/{sessionID}/finalize", api.FinalizeSessionHandler(practice))
		pr.With(rbac.Require("practice:play")).
			Get("/practice/sessions/{sessionID}/render", api.RenderSessionHandler(practice))
		pr.With(rbac.RequireAny("submission:view-own", "attempt:view-all")).
			Get("/submissions", api.ListSubmissionsHandler(rec, checker))

		// Users (teacher/admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("gateway listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}

// bootstrapAdmin seeds the admin account on first boot so a fresh
// offline install has a way in. ADMIN_PASS_HASH must be a bcrypt hash;
// nothing is seeded without it.
func bootstrapAdmin(ctx context.Context, dbh *sql.DB, cfg config.Config) error {
	if cfg.AdminPassHash == "" {
		return nil
	}
	_, err := dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at)
		 VALUES ($1,$2,$3,'admin',$4)
		 ON CONFLICT (id) DO NOTHING`,
		"admin", cfg.AdminUser, cfg.AdminPassHash, time.Now().Unix())
	return err
}
