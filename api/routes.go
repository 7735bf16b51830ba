package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/trailblazers/internal/accounts"
	"github.com/garnizeh/trailblazers/internal/assignment"
	"github.com/garnizeh/trailblazers/internal/candidates"
	"github.com/garnizeh/trailblazers/internal/config"
	"github.com/garnizeh/trailblazers/internal/diagnostics"
	"github.com/garnizeh/trailblazers/internal/evaluation"
	"github.com/garnizeh/trailblazers/internal/export"
	"github.com/garnizeh/trailblazers/internal/importer"
	"github.com/garnizeh/trailblazers/internal/mail"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/voting"
	"github.com/garnizeh/trailblazers/pkg/models"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	Repo        *sqlite.SQLiteRepo
	DB          Pinger
	Accounts    *accounts.Service
	Candidates  *candidates.Service
	Assignments *assignment.Service
	Evaluations *evaluation.Service
	Voting      *voting.Service
	Diagnostics *diagnostics.Service
	Importer    *importer.Service
	Exporter    *export.Exporter
	Mail        *mail.Service
}

func SetupRoutes(cfg *config.Config, version, buildTime string, s *Services) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Create handlers
	systemHandler := NewSystemHandler(s.DB)
	authHandler := NewAuthHandler(s.Accounts, s.Repo, s.Repo, cfg.JWTSecret, cfg.TokenDuration)
	candidatesHandler := NewCandidatesHandler(s.Candidates, s.Repo)
	juryHandler := NewJuryHandler(s.Accounts, s.Repo, s.Repo)
	assignmentsHandler := NewAssignmentsHandler(s.Assignments, cfg.Award.AssignmentMethod, cfg.Award.CandidatesPerJury)
	evaluationsHandler := NewEvaluationsHandler(s.Evaluations)
	votesHandler := NewVotesHandler(s.Voting)
	adminHandler := NewAdminHandler(s.Importer, s.Exporter, s.Mail, s.Diagnostics, s.Repo, cfg.Award.Year)

	auth := JWTAuthMiddleware(cfg.JWTSecret, s.Repo, s.Repo)
	admin := RequireCapability(models.CapManageAwards)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	r.HandleFunc("/v1/public/votes", votesHandler.Cast).Methods("POST")
	r.HandleFunc("/v1/public/candidates/{id:[0-9]+}/photo", candidatesHandler.Photo).Methods("GET")

	// Diagnostic endpoint keeps its historic path
	diag := r.PathPrefix("/mobility-trailblazers/v1").Subrouter()
	diag.Use(auth, admin)
	diag.HandleFunc("/diagnostic", adminHandler.Diagnostic).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(auth)

	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")
	apiV1.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	apiV1.HandleFunc("/candidates", candidatesHandler.List).Methods("GET")
	apiV1.HandleFunc("/candidates/{id:[0-9]+}", candidatesHandler.Get).Methods("GET")
	apiV1.HandleFunc("/taxonomies/{taxonomy}", candidatesHandler.Taxonomy).Methods("GET")

	jury := apiV1.NewRoute().Subrouter()
	jury.Use(RequireCapability(models.CapSubmitEvaluations))
	jury.HandleFunc("/jury/dashboard", evaluationsHandler.Dashboard).Methods("GET")
	jury.HandleFunc("/evaluations", evaluationsHandler.Save).Methods("POST")
	jury.HandleFunc("/evaluations/{candidate_id:[0-9]+}", evaluationsHandler.Get).Methods("GET")

	adm := apiV1.PathPrefix("/admin").Subrouter()
	adm.Use(admin)

	adm.HandleFunc("/candidates", candidatesHandler.Create).Methods("POST")
	adm.HandleFunc("/candidates/{id:[0-9]+}", candidatesHandler.Update).Methods("PUT")
	adm.HandleFunc("/candidates/{id:[0-9]+}", candidatesHandler.Delete).Methods("DELETE")
	adm.HandleFunc("/candidates/{id:[0-9]+}/restore", candidatesHandler.Restore).Methods("POST")
	adm.HandleFunc("/candidates/{id:[0-9]+}/photo", candidatesHandler.UploadPhoto).Methods("POST")
	adm.HandleFunc("/import", adminHandler.Import).Methods("POST")
	adm.HandleFunc("/export/{kind}", adminHandler.Export).Methods("GET")

	adm.HandleFunc("/jury", juryHandler.List).Methods("GET")
	adm.HandleFunc("/jury", juryHandler.Create).Methods("POST")
	adm.HandleFunc("/jury/{id:[0-9]+}", juryHandler.Get).Methods("GET")
	adm.HandleFunc("/jury/{id:[0-9]+}", juryHandler.Update).Methods("PUT")
	adm.HandleFunc("/jury/{id:[0-9]+}", juryHandler.Delete).Methods("DELETE")
	adm.HandleFunc("/jury/{id:[0-9]+}/user", juryHandler.LinkUser).Methods("PUT")
	adm.HandleFunc("/users", juryHandler.ListUsers).Methods("GET")
	adm.HandleFunc("/users", juryHandler.CreateUser).Methods("POST")

	adm.HandleFunc("/assignments", assignmentsHandler.List).Methods("GET")
	adm.HandleFunc("/assignments", assignmentsHandler.Manual).Methods("POST")
	adm.HandleFunc("/assignments/auto", assignmentsHandler.Auto).Methods("POST")
	adm.HandleFunc("/assignments/bulk-delete", assignmentsHandler.BulkDelete).Methods("POST")
	adm.HandleFunc("/assignments/distribution", assignmentsHandler.Distribution).Methods("GET")
	adm.HandleFunc("/assignments/{id:[0-9]+}", assignmentsHandler.Delete).Methods("DELETE")

	adm.HandleFunc("/evaluations", evaluationsHandler.List).Methods("GET")
	adm.HandleFunc("/evaluations/{id:[0-9]+}", evaluationsHandler.Delete).Methods("DELETE")

	adm.HandleFunc("/votes", votesHandler.Tally).Methods("GET")
	adm.HandleFunc("/rankings", votesHandler.Rankings).Methods("GET")
	adm.HandleFunc("/reminders", adminHandler.Reminders).Methods("POST")
	adm.HandleFunc("/notices", adminHandler.Notices).Methods("GET")
	adm.HandleFunc("/audit-log", adminHandler.AuditLog).Methods("GET")

	return r
}
