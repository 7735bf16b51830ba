// Package app wires configuration, storage and services for the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/trailblazers/api"
	rootdb "github.com/garnizeh/trailblazers/db"
	"github.com/garnizeh/trailblazers/internal/accounts"
	"github.com/garnizeh/trailblazers/internal/assignment"
	"github.com/garnizeh/trailblazers/internal/candidates"
	"github.com/garnizeh/trailblazers/internal/config"
	"github.com/garnizeh/trailblazers/internal/db"
	"github.com/garnizeh/trailblazers/internal/diagnostics"
	"github.com/garnizeh/trailblazers/internal/evaluation"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/export"
	"github.com/garnizeh/trailblazers/internal/importer"
	"github.com/garnizeh/trailblazers/internal/jobs"
	"github.com/garnizeh/trailblazers/internal/logging"
	"github.com/garnizeh/trailblazers/internal/mail"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/storage"
	"github.com/garnizeh/trailblazers/internal/voting"
)

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *db.DB
	Repo     *sqlite.SQLiteRepo
	Bus      *events.Bus
	Jobs     *jobs.Repository
	Pool     *jobs.WorkerPool
	Photos   storage.PhotoStore
	Services *api.Services
}

// New opens the database, applies migrations when configured and builds every
// service. The returned logger also persists error records to error_logs.
func New(ctx context.Context, cfg *config.Config, base *slog.Logger) (*App, error) {
	d, err := db.New(ctx, cfg.DatabasePath, base)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, d, rootdb.Migrations, rootdb.SeedFiles); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	repo := sqlite.New(d, base)
	logger := logging.WithErrorLog(base, repo)

	photos, err := newPhotoStore(ctx, cfg.Photos, logger)
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	bus := events.NewBus(logger)
	jobRepo := jobs.NewRepository(d)
	pool := jobs.NewWorkerPool(jobRepo, nil, logger, cfg.Jobs.Workers)
	pool.SetPollInterval(cfg.Jobs.PollInterval)

	mailSvc := mail.NewService(repo, pool, mail.Options{AdminAddress: cfg.Mail.AdminAddress, AwardYear: cfg.Award.Year}, logger)
	mailSvc.Register(bus)

	var mailer mail.Mailer = mail.NewLogMailer(logger)
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host: cfg.Mail.Host, Port: cfg.Mail.Port,
			Username: cfg.Mail.Username, Password: cfg.Mail.Password,
			From: cfg.Mail.From,
		})
	}
	pool.Register(jobs.TypeEmailSend, mail.SendHandler(mailer))

	diag := diagnostics.NewService(repo, d, cfg.Warnings, cfg.Diagnostics.CacheTTL, logger)
	if cfg.Diagnostics.Enabled {
		pool.Register(jobs.TypeDiagnosticsRun, diag.JobHandler(pool, cfg.Diagnostics.Interval))
	}

	auditEvents(bus, repo, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     d,
		Repo:   repo,
		Bus:    bus,
		Jobs:   jobRepo,
		Pool:   pool,
		Photos: photos,
		Services: &api.Services{
			Repo:        repo,
			DB:          d,
			Accounts:    accounts.NewService(repo, logger),
			Candidates:  candidates.NewService(repo, photos, bus, logger),
			Assignments: assignment.NewService(repo, bus, logger),
			Evaluations: evaluation.NewService(repo, bus, logger),
			Voting:      voting.NewService(repo, bus, logger, func() bool { return cfg.Award.PublicVoting }),
			Diagnostics: diag,
			Importer:    importer.NewService(repo, bus, logger),
			Exporter:    export.New(repo),
			Mail:        mailSvc,
		},
	}, nil
}

// StartJobs requeues jobs interrupted by a previous run, makes sure a
// diagnostics run is queued and starts the worker pool.
func (a *App) StartJobs(ctx context.Context) {
	if n, err := a.Jobs.ResetRunning(ctx); err != nil {
		a.Logger.Error("requeue interrupted jobs", "err", err)
	} else if n > 0 {
		a.Logger.Warn("requeued interrupted jobs", "count", n)
	}
	if a.Config.Diagnostics.Enabled {
		if err := diagnostics.EnsureScheduled(ctx, a.Jobs, a.Pool); err != nil {
			a.Logger.Error("schedule diagnostics", "err", err)
		}
	}
	a.Pool.Start(ctx)
}

func (a *App) Close() error {
	a.Pool.Stop()
	return a.DB.Close()
}

func newPhotoStore(ctx context.Context, cfg config.PhotosConfig, logger *slog.Logger) (storage.PhotoStore, error) {
	if cfg.Backend == config.PhotosMinio {
		s, err := storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKeyID,
			SecretAccessKey: cfg.Minio.SecretAccessKey,
			Bucket:          cfg.Minio.Bucket,
			UseSSL:          cfg.Minio.UseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("photo store: %w", err)
		}
		return s, nil
	}
	s, err := storage.NewLocalStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("photo store: %w", err)
	}
	return s, nil
}
