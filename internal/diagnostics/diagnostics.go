// Package diagnostics runs the advisory health checklist over the runtime,
// the database and the award data.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

// Check states, ordered by severity.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

const cacheKey = "mt_diagnostic_report"

// RequiredTables must exist for the service to work.
var RequiredTables = []string{
	"users", "taxonomy_terms", "candidates", "jury_members", "jury_assignments",
	"evaluations", "votes", "audit_logs", "error_logs", "transients", "jobs", "dead_letter_jobs",
}

// RequiredIndexes are expected for acceptable list performance.
var RequiredIndexes = []string{
	"idx_candidates_category", "idx_candidates_deleted_at", "idx_assignments_candidate",
	"idx_evaluations_candidate", "idx_evaluations_status", "idx_votes_candidate",
	"idx_jobs_status_schedule",
}

type Store interface {
	repository.DiagnosticsRepo
	repository.ErrorLogRepo
	repository.TransientRepo
}

// Versioner reports the database engine version.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Duration    string         `json:"duration"`
	Status      string         `json:"status"`
	Summary     map[string]int `json:"summary"`
	Checks      []Check        `json:"checks"`
}

// Issues returns the checks that are not ok.
func (r *Report) Issues() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status != StatusOK {
			out = append(out, c)
		}
	}
	return out
}

type Service struct {
	store    Store
	db       Versioner
	warnings func() []string
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewService builds the diagnostics service. warnings returns configuration
// warnings and may be nil.
func NewService(store Store, db Versioner, warnings func() []string, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if warnings == nil {
		warnings = func() []string { return nil }
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{store: store, db: db, warnings: warnings, logger: logger, ttl: ttl, now: time.Now}
}

type checkFunc func(ctx context.Context) Check

func (s *Service) checks() []checkFunc {
	return []checkFunc{
		s.checkRuntime,
		s.checkDatabase,
		s.checkTables,
		s.checkIndexes,
		s.checkOrphans,
		s.checkDuplicates,
		s.checkJuryUsers,
		s.checkUnassigned,
		s.checkErrorLog,
		s.checkConfig,
	}
}

// Run executes every check concurrently and caches the report. A failing
// check becomes an error entry; Run itself only fails when ctx is done.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := s.now()
	fns := s.checks()
	results := make([]Check, len(fns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, fn := range fns {
		g.Go(func() error {
			results[i] = fn(gctx)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt: start.UTC(),
		Duration:    time.Since(start).Round(time.Millisecond).String(),
		Status:      StatusOK,
		Summary:     map[string]int{StatusOK: 0, StatusWarning: 0, StatusError: 0},
		Checks:      results,
	}
	for _, c := range results {
		r.Summary[c.Status]++
		if severity(c.Status) > severity(r.Status) {
			r.Status = c.Status
		}
	}

	if b, err := json.Marshal(r); err == nil {
		if err := s.store.SetTransient(ctx, cacheKey, string(b), s.ttl); err != nil {
			s.logger.Warn("cache diagnostic report", "err", err)
		}
	}
	s.logger.Info("diagnostics complete", "status", r.Status, "warnings", r.Summary[StatusWarning], "errors", r.Summary[StatusError])
	return r, nil
}

func severity(status string) int {
	switch status {
	case StatusWarning:
		return 1
	case StatusError:
		return 2
	}
	return 0
}

// Report returns the cached report, running the checks when the cache is
// empty, expired or refresh is set.
func (s *Service) Report(ctx context.Context, refresh bool) (*Report, error) {
	if !refresh {
		v, ok, err := s.store.GetTransient(ctx, cacheKey)
		if err != nil {
			s.logger.Warn("read cached diagnostic report", "err", err)
		}
		if ok {
			var r Report
			if err := json.Unmarshal([]byte(v), &r); err == nil {
				return &r, nil
			}
		}
	}
	return s.Run(ctx)
}

// Notices returns the non-ok checks of the current report, for the admin banner.
func (s *Service) Notices(ctx context.Context) ([]Check, error) {
	r, err := s.Report(ctx, false)
	if err != nil {
		return nil, err
	}
	return r.Issues(), nil
}

func failed(name string, err error) Check {
	return Check{Name: name, Status: StatusError, Message: fmt.Sprintf("check failed: %v", err)}
}

func (s *Service) checkRuntime(ctx context.Context) Check {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Check{
		Name:    "runtime",
		Status:  StatusOK,
		Message: runtime.Version(),
		Details: map[string]any{
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
			"goroutines": runtime.NumGoroutine(),
			"heap_bytes": m.HeapAlloc,
		},
	}
}

func (s *Service) checkDatabase(ctx context.Context) Check {
	if s.db == nil {
		return Check{Name: "database", Status: StatusWarning, Message: "database version unavailable"}
	}
	v, err := s.db.Version(ctx)
	if err != nil {
		return failed("database", err)
	}
	return Check{Name: "database", Status: StatusOK, Message: "SQLite " + v}
}

func (s *Service) checkTables(ctx context.Context) Check {
	var missing []string
	for _, t := range RequiredTables {
		ok, err := s.store.TableExists(ctx, t)
		if err != nil {
			return failed("tables", err)
		}
		if !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return Check{Name: "tables", Status: StatusError, Message: fmt.Sprintf("%d required tables missing", len(missing)), Details: missing}
	}
	return Check{Name: "tables", Status: StatusOK, Message: fmt.Sprintf("%d tables present", len(RequiredTables))}
}

func (s *Service) checkIndexes(ctx context.Context) Check {
	var missing []string
	for _, ix := range RequiredIndexes {
		ok, err := s.store.IndexExists(ctx, ix)
		if err != nil {
			return failed("indexes", err)
		}
		if !ok {
			missing = append(missing, ix)
		}
	}
	if len(missing) > 0 {
		return Check{Name: "indexes", Status: StatusWarning, Message: fmt.Sprintf("%d indexes missing", len(missing)), Details: missing}
	}
	return Check{Name: "indexes", Status: StatusOK, Message: fmt.Sprintf("%d indexes present", len(RequiredIndexes))}
}

func (s *Service) checkOrphans(ctx context.Context) Check {
	orphans, err := s.store.FindOrphanedEvaluations(ctx)
	if err != nil {
		return failed("orphaned_evaluations", err)
	}
	if len(orphans) > 0 {
		return Check{Name: "orphaned_evaluations", Status: StatusWarning, Message: fmt.Sprintf("%d orphaned evaluations; run mtctl fix orphans", len(orphans)), Details: orphans}
	}
	return Check{Name: "orphaned_evaluations", Status: StatusOK, Message: "no orphaned evaluations"}
}

func (s *Service) checkDuplicates(ctx context.Context) Check {
	dups, err := s.store.FindDuplicateEvaluations(ctx)
	if err != nil {
		return failed("duplicate_evaluations", err)
	}
	if len(dups) > 0 {
		return Check{Name: "duplicate_evaluations", Status: StatusError, Message: fmt.Sprintf("%d jury/candidate pairs evaluated more than once; run mtctl fix duplicates", len(dups)), Details: dups}
	}
	return Check{Name: "duplicate_evaluations", Status: StatusOK, Message: "no duplicate evaluations"}
}

func (s *Service) checkJuryUsers(ctx context.Context) Check {
	n, err := s.store.CountJuryWithoutUser(ctx)
	if err != nil {
		return failed("jury_accounts", err)
	}
	if n > 0 {
		return Check{Name: "jury_accounts", Status: StatusWarning, Message: fmt.Sprintf("%d jury members without a linked user account", n)}
	}
	return Check{Name: "jury_accounts", Status: StatusOK, Message: "all jury members linked"}
}

func (s *Service) checkUnassigned(ctx context.Context) Check {
	n, err := s.store.CountCandidatesWithoutAssignment(ctx)
	if err != nil {
		return failed("candidate_coverage", err)
	}
	if n > 0 {
		return Check{Name: "candidate_coverage", Status: StatusWarning, Message: fmt.Sprintf("%d candidates without a jury assignment", n)}
	}
	return Check{Name: "candidate_coverage", Status: StatusOK, Message: "all candidates assigned"}
}

func (s *Service) checkErrorLog(ctx context.Context) Check {
	n, err := s.store.CountErrorLogsSince(ctx, s.now().Add(-24*time.Hour))
	if err != nil {
		return failed("error_log", err)
	}
	if n > 0 {
		return Check{Name: "error_log", Status: StatusWarning, Message: fmt.Sprintf("%d errors logged in the last 24 hours", n)}
	}
	return Check{Name: "error_log", Status: StatusOK, Message: "no recent errors"}
}

func (s *Service) checkConfig(ctx context.Context) Check {
	w := s.warnings()
	if len(w) > 0 {
		return Check{Name: "configuration", Status: StatusWarning, Message: fmt.Sprintf("%d configuration warnings", len(w)), Details: w}
	}
	return Check{Name: "configuration", Status: StatusOK, Message: "configuration looks good"}
}

// FixResult reports what a fix command found and removed.
type FixResult struct {
	Found   int   `json:"found"`
	Removed int64 `json:"removed"`
	DryRun  bool  `json:"dry_run"`
}

var fixMu sync.Mutex

// FixOrphans deletes orphaned evaluations unless dryRun is set.
func (s *Service) FixOrphans(ctx context.Context, dryRun bool) (*FixResult, []models.OrphanedEvaluation, error) {
	fixMu.Lock()
	defer fixMu.Unlock()

	orphans, err := s.store.FindOrphanedEvaluations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("find orphans: %w", err)
	}
	res := &FixResult{Found: len(orphans), DryRun: dryRun}
	if dryRun || len(orphans) == 0 {
		return res, orphans, nil
	}

	ids := make([]int64, len(orphans))
	for i, o := range orphans {
		ids[i] = o.EvaluationID
	}
	if res.Removed, err = s.store.DeleteEvaluations(ctx, ids); err != nil {
		return nil, nil, fmt.Errorf("delete orphans: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info("orphaned evaluations removed", "count", res.Removed)
	return res, orphans, nil
}

// FixDuplicates keeps the newest evaluation of each duplicated pair unless dryRun is set.
func (s *Service) FixDuplicates(ctx context.Context, dryRun bool) (*FixResult, []models.DuplicatePair, error) {
	fixMu.Lock()
	defer fixMu.Unlock()

	dups, err := s.store.FindDuplicateEvaluations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("find duplicates: %w", err)
	}
	res := &FixResult{Found: len(dups), DryRun: dryRun}
	if dryRun || len(dups) == 0 {
		return res, dups, nil
	}

	if res.Removed, err = s.store.DeleteDuplicateEvaluations(ctx); err != nil {
		return nil, nil, fmt.Errorf("delete duplicates: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info("duplicate evaluations removed", "count", res.Removed)
	return res, dups, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.store.DeleteTransient(ctx, cacheKey); err != nil {
		s.logger.Warn("invalidate diagnostic cache", "err", err)
	}
}
