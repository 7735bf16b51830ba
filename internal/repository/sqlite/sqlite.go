package sqlite

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/garnizeh/trailblazers/internal/db"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.TermRepo = (*SQLiteRepo)(nil)
var _ repository.CandidateRepo = (*SQLiteRepo)(nil)
var _ repository.JuryRepo = (*SQLiteRepo)(nil)
var _ repository.AssignmentRepo = (*SQLiteRepo)(nil)
var _ repository.EvaluationRepo = (*SQLiteRepo)(nil)
var _ repository.VoteRepo = (*SQLiteRepo)(nil)
var _ repository.AuditRepo = (*SQLiteRepo)(nil)
var _ repository.ErrorLogRepo = (*SQLiteRepo)(nil)
var _ repository.TransientRepo = (*SQLiteRepo)(nil)
var _ repository.DiagnosticsRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
