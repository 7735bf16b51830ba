package repository

import (
	"context"
	"time"

	"github.com/garnizeh/trailblazers/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Getters return (nil, nil) when the row does not exist.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type TermRepo interface {
	ListTerms(ctx context.Context, taxonomy string) ([]models.Term, error)
	TermExists(ctx context.Context, taxonomy, slug string) (bool, error)
	ListAwardYears(ctx context.Context) ([]int, error)
}

type CandidateRepo interface {
	CreateCandidate(ctx context.Context, c *models.Candidate) (int64, error)
	GetCandidate(ctx context.Context, id int64) (*models.Candidate, error)
	GetCandidateBySlug(ctx context.Context, slug string) (*models.Candidate, error)
	ListCandidates(ctx context.Context, f models.CandidateFilter) ([]models.Candidate, error)
	CountCandidates(ctx context.Context, f models.CandidateFilter) (int64, error)
	ListCandidateIDs(ctx context.Context) ([]int64, error)
	UpdateCandidate(ctx context.Context, c *models.Candidate) error
	SetCandidatePhoto(ctx context.Context, id int64, key string) error
	SoftDeleteCandidate(ctx context.Context, id int64) error
	RestoreCandidate(ctx context.Context, id int64) error
	// HardDeleteCandidate removes the candidate with its assignments and evaluations.
	HardDeleteCandidate(ctx context.Context, id int64) error
}

type JuryRepo interface {
	CreateJuryMember(ctx context.Context, j *models.JuryMember) (int64, error)
	GetJuryMember(ctx context.Context, id int64) (*models.JuryMember, error)
	GetJuryMemberByUserID(ctx context.Context, userID int64) (*models.JuryMember, error)
	ListJuryMembers(ctx context.Context) ([]models.JuryMember, error)
	ListJuryMemberIDs(ctx context.Context) ([]int64, error)
	UpdateJuryMember(ctx context.Context, j *models.JuryMember) error
	LinkJuryUser(ctx context.Context, juryID int64, userID *int64) error
	DeleteJuryMember(ctx context.Context, id int64) error
}

type AssignmentRepo interface {
	// CreateAssignment inserts the pair; created is false when it already existed.
	CreateAssignment(ctx context.Context, a *models.Assignment) (id int64, created bool, err error)
	// CreateAssignments inserts all pairs in one transaction, optionally clearing
	// every existing assignment first. It returns only the rows actually inserted;
	// pairs that already existed are left out.
	CreateAssignments(ctx context.Context, pairs []models.Assignment, clearExisting bool) ([]models.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (*models.Assignment, error)
	AssignmentExists(ctx context.Context, juryID, candidateID int64) (bool, error)
	ListAssignments(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, error)
	CountAssignmentsByCandidate(ctx context.Context) (map[int64]int, error)
	DeleteAssignment(ctx context.Context, id int64) error
	DeleteAssignments(ctx context.Context, ids []int64) (int64, error)
	DeleteAssignmentsByJury(ctx context.Context, juryID int64) (int64, error)
	DeleteAllAssignments(ctx context.Context) (int64, error)
}

type EvaluationRepo interface {
	// UpsertEvaluation inserts or replaces the evaluation for its (jury, candidate) pair.
	UpsertEvaluation(ctx context.Context, e *models.Evaluation) (int64, error)
	GetEvaluation(ctx context.Context, id int64) (*models.Evaluation, error)
	GetEvaluationByPair(ctx context.Context, juryID, candidateID int64) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, f models.EvaluationFilter) ([]models.Evaluation, error)
	DeleteEvaluation(ctx context.Context, id int64) error
	Rankings(ctx context.Context, category string, limit int) ([]models.Ranking, error)
}

type VoteRepo interface {
	// CreateVote returns created=false when the (candidate, email) pair already voted.
	CreateVote(ctx context.Context, v *models.Vote) (id int64, created bool, err error)
	CountVotesByCandidate(ctx context.Context) ([]models.VoteCount, error)
	ListVotes(ctx context.Context, candidateID int64) ([]models.Vote, error)
}

type AuditRepo interface {
	CreateAuditLog(ctx context.Context, l *models.AuditLog) (int64, error)
	ListAuditLogs(ctx context.Context, objectType string, limit int) ([]models.AuditLog, error)
}

type ErrorLogRepo interface {
	CreateErrorLog(ctx context.Context, l *models.ErrorLog) (int64, error)
	CountErrorLogsSince(ctx context.Context, since time.Time) (int64, error)
	ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error)
}

type TransientRepo interface {
	SetTransient(ctx context.Context, name, value string, ttl time.Duration) error
	// GetTransient returns ok=false when missing or expired.
	GetTransient(ctx context.Context, name string) (value string, ok bool, err error)
	DeleteTransient(ctx context.Context, name string) error
}

// DiagnosticsRepo exposes the integrity queries used by health checks and fix commands.
type DiagnosticsRepo interface {
	TableExists(ctx context.Context, name string) (bool, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	FindOrphanedEvaluations(ctx context.Context) ([]models.OrphanedEvaluation, error)
	FindDuplicateEvaluations(ctx context.Context) ([]models.DuplicatePair, error)
	CountJuryWithoutUser(ctx context.Context) (int64, error)
	CountCandidatesWithoutAssignment(ctx context.Context) (int64, error)
	DeleteEvaluations(ctx context.Context, ids []int64) (int64, error)
	// DeleteDuplicateEvaluations keeps the most recently updated row of each pair.
	DeleteDuplicateEvaluations(ctx context.Context) (int64, error)
}
