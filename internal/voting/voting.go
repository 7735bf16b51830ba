// Package voting records public votes and computes tallies and rankings.
package voting

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

type Store interface {
	repository.CandidateRepo
	repository.VoteRepo
	repository.EvaluationRepo
}

type Service struct {
	store   Store
	bus     *events.Bus
	logger  *slog.Logger
	enabled func() bool
}

// NewService builds the voting service. enabled is consulted on every vote so
// the public voting switch can change at runtime.
func NewService(store Store, bus *events.Bus, logger *slog.Logger, enabled func() bool) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if enabled == nil {
		enabled = func() bool { return false }
	}
	return &Service{store: store, bus: bus, logger: logger, enabled: enabled}
}

// NormalizeEmail trims and lowercases addr and checks its syntax.
func NormalizeEmail(addr string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(addr))
	if e == "" {
		return "", apperr.Invalid("email is required")
	}
	parsed, err := mail.ParseAddress(e)
	if err != nil || parsed.Address != e || !strings.Contains(e[strings.LastIndex(e, "@")+1:], ".") {
		return "", apperr.Invalid("email address is not valid")
	}
	return e, nil
}

type VoteRequest struct {
	CandidateID int64  `json:"candidate_id"`
	Email       string `json:"email"`
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}

// CastPublicVote records one vote per (candidate, normalized email).
func (s *Service) CastPublicVote(ctx context.Context, req VoteRequest) (*models.Vote, error) {
	if !s.enabled() {
		return nil, fmt.Errorf("public voting: %w", apperr.ErrDisabled)
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	c, err := s.store.GetCandidate(ctx, req.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if c == nil || c.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}

	v := &models.Vote{
		CandidateID: c.ID,
		VoterEmail:  email,
		IPAddress:   req.IPAddress,
		UserAgent:   truncate(req.UserAgent, 255),
	}
	id, created, err := s.store.CreateVote(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("create vote: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("already voted for candidate %d: %w", c.ID, apperr.ErrConflict)
	}
	v.ID = id

	s.bus.Publish(ctx, events.Event{Name: events.VoteCast, Payload: events.VotePayload{VoteID: id, CandidateID: c.ID}})
	s.logger.Info("public vote cast", "candidate_id", c.ID, "vote_id", id)
	return v, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Tally returns public vote counts per candidate, highest first.
func (s *Service) Tally(ctx context.Context) ([]models.VoteCount, error) {
	out, err := s.store.CountVotesByCandidate(ctx)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	return out, nil
}

// Rankings orders candidates by mean completed-evaluation score.
func (s *Service) Rankings(ctx context.Context, category string, limit int) ([]models.Ranking, error) {
	out, err := s.store.Rankings(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("rankings: %w", err)
	}
	return out, nil
}
