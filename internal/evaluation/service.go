package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

const maxCommentLength = 5000

type Store interface {
	repository.JuryRepo
	repository.CandidateRepo
	repository.AssignmentRepo
	repository.EvaluationRepo
	repository.AuditRepo
}

type Service struct {
	store  Store
	bus    *events.Bus
	logger *slog.Logger
}

func NewService(store Store, bus *events.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, bus: bus, logger: logger}
}

// SaveRequest is a draft save or a final submission.
type SaveRequest struct {
	CandidateID int64         `json:"candidate_id"`
	Scores      models.Scores `json:"scores"`
	Comments    string        `json:"comments"`
	Submit      bool          `json:"submit"`
	// JuryMemberID selects the jury member an administrator acts for.
	// Jury members always act for themselves.
	JuryMemberID int64 `json:"jury_member_id,omitempty"`
}

// resolveJury returns the jury member the caller acts as.
func (s *Service) resolveJury(ctx context.Context, user *models.User, requested int64) (*models.JuryMember, error) {
	if user == nil {
		return nil, apperr.ErrForbidden
	}
	if user.Role == models.RoleAdministrator && requested > 0 {
		j, err := s.store.GetJuryMember(ctx, requested)
		if err != nil {
			return nil, fmt.Errorf("get jury member: %w", err)
		}
		if j == nil {
			return nil, apperr.ErrNotFound
		}
		return j, nil
	}
	if !user.Can(models.CapSubmitEvaluations) {
		return nil, apperr.ErrForbidden
	}

	j, err := s.store.GetJuryMemberByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get jury member by user: %w", err)
	}
	if j == nil {
		return nil, fmt.Errorf("no jury member linked to user %d: %w", user.ID, apperr.ErrForbidden)
	}
	if requested > 0 && requested != j.ID {
		return nil, apperr.ErrForbidden
	}
	return j, nil
}

// Save validates and stores the caller's evaluation of a candidate. The pair
// must be assigned. A completed evaluation may be edited and resubmitted but
// not turned back into a draft.
func (s *Service) Save(ctx context.Context, user *models.User, req SaveRequest) (*models.Evaluation, error) {
	j, err := s.resolveJury(ctx, user, req.JuryMemberID)
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

	ok, err := s.store.AssignmentExists(ctx, j.ID, c.ID)
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("candidate %d is not assigned to jury member %d: %w", c.ID, j.ID, apperr.ErrForbidden)
	}

	if err := ValidateScores(req.Scores, req.Submit); err != nil {
		return nil, err
	}
	comments := strings.TrimSpace(req.Comments)
	if len([]rune(comments)) > maxCommentLength {
		return nil, apperr.Invalid(fmt.Sprintf("comments must not exceed %d characters", maxCommentLength))
	}

	prev, err := s.store.GetEvaluationByPair(ctx, j.ID, c.ID)
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	if prev != nil && prev.Status == models.EvaluationCompleted && !req.Submit {
		return nil, fmt.Errorf("evaluation already submitted: %w", apperr.ErrConflict)
	}

	status := models.EvaluationDraft
	if req.Submit {
		status = models.EvaluationCompleted
	}
	e := &models.Evaluation{
		JuryMemberID: j.ID,
		CandidateID:  c.ID,
		Scores:       req.Scores,
		TotalScore:   Total(req.Scores),
		Comments:     comments,
		Status:       status,
	}
	id, err := s.store.UpsertEvaluation(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	saved, err := s.store.GetEvaluation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload evaluation: %w", err)
	}

	if req.Submit {
		if _, err := s.store.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     user.ID,
			Action:     "submit_evaluation",
			ObjectType: "evaluation",
			ObjectID:   id,
			Details:    fmt.Sprintf(`{"candidate_id":%d,"jury_member_id":%d,"total_score":%g}`, c.ID, j.ID, saved.TotalScore),
		}); err != nil {
			s.logger.Warn("write audit log", "evaluation_id", id, "err", err)
		}
		s.bus.Publish(ctx, events.Event{
			Name:   events.EvaluationSubmitted,
			UserID: user.ID,
			Payload: events.EvaluationPayload{
				EvaluationID: id,
				JuryMemberID: j.ID,
				CandidateID:  c.ID,
				TotalScore:   saved.TotalScore,
			},
		})
	}
	return saved, nil
}

// Get returns the caller's evaluation of a candidate, or nil when there is none.
func (s *Service) Get(ctx context.Context, user *models.User, juryID, candidateID int64) (*models.Evaluation, error) {
	j, err := s.resolveJury(ctx, user, juryID)
	if err != nil {
		return nil, err
	}
	e, err := s.store.GetEvaluationByPair(ctx, j.ID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, f models.EvaluationFilter) ([]models.Evaluation, error) {
	out, err := s.store.ListEvaluations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	e, err := s.store.GetEvaluation(ctx, id)
	if err != nil {
		return fmt.Errorf("get evaluation: %w", err)
	}
	if e == nil {
		return apperr.ErrNotFound
	}
	if err := s.store.DeleteEvaluation(ctx, id); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	if _, err := s.store.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     "delete_evaluation",
		ObjectType: "evaluation",
		ObjectID:   id,
	}); err != nil {
		s.logger.Warn("write audit log", "evaluation_id", id, "err", err)
	}
	return nil
}

// DashboardItem is one assigned candidate with the caller's evaluation state.
type DashboardItem struct {
	Candidate  models.Candidate   `json:"candidate"`
	Evaluation *models.Evaluation `json:"evaluation,omitempty"`
	Status     string             `json:"status"`
}

type Dashboard struct {
	JuryMember models.JuryMember `json:"jury_member"`
	Items      []DashboardItem   `json:"candidates"`
	Total      int               `json:"total"`
	Completed  int               `json:"completed"`
	Drafts     int               `json:"drafts"`
	Pending    int               `json:"pending"`
	Progress   float64           `json:"progress"`
}

const statusPending = "pending"

// JuryDashboard lists the candidates assigned to the caller with progress.
func (s *Service) JuryDashboard(ctx context.Context, user *models.User, juryID int64) (*Dashboard, error) {
	j, err := s.resolveJury(ctx, user, juryID)
	if err != nil {
		return nil, err
	}

	as, err := s.store.ListAssignments(ctx, models.AssignmentFilter{JuryMemberID: j.ID})
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	evals, err := s.store.ListEvaluations(ctx, models.EvaluationFilter{JuryMemberID: j.ID})
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	byCandidate := make(map[int64]*models.Evaluation, len(evals))
	for i := range evals {
		byCandidate[evals[i].CandidateID] = &evals[i]
	}

	d := &Dashboard{JuryMember: *j, Items: make([]DashboardItem, 0, len(as))}
	for _, a := range as {
		c, err := s.store.GetCandidate(ctx, a.CandidateID)
		if err != nil {
			return nil, fmt.Errorf("get candidate %d: %w", a.CandidateID, err)
		}
		if c == nil || c.DeletedAt != nil {
			continue
		}
		item := DashboardItem{Candidate: *c, Status: statusPending}
		if e := byCandidate[c.ID]; e != nil {
			item.Evaluation = e
			item.Status = e.Status
		}
		switch item.Status {
		case models.EvaluationCompleted:
			d.Completed++
		case models.EvaluationDraft:
			d.Drafts++
		default:
			d.Pending++
		}
		d.Items = append(d.Items, item)
	}
	d.Total = len(d.Items)
	if d.Total > 0 {
		d.Progress = math.Round(float64(d.Completed)/float64(d.Total)*10000) / 100
	}
	return d, nil
}
