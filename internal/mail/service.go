package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/jobs"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

const (
	jobPriority    = 10
	jobMaxAttempts = 5
)

type Store interface {
	repository.JuryRepo
	repository.CandidateRepo
	repository.AssignmentRepo
	repository.EvaluationRepo
}

// Enqueuer persists a job for the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

type Options struct {
	// AdminAddress receives evaluation-submitted notices; empty disables them.
	AdminAddress string
	AwardYear    int
}

type Service struct {
	store  Store
	queue  Enqueuer
	opts   Options
	logger *slog.Logger
}

func NewService(store Store, queue Enqueuer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, queue: queue, opts: opts, logger: logger}
}

type candidateLine struct {
	Name         string
	Organization string
}

type assignmentData struct {
	JuryName   string
	AwardYear  int
	Candidates []candidateLine
}

type reminderData struct {
	JuryName   string
	Total      int
	Completed  int
	Pending    int
	Candidates []candidateLine
}

type submittedData struct {
	JuryName      string
	CandidateName string
	TotalScore    float64
	EvaluationID  int64
}

// SendHandler delivers email.send jobs through m.
func SendHandler(m Mailer) jobs.Handler {
	return func(ctx context.Context, j *jobs.Job) error {
		var msg Message
		if err := j.Decode(&msg); err != nil {
			return err
		}
		if err := msg.validate(); err != nil {
			return jobs.Permanent(err)
		}
		return m.Send(ctx, msg)
	}
}

// Register subscribes the notification listeners on bus.
func (s *Service) Register(bus *events.Bus) {
	bus.On(events.AssignmentCreated, s.onAssignmentCreated)
	bus.On(events.EvaluationSubmitted, s.onEvaluationSubmitted)
}

func (s *Service) onAssignmentCreated(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.AssignmentPayload)
	if !ok || len(p.CandidateIDs) == 0 {
		return nil
	}
	jury, err := s.store.GetJuryMember(ctx, p.JuryMemberID)
	if err != nil || jury == nil || jury.Email == "" {
		return err
	}
	lines, err := s.candidateLines(ctx, p.CandidateIDs)
	if err != nil {
		return err
	}
	return s.queueTemplate(ctx, jury.Email, TemplateAssignment, assignmentData{
		JuryName: jury.Name, AwardYear: s.opts.AwardYear, Candidates: lines,
	})
}

func (s *Service) onEvaluationSubmitted(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.EvaluationPayload)
	if !ok || s.opts.AdminAddress == "" {
		return nil
	}
	data := submittedData{TotalScore: p.TotalScore, EvaluationID: p.EvaluationID}
	if j, err := s.store.GetJuryMember(ctx, p.JuryMemberID); err == nil && j != nil {
		data.JuryName = j.Name
	}
	if c, err := s.store.GetCandidate(ctx, p.CandidateID); err == nil && c != nil {
		data.CandidateName = c.Name
	}
	return s.queueTemplate(ctx, s.opts.AdminAddress, TemplateSubmitted, data)
}

type ReminderResult struct {
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
}

// SendReminders queues a reminder for every jury member with assigned
// candidates that have no completed evaluation. Members without an e-mail
// address are skipped.
func (s *Service) SendReminders(ctx context.Context) (*ReminderResult, error) {
	members, err := s.store.ListJuryMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jury members: %w", err)
	}
	res := &ReminderResult{}
	for _, j := range members {
		data, err := s.reminder(ctx, j)
		if err != nil {
			return res, err
		}
		if data.Pending == 0 {
			continue
		}
		if j.Email == "" {
			res.Skipped++
			continue
		}
		if err := s.queueTemplate(ctx, j.Email, TemplateReminder, data); err != nil {
			return res, err
		}
		res.Queued++
	}
	s.logger.Info("evaluation reminders queued", "queued", res.Queued, "skipped", res.Skipped)
	return res, nil
}

func (s *Service) reminder(ctx context.Context, j models.JuryMember) (reminderData, error) {
	data := reminderData{JuryName: j.Name}
	assigned, err := s.store.ListAssignments(ctx, models.AssignmentFilter{JuryMemberID: j.ID})
	if err != nil {
		return data, fmt.Errorf("list assignments: %w", err)
	}
	done, err := s.store.ListEvaluations(ctx, models.EvaluationFilter{JuryMemberID: j.ID, Status: models.EvaluationCompleted})
	if err != nil {
		return data, fmt.Errorf("list evaluations: %w", err)
	}
	completed := make(map[int64]bool, len(done))
	for _, e := range done {
		completed[e.CandidateID] = true
	}

	var pending []int64
	for _, a := range assigned {
		if completed[a.CandidateID] {
			data.Completed++
			continue
		}
		pending = append(pending, a.CandidateID)
	}
	data.Total = len(assigned)
	data.Pending = len(pending)
	if data.Pending > 0 {
		data.Candidates, err = s.candidateLines(ctx, pending)
	}
	return data, err
}

// candidateLines resolves ids to names, dropping candidates that no longer exist.
func (s *Service) candidateLines(ctx context.Context, ids []int64) ([]candidateLine, error) {
	lines := make([]candidateLine, 0, len(ids))
	for _, id := range ids {
		c, err := s.store.GetCandidate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get candidate %d: %w", id, err)
		}
		if c == nil || c.DeletedAt != nil {
			continue
		}
		lines = append(lines, candidateLine{Name: c.Name, Organization: c.Organization})
	}
	return lines, nil
}

func (s *Service) queueTemplate(ctx context.Context, to, name string, data any) error {
	msg, err := Render(name, data)
	if err != nil {
		return err
	}
	msg.To = to
	if _, err := s.queue.Enqueue(ctx, jobs.TypeEmailSend, msg, jobPriority, jobMaxAttempts); err != nil {
		return fmt.Errorf("queue %s mail: %w", name, err)
	}
	s.logger.Debug("mail queued", "template", name, "to", to)
	return nil
}
