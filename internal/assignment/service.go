package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

const (
	MethodRandom   = "random"
	MethodBalanced = "balanced"
)

// Store is the persistence the service needs.
type Store interface {
	repository.JuryRepo
	repository.CandidateRepo
	repository.AssignmentRepo
	repository.AuditRepo
}

type Service struct {
	store  Store
	bus    *events.Bus
	logger *slog.Logger
	rng    *rand.Rand
}

func NewService(store Store, bus *events.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, bus: bus, logger: logger}
}

// SetRand fixes the random source used by the random method.
func (s *Service) SetRand(r *rand.Rand) { s.rng = r }

type AutoOptions struct {
	Method        string `json:"method"`
	PerJury       int    `json:"candidates_per_jury"`
	ClearExisting bool   `json:"clear_existing"`
}

type AutoResult struct {
	Method   string `json:"method"`
	Proposed int    `json:"proposed"`
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
	Cleared  bool   `json:"cleared"`
}

// AutoAssign distributes all live candidates across all jury members.
func (s *Service) AutoAssign(ctx context.Context, userID int64, opts AutoOptions) (*AutoResult, error) {
	v := &apperr.ValidationError{}
	if opts.Method != MethodRandom && opts.Method != MethodBalanced {
		v.Add(fmt.Sprintf("unknown assignment method %q", opts.Method))
	}
	if opts.PerJury <= 0 {
		v.Add("candidates per jury member must be positive")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	juryIDs, err := s.store.ListJuryMemberIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jury members: %w", err)
	}
	candidateIDs, err := s.store.ListCandidateIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	existing := Existing{}
	counts := map[int64]int{}
	if !opts.ClearExisting {
		current, err := s.store.ListAssignments(ctx, models.AssignmentFilter{})
		if err != nil {
			return nil, fmt.Errorf("list assignments: %w", err)
		}
		for _, a := range current {
			existing[Pair{JuryMemberID: a.JuryMemberID, CandidateID: a.CandidateID}] = struct{}{}
		}
		if counts, err = s.store.CountAssignmentsByCandidate(ctx); err != nil {
			return nil, fmt.Errorf("count assignments: %w", err)
		}
	}

	var pairs []Pair
	if opts.Method == MethodRandom {
		pairs, err = Random(juryIDs, candidateIDs, opts.PerJury, existing, s.rng)
	} else {
		pairs, err = Balanced(juryIDs, candidateIDs, opts.PerJury, counts, existing)
	}
	if err != nil {
		return nil, toValidation(err)
	}

	rows := make([]models.Assignment, len(pairs))
	for i, p := range pairs {
		rows[i] = models.Assignment{JuryMemberID: p.JuryMemberID, CandidateID: p.CandidateID, AssignedBy: userID}
	}
	inserted, err := s.store.CreateAssignments(ctx, rows, opts.ClearExisting)
	if err != nil {
		return nil, fmt.Errorf("create assignments: %w", err)
	}
	created := make([]Pair, len(inserted))
	for i, a := range inserted {
		created[i] = Pair{JuryMemberID: a.JuryMemberID, CandidateID: a.CandidateID}
	}

	res := &AutoResult{
		Method:   opts.Method,
		Proposed: len(pairs),
		Created:  len(created),
		Skipped:  len(pairs) - len(created),
		Cleared:  opts.ClearExisting,
	}
	s.audit(ctx, userID, "auto_assign", 0, res)
	s.publish(ctx, events.AssignmentCreated, userID, created)
	s.logger.Info("auto assignment complete", "method", res.Method, "created", res.Created, "skipped", res.Skipped, "cleared", res.Cleared)
	return res, nil
}

func toValidation(err error) error {
	v := &apperr.ValidationError{}
	if errors.Is(err, ErrNoJuryMembers) {
		v.Add(ErrNoJuryMembers.Error())
	}
	if errors.Is(err, ErrNoCandidates) {
		v.Add(ErrNoCandidates.Error())
	}
	if v.Empty() {
		return err
	}
	return v
}

type AssignResult struct {
	Created []int64 `json:"created"`
	Skipped []int64 `json:"skipped"`
}

// Assign links the jury member to each candidate. Pairs that already exist are
// reported as skipped; unknown or deleted candidates fail the whole call.
func (s *Service) Assign(ctx context.Context, userID, juryID int64, candidateIDs []int64) (*AssignResult, error) {
	j, err := s.store.GetJuryMember(ctx, juryID)
	if err != nil {
		return nil, fmt.Errorf("get jury member: %w", err)
	}
	v := &apperr.ValidationError{}
	if j == nil {
		v.Add(fmt.Sprintf("jury member %d does not exist", juryID))
	}
	if len(candidateIDs) == 0 {
		v.Add("no candidates selected")
	}
	for _, id := range candidateIDs {
		c, err := s.store.GetCandidate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get candidate %d: %w", id, err)
		}
		if c == nil || c.DeletedAt != nil {
			v.Add(fmt.Sprintf("candidate %d does not exist", id))
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	res := &AssignResult{Created: []int64{}, Skipped: []int64{}}
	for _, cid := range candidateIDs {
		_, created, err := s.store.CreateAssignment(ctx, &models.Assignment{JuryMemberID: juryID, CandidateID: cid, AssignedBy: userID})
		if err != nil {
			return nil, fmt.Errorf("create assignment %d/%d: %w", juryID, cid, err)
		}
		if created {
			res.Created = append(res.Created, cid)
		} else {
			res.Skipped = append(res.Skipped, cid)
		}
	}

	if len(res.Created) > 0 {
		s.audit(ctx, userID, "manual_assign", juryID, res)
		s.bus.Publish(ctx, events.Event{
			Name:    events.AssignmentCreated,
			UserID:  userID,
			Payload: events.AssignmentPayload{JuryMemberID: juryID, CandidateIDs: res.Created},
		})
	}
	return res, nil
}

// Remove deletes one assignment. Its evaluation, if any, is kept.
func (s *Service) Remove(ctx context.Context, userID, id int64) error {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return fmt.Errorf("get assignment: %w", err)
	}
	if a == nil {
		return apperr.ErrNotFound
	}
	if err := s.store.DeleteAssignment(ctx, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}

	s.audit(ctx, userID, "remove_assignment", id, a)
	s.publish(ctx, events.AssignmentRemoved, userID, []Pair{{JuryMemberID: a.JuryMemberID, CandidateID: a.CandidateID}})
	return nil
}

// BulkRemove selects assignments by id list, by jury member or all of them.
// Exactly one selector must be set.
type BulkRemove struct {
	IDs          []int64 `json:"ids"`
	JuryMemberID int64   `json:"jury_member_id"`
	All          bool    `json:"all"`
}

func (s *Service) RemoveBulk(ctx context.Context, userID int64, req BulkRemove) (int64, error) {
	selectors := 0
	if len(req.IDs) > 0 {
		selectors++
	}
	if req.JuryMemberID > 0 {
		selectors++
	}
	if req.All {
		selectors++
	}
	if selectors != 1 {
		return 0, apperr.Invalid("select exactly one of ids, jury_member_id or all")
	}

	var (
		affected []models.Assignment
		err      error
	)
	switch {
	case req.All:
		affected, err = s.store.ListAssignments(ctx, models.AssignmentFilter{})
	case req.JuryMemberID > 0:
		affected, err = s.store.ListAssignments(ctx, models.AssignmentFilter{JuryMemberID: req.JuryMemberID})
	default:
		for _, id := range req.IDs {
			a, gErr := s.store.GetAssignment(ctx, id)
			if gErr != nil {
				return 0, fmt.Errorf("get assignment %d: %w", id, gErr)
			}
			if a != nil {
				affected = append(affected, *a)
			}
		}
	}
	if err != nil {
		return 0, fmt.Errorf("list assignments: %w", err)
	}

	var n int64
	switch {
	case req.All:
		n, err = s.store.DeleteAllAssignments(ctx)
	case req.JuryMemberID > 0:
		n, err = s.store.DeleteAssignmentsByJury(ctx, req.JuryMemberID)
	default:
		n, err = s.store.DeleteAssignments(ctx, req.IDs)
	}
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}

	pairs := make([]Pair, len(affected))
	for i, a := range affected {
		pairs[i] = Pair{JuryMemberID: a.JuryMemberID, CandidateID: a.CandidateID}
	}
	s.audit(ctx, userID, "bulk_remove_assignments", 0, map[string]any{"request": req, "removed": n})
	s.publish(ctx, events.AssignmentRemoved, userID, pairs)
	return n, nil
}

func (s *Service) List(ctx context.Context, f models.AssignmentFilter) ([]models.Assignment, error) {
	out, err := s.store.ListAssignments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}

type CandidateCount struct {
	CandidateID int64 `json:"candidate_id"`
	Count       int   `json:"count"`
}

// Distribution summarizes how evenly live candidates are covered.
type Distribution struct {
	Candidates  []CandidateCount `json:"candidates"`
	Total       int              `json:"total_assignments"`
	Min         int              `json:"min"`
	Max         int              `json:"max"`
	Unassigned  int              `json:"unassigned"`
	JuryMembers int              `json:"jury_members"`
}

func (s *Service) Distribution(ctx context.Context) (*Distribution, error) {
	candidateIDs, err := s.store.ListCandidateIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	juryIDs, err := s.store.ListJuryMemberIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jury members: %w", err)
	}
	counts, err := s.store.CountAssignmentsByCandidate(ctx)
	if err != nil {
		return nil, fmt.Errorf("count assignments: %w", err)
	}

	d := &Distribution{Candidates: make([]CandidateCount, 0, len(candidateIDs)), JuryMembers: len(juryIDs)}
	for i, id := range candidateIDs {
		n := counts[id]
		d.Candidates = append(d.Candidates, CandidateCount{CandidateID: id, Count: n})
		d.Total += n
		if n == 0 {
			d.Unassigned++
		}
		if i == 0 || n < d.Min {
			d.Min = n
		}
		if n > d.Max {
			d.Max = n
		}
	}
	return d, nil
}

func (s *Service) audit(ctx context.Context, userID int64, action string, objectID int64, details any) {
	b, err := json.Marshal(details)
	if err != nil {
		b = []byte("{}")
	}
	if _, err := s.store.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		ObjectType: "assignment",
		ObjectID:   objectID,
		Details:    string(b),
	}); err != nil {
		s.logger.Warn("write audit log", "action", action, "err", err)
	}
}

// publish emits one event per jury member, in ascending jury id order.
func (s *Service) publish(ctx context.Context, name string, userID int64, pairs []Pair) {
	byJury := make(map[int64][]int64)
	for _, p := range pairs {
		byJury[p.JuryMemberID] = append(byJury[p.JuryMemberID], p.CandidateID)
	}
	juryIDs := make([]int64, 0, len(byJury))
	for id := range byJury {
		juryIDs = append(juryIDs, id)
	}
	sort.Slice(juryIDs, func(a, b int) bool { return juryIDs[a] < juryIDs[b] })

	for _, id := range juryIDs {
		s.bus.Publish(ctx, events.Event{
			Name:    name,
			UserID:  userID,
			Payload: events.AssignmentPayload{JuryMemberID: id, CandidateIDs: byJury[id]},
		})
	}
}
