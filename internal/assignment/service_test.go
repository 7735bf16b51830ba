package assignment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/assignment"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/testutil"
	"github.com/garnizeh/trailblazers/pkg/models"
)

type fixture struct {
	repo       *sqlite.SQLiteRepo
	svc        *assignment.Service
	jury       []int64
	candidates []int64
	events     []events.Event
}

func setup(t *testing.T, jury, candidates int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{repo: sqlite.New(testutil.NewDB(t), testutil.Logger())}

	bus := events.NewBus(testutil.Logger())
	record := func(ctx context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	}
	bus.On(events.AssignmentCreated, record)
	bus.On(events.AssignmentRemoved, record)
	f.svc = assignment.NewService(f.repo, bus, testutil.Logger())

	for i := range jury {
		id, err := f.repo.CreateJuryMember(ctx, &models.JuryMember{Name: fmt.Sprintf("Jury %d", i)})
		if err != nil {
			t.Fatalf("CreateJuryMember: %v", err)
		}
		f.jury = append(f.jury, id)
	}
	for i := range candidates {
		id, err := f.repo.CreateCandidate(ctx, &models.Candidate{Name: fmt.Sprintf("Candidate %d", i), Slug: fmt.Sprintf("candidate-%d", i)})
		if err != nil {
			t.Fatalf("CreateCandidate: %v", err)
		}
		f.candidates = append(f.candidates, id)
	}
	return f
}

func TestAutoAssign_Balanced(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 4, 10)

	res, err := f.svc.AutoAssign(ctx, 1, assignment.AutoOptions{Method: assignment.MethodBalanced, PerJury: 5})
	if err != nil {
		t.Fatalf("AutoAssign error: %v", err)
	}
	if res.Created != 20 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	d, err := f.svc.Distribution(ctx)
	if err != nil {
		t.Fatalf("Distribution error: %v", err)
	}
	if d.Total != 20 || d.Max-d.Min > 1 || d.Unassigned != 0 {
		t.Fatalf("unexpected distribution %+v", d)
	}
	if len(f.events) != 4 {
		t.Fatalf("expected one event per jury member, got %d", len(f.events))
	}

	// a second run without clearing continues from the current counts
	res, err = f.svc.AutoAssign(ctx, 1, assignment.AutoOptions{Method: assignment.MethodBalanced, PerJury: 1})
	if err != nil {
		t.Fatalf("second AutoAssign error: %v", err)
	}
	if res.Created != 4 {
		t.Fatalf("expected 4 new assignments, got %+v", res)
	}
	d, _ = f.svc.Distribution(ctx)
	if d.Max-d.Min > 1 {
		t.Fatalf("unbalanced after second run %+v", d)
	}
}

func TestAutoAssign_ClearExisting(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2, 4)

	if _, err := f.svc.Assign(ctx, 1, f.jury[0], f.candidates); err != nil {
		t.Fatalf("Assign error: %v", err)
	}
	res, err := f.svc.AutoAssign(ctx, 1, assignment.AutoOptions{Method: assignment.MethodRandom, PerJury: 1, ClearExisting: true})
	if err != nil {
		t.Fatalf("AutoAssign error: %v", err)
	}
	if !res.Cleared || res.Created != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	all, _ := f.svc.List(ctx, models.AssignmentFilter{})
	if len(all) != 2 {
		t.Fatalf("expected 2 assignments after clearing, got %d", len(all))
	}
}

// racingStore inserts the first proposed pair itself before the batch runs,
// as a concurrent auto-assign request would.
type racingStore struct {
	*sqlite.SQLiteRepo
}

func (r racingStore) CreateAssignments(ctx context.Context, pairs []models.Assignment, clearExisting bool) ([]models.Assignment, error) {
	if len(pairs) > 0 {
		if _, _, err := r.CreateAssignment(ctx, &models.Assignment{JuryMemberID: pairs[0].JuryMemberID, CandidateID: pairs[0].CandidateID}); err != nil {
			return nil, err
		}
	}
	return r.SQLiteRepo.CreateAssignments(ctx, pairs, clearExisting)
}

func TestAutoAssign_PublishesOnlyInsertedPairs(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2, 4)

	bus := events.NewBus(testutil.Logger())
	var published []events.AssignmentPayload
	bus.On(events.AssignmentCreated, func(ctx context.Context, e events.Event) error {
		published = append(published, e.Payload.(events.AssignmentPayload))
		return nil
	})
	svc := assignment.NewService(racingStore{f.repo}, bus, testutil.Logger())

	res, err := svc.AutoAssign(ctx, 1, assignment.AutoOptions{Method: assignment.MethodBalanced, PerJury: 2})
	if err != nil {
		t.Fatalf("AutoAssign error: %v", err)
	}
	if res.Proposed != 4 || res.Created != 3 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	total := 0
	for _, p := range published {
		total += len(p.CandidateIDs)
		if p.JuryMemberID == f.jury[0] {
			for _, id := range p.CandidateIDs {
				if id == f.candidates[0] {
					t.Fatalf("event announced pair %d/%d that another request inserted", p.JuryMemberID, id)
				}
			}
		}
	}
	if total != res.Created {
		t.Fatalf("events announce %d pairs, want %d", total, res.Created)
	}
}

func TestAutoAssign_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 0, 0)

	_, err := f.svc.AutoAssign(ctx, 1, assignment.AutoOptions{Method: assignment.MethodBalanced, PerJury: 3})
	problems := apperr.Problems(err)
	if len(problems) != 2 {
		t.Fatalf("expected two problems, got %v (%v)", problems, err)
	}

	_, err = f.svc.AutoAssign(ctx, 1, assignment.AutoOptions{Method: "round-robin", PerJury: 0})
	if len(apperr.Problems(err)) != 2 {
		t.Fatalf("expected method and size problems, got %v", err)
	}

	all, _ := f.svc.List(ctx, models.AssignmentFilter{})
	if len(all) != 0 {
		t.Fatalf("expected no assignments to be created")
	}
}

func TestAssign_ManualAndBulk(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2, 3)

	res, err := f.svc.Assign(ctx, 1, f.jury[0], f.candidates[:2])
	if err != nil {
		t.Fatalf("Assign error: %v", err)
	}
	if len(res.Created) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = f.svc.Assign(ctx, 1, f.jury[0], f.candidates)
	if err != nil {
		t.Fatalf("Assign error: %v", err)
	}
	if len(res.Created) != 1 || len(res.Skipped) != 2 {
		t.Fatalf("expected existing pairs to be skipped, got %+v", res)
	}

	if _, err := f.svc.Assign(ctx, 1, 999, f.candidates); apperr.Problems(err) == nil {
		t.Fatalf("expected validation error for unknown jury member, got %v", err)
	}
	_ = f.repo.SoftDeleteCandidate(ctx, f.candidates[2])
	if _, err := f.svc.Assign(ctx, 1, f.jury[1], f.candidates[2:]); apperr.Problems(err) == nil {
		t.Fatalf("expected validation error for deleted candidate, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	f := setup(t, 2, 3)

	_, _ = f.svc.Assign(ctx, 1, f.jury[0], f.candidates)
	_, _ = f.svc.Assign(ctx, 1, f.jury[1], f.candidates)
	all, _ := f.svc.List(ctx, models.AssignmentFilter{})

	if err := f.svc.Remove(ctx, 1, all[0].ID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := f.svc.Remove(ctx, 1, all[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := f.svc.RemoveBulk(ctx, 1, assignment.BulkRemove{}); apperr.Problems(err) == nil {
		t.Fatalf("expected validation error for empty selector")
	}

	n, err := f.svc.RemoveBulk(ctx, 1, assignment.BulkRemove{IDs: []int64{all[1].ID, all[2].ID}})
	if err != nil || n != 2 {
		t.Fatalf("RemoveBulk ids: %d %v", n, err)
	}
	n, err = f.svc.RemoveBulk(ctx, 1, assignment.BulkRemove{JuryMemberID: f.jury[1]})
	if err != nil || n != 3 {
		t.Fatalf("RemoveBulk jury: %d %v", n, err)
	}

	last := f.events[len(f.events)-1]
	p := last.Payload.(events.AssignmentPayload)
	if last.Name != events.AssignmentRemoved || p.JuryMemberID != f.jury[1] || len(p.CandidateIDs) != 3 {
		t.Fatalf("unexpected last event %+v", last)
	}

	logs, _ := f.repo.ListAuditLogs(ctx, "assignment", 0)
	if len(logs) == 0 {
		t.Fatalf("expected audit log entries")
	}
}
