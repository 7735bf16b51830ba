package evaluation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/evaluation"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/testutil"
	"github.com/garnizeh/trailblazers/pkg/models"
)

type fixture struct {
	repo      *sqlite.SQLiteRepo
	svc       *evaluation.Service
	juror     *models.User
	admin     *models.User
	juryID    int64
	assigned  int64
	other     int64
	submitted []events.EvaluationPayload
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{repo: sqlite.New(testutil.NewDB(t), testutil.Logger())}

	bus := events.NewBus(testutil.Logger())
	bus.On(events.EvaluationSubmitted, func(ctx context.Context, e events.Event) error {
		f.submitted = append(f.submitted, e.Payload.(events.EvaluationPayload))
		return nil
	})
	f.svc = evaluation.NewService(f.repo, bus, testutil.Logger())

	uid, _ := f.repo.CreateUser(ctx, &models.User{Email: "jury@example.com", DisplayName: "Jury", PasswordHash: "x", Role: models.RoleJuryMember})
	aid, _ := f.repo.CreateUser(ctx, &models.User{Email: "admin@example.com", DisplayName: "Admin", PasswordHash: "x", Role: models.RoleAdministrator})
	f.juror, _ = f.repo.GetUserByID(ctx, uid)
	f.admin, _ = f.repo.GetUserByID(ctx, aid)

	f.juryID, _ = f.repo.CreateJuryMember(ctx, &models.JuryMember{Name: "Jury", UserID: &uid})
	f.assigned, _ = f.repo.CreateCandidate(ctx, &models.Candidate{Name: "Assigned", Slug: "assigned"})
	f.other, _ = f.repo.CreateCandidate(ctx, &models.Candidate{Name: "Other", Slug: "other"})
	if _, _, err := f.repo.CreateAssignment(ctx, &models.Assignment{JuryMemberID: f.juryID, CandidateID: f.assigned}); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	return f
}

func TestSave_DraftThenSubmit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	draft, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: models.Scores{Courage: ip(6)}, Comments: "  first look "})
	if err != nil {
		t.Fatalf("Save draft error: %v", err)
	}
	if draft.Status != models.EvaluationDraft || draft.Comments != "first look" {
		t.Fatalf("unexpected draft %+v", draft)
	}
	if len(f.submitted) != 0 {
		t.Fatalf("draft must not emit a submission event")
	}

	if _, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: models.Scores{Courage: ip(6)}, Submit: true}); apperr.Problems(err) == nil {
		t.Fatalf("expected incomplete submission to be rejected, got %v", err)
	}

	done, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(8), Submit: true})
	if err != nil {
		t.Fatalf("Save submit error: %v", err)
	}
	if done.ID != draft.ID || done.Status != models.EvaluationCompleted || done.TotalScore != 8 {
		t.Fatalf("unexpected submission %+v", done)
	}
	if len(f.submitted) != 1 || f.submitted[0].TotalScore != 8 {
		t.Fatalf("unexpected events %+v", f.submitted)
	}

	_, err = f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(3)})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict when downgrading to draft, got %v", err)
	}

	// last write wins for resubmissions
	again, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(9), Submit: true})
	if err != nil || again.TotalScore != 9 {
		t.Fatalf("resubmit: %+v %v", again, err)
	}
	all, _ := f.svc.List(ctx, models.EvaluationFilter{})
	if len(all) != 1 {
		t.Fatalf("expected a single evaluation per pair, got %d", len(all))
	}
}

func TestSave_Permissions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.other, Scores: full(5), Submit: true})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for unassigned candidate, got %v", err)
	}

	_, err = f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(5), JuryMemberID: f.juryID + 1})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden when acting for another jury member, got %v", err)
	}

	_, err = f.svc.Save(ctx, f.admin, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(5)})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for admin without jury selection, got %v", err)
	}

	e, err := f.svc.Save(ctx, f.admin, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(5), JuryMemberID: f.juryID})
	if err != nil || e.JuryMemberID != f.juryID {
		t.Fatalf("admin acting for jury member: %+v %v", e, err)
	}

	_, err = f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: 999, Scores: full(5)})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for unknown candidate, got %v", err)
	}

	_, err = f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(11)})
	if len(apperr.Problems(err)) != 5 {
		t.Fatalf("expected five range problems, got %v", err)
	}
}

func TestJuryDashboard(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	third, _ := f.repo.CreateCandidate(ctx, &models.Candidate{Name: "Third", Slug: "third"})
	_, _, _ = f.repo.CreateAssignment(ctx, &models.Assignment{JuryMemberID: f.juryID, CandidateID: third})
	_, _, _ = f.repo.CreateAssignment(ctx, &models.Assignment{JuryMemberID: f.juryID, CandidateID: f.other})

	if _, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(7), Submit: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: third, Scores: models.Scores{Courage: ip(2)}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d, err := f.svc.JuryDashboard(ctx, f.juror, 0)
	if err != nil {
		t.Fatalf("JuryDashboard error: %v", err)
	}
	if d.Total != 3 || d.Completed != 1 || d.Drafts != 1 || d.Pending != 1 {
		t.Fatalf("unexpected dashboard counts %+v", d)
	}
	if d.Progress != 33.33 {
		t.Fatalf("unexpected progress %v", d.Progress)
	}

}

func TestGetAndDelete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	got, err := f.svc.Get(ctx, f.juror, 0, f.assigned)
	if err != nil || got != nil {
		t.Fatalf("expected no evaluation yet, got %+v %v", got, err)
	}

	saved, err := f.svc.Save(ctx, f.juror, evaluation.SaveRequest{CandidateID: f.assigned, Scores: full(4)})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = f.svc.Get(ctx, f.juror, 0, f.assigned)
	if err != nil || got == nil || got.ID != saved.ID {
		t.Fatalf("Get: %+v %v", got, err)
	}

	if err := f.svc.Delete(ctx, f.admin.ID, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.admin.ID, saved.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
