package candidates_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/candidates"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/storage"
	"github.com/garnizeh/trailblazers/internal/testutil"
	"github.com/garnizeh/trailblazers/pkg/models"
)

func newService(t *testing.T) (*candidates.Service, *sqlite.SQLiteRepo, *storage.LocalStore, *[]events.Event) {
	t.Helper()
	repo := sqlite.New(testutil.NewDB(t), testutil.Logger())
	photos, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	bus := events.NewBus(testutil.Logger())
	var saved []events.Event
	bus.On(events.CandidateSaved, func(ctx context.Context, e events.Event) error { saved = append(saved, e); return nil })
	return candidates.NewService(repo, photos, bus, testutil.Logger()), repo, photos, &saved
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	_, err := svc.Save(ctx, 1, &models.Candidate{
		Name: "  ", WebsiteURL: "ftp://example.com", Category: "nope", Status: "shortlist", AwardYear: 1999,
	})
	problems := apperr.Problems(err)
	if len(problems) != 4 {
		t.Fatalf("expected 4 problems, got %q", problems)
	}
}

func TestSaveCreateUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, _, saved := newService(t)

	c, err := svc.Save(ctx, 1, &models.Candidate{Name: "Jörg  Schmidt", Category: "established-companies", WebsiteURL: "https://example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Slug != "joerg-schmidt" || c.Name != "Jörg Schmidt" {
		t.Fatalf("unexpected candidate %+v", c)
	}

	if _, err := svc.Save(ctx, 1, &models.Candidate{Name: "Joerg Schmidt"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	c.Position = "CTO"
	c.PhotoKey = "candidates/forged.webp"
	up, err := svc.Save(ctx, 1, c)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if up.Position != "CTO" || up.PhotoKey != "" {
		t.Fatalf("unexpected update %+v", up)
	}
	if len(*saved) != 2 || !(*saved)[0].Payload.(events.CandidatePayload).Created || (*saved)[1].Payload.(events.CandidatePayload).Created {
		t.Fatalf("unexpected events %+v", *saved)
	}

	if _, err := svc.Save(ctx, 1, &models.Candidate{ID: 404, Name: "Ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRestoreAndPhoto(t *testing.T) {
	ctx := context.Background()
	svc, repo, photos, _ := newService(t)

	c, err := svc.Save(ctx, 1, &models.Candidate{Name: "Anna Berg"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SetPhoto(ctx, 1, c.ID, "anna.gif", strings.NewReader("x"), 1); apperr.Problems(err) == nil {
		t.Fatalf("expected gif to be rejected, got %v", err)
	}
	first, err := svc.SetPhoto(ctx, 1, c.ID, "anna.webp", strings.NewReader("one"), 3)
	if err != nil {
		t.Fatalf("SetPhoto: %v", err)
	}
	second, err := svc.SetPhoto(ctx, 1, c.ID, "anna.webp", strings.NewReader("two"), 3)
	if err != nil {
		t.Fatalf("SetPhoto again: %v", err)
	}
	if _, err := photos.Open(ctx, first); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("previous photo should be removed, got %v", err)
	}

	rc, ct, err := svc.Photo(ctx, c.ID)
	if err != nil {
		t.Fatalf("Photo: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "two" || ct != "image/webp" {
		t.Fatalf("unexpected photo %q %q", b, ct)
	}

	if err := svc.Delete(ctx, 1, c.ID, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if n, _ := repo.CountCandidates(ctx, models.CandidateFilter{}); n != 0 {
		t.Fatalf("soft-deleted candidate still listed")
	}
	if err := svc.Restore(ctx, 1, c.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := svc.Delete(ctx, 1, c.ID, true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected candidate gone, got %v", err)
	}
	if _, err := photos.Open(ctx, second); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("photo should be removed on hard delete, got %v", err)
	}
}
