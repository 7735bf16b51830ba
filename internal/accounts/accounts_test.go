package accounts_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/trailblazers/internal/accounts"
	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/testutil"
	"github.com/garnizeh/trailblazers/pkg/models"
)

func newService(t *testing.T) (*accounts.Service, *sqlite.SQLiteRepo) {
	t.Helper()
	repo := sqlite.New(testutil.NewDB(t), testutil.Logger())
	svc := accounts.NewService(repo, testutil.Logger())
	svc.SetCost(bcrypt.MinCost)
	return svc, repo
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	u, err := svc.CreateUser(ctx, 0, accounts.NewUser{Email: " Dana@Example.com ", Password: "correct horse", Role: models.RoleJuryMember})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Email != "dana@example.com" || u.DisplayName != "dana@example.com" || u.PasswordHash == "correct horse" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := svc.CreateUser(ctx, 0, accounts.NewUser{Email: "dana@example.com", Password: "another pass", Role: models.RoleJuryMember}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
	_, err = svc.CreateUser(ctx, 0, accounts.NewUser{Email: "nope", Password: "short", Role: "editor"})
	if got := len(apperr.Problems(err)); got != 3 {
		t.Fatalf("expected 3 problems, got %v", err)
	}

	if _, err := svc.Authenticate(ctx, "DANA@example.com", "correct horse"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "dana@example.com", "wrong"); !errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost@example.com", "x"); !errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestJuryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	if _, err := svc.SaveJury(ctx, 1, &models.JuryMember{Email: "bad"}); len(apperr.Problems(err)) != 2 {
		t.Fatalf("expected 2 problems, got %v", err)
	}

	j, err := svc.SaveJury(ctx, 1, &models.JuryMember{Name: " Dana ", Email: "Dana@Example.com", Expertise: "rail,urban"})
	if err != nil {
		t.Fatalf("create jury: %v", err)
	}
	if j.Name != "Dana" || j.Email != "dana@example.com" {
		t.Fatalf("unexpected jury member %+v", j)
	}

	juror, _ := svc.CreateUser(ctx, 1, accounts.NewUser{Email: "juror@example.com", Password: "password1", Role: models.RoleJuryMember})
	admin, _ := svc.CreateUser(ctx, 1, accounts.NewUser{Email: "admin@example.com", Password: "password1", Role: models.RoleAdministrator})

	if err := svc.LinkJuryUser(ctx, 1, j.ID, admin.ID); apperr.Problems(err) == nil {
		t.Fatalf("expected admin link to be rejected, got %v", err)
	}
	if err := svc.LinkJuryUser(ctx, 1, j.ID, juror.ID); err != nil {
		t.Fatalf("LinkJuryUser: %v", err)
	}
	other, _ := svc.SaveJury(ctx, 1, &models.JuryMember{Name: "Other"})
	if err := svc.LinkJuryUser(ctx, 1, other.ID, juror.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict linking user twice, got %v", err)
	}

	j.Position = "Professor"
	j.UserID = nil
	updated, err := svc.SaveJury(ctx, 1, j)
	if err != nil {
		t.Fatalf("update jury: %v", err)
	}
	if updated.Position != "Professor" || updated.UserID == nil || *updated.UserID != juror.ID {
		t.Fatalf("update must keep the user link, got %+v", updated)
	}

	if err := svc.LinkJuryUser(ctx, 1, j.ID, 0); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if got, _ := repo.GetJuryMember(ctx, j.ID); got.UserID != nil {
		t.Fatalf("expected unlinked jury member, got %+v", got)
	}

	if err := svc.DeleteJury(ctx, 1, j.ID); err != nil {
		t.Fatalf("DeleteJury: %v", err)
	}
	if err := svc.DeleteJury(ctx, 1, j.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.SaveJury(ctx, 1, &models.JuryMember{ID: 999, Name: "Ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}

	logs, _ := repo.ListAuditLogs(ctx, "jury_member", 0)
	if len(logs) < 5 {
		t.Fatalf("expected audit entries, got %d", len(logs))
	}
}
