// Package accounts manages user logins and jury member profiles.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

const minPasswordLength = 8

// ErrInvalidCredentials is returned by Authenticate for unknown e-mail
// addresses and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Store interface {
	repository.UserRepo
	repository.JuryRepo
	repository.AuditRepo
}

type Service struct {
	store  Store
	logger *slog.Logger
	cost   int
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, cost: bcrypt.DefaultCost}
}

// SetCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) SetCost(cost int) { s.cost = cost }

type NewUser struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func validEmail(addr string) bool {
	a, err := mail.ParseAddress(addr)
	return err == nil && a.Address == addr && strings.Contains(addr[strings.LastIndex(addr, "@")+1:], ".")
}

// CreateUser validates the account, hashes the password and stores it.
func (s *Service) CreateUser(ctx context.Context, actorID int64, in NewUser) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	v := &apperr.ValidationError{}
	if !validEmail(in.Email) {
		v.Add("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		v.Add(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if in.Role != models.RoleAdministrator && in.Role != models.RoleJuryMember {
		v.Add(fmt.Sprintf("role must be %q or %q", models.RoleAdministrator, models.RoleJuryMember))
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Email
	}

	existing, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user %s already exists: %w", in.Email, apperr.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Email: in.Email, DisplayName: in.DisplayName, PasswordHash: string(hash), Role: in.Role}
	id, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	s.audit(ctx, actorID, "user_created", "user", id)
	s.logger.Info("user created", "user_id", id, "role", in.Role)
	return u, nil
}

// Authenticate checks the password of the account registered for email.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) User(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.ErrNotFound
	}
	return u, nil
}

func validateJury(j *models.JuryMember) error {
	j.Name = strings.TrimSpace(j.Name)
	j.Email = strings.ToLower(strings.TrimSpace(j.Email))
	v := &apperr.ValidationError{}
	if j.Name == "" {
		v.Add("name is required")
	}
	if j.Email != "" && !validEmail(j.Email) {
		v.Add("email is not valid")
	}
	return v.OrNil()
}

// SaveJury creates the jury member when j.ID is zero and updates it otherwise.
// The linked user is managed by LinkJuryUser only.
func (s *Service) SaveJury(ctx context.Context, actorID int64, j *models.JuryMember) (*models.JuryMember, error) {
	if err := validateJury(j); err != nil {
		return nil, err
	}
	if j.ID == 0 {
		j.UserID = nil
		id, err := s.store.CreateJuryMember(ctx, j)
		if err != nil {
			return nil, fmt.Errorf("create jury member: %w", err)
		}
		s.audit(ctx, actorID, "jury_created", "jury_member", id)
		return s.store.GetJuryMember(ctx, id)
	}

	cur, err := s.store.GetJuryMember(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, apperr.ErrNotFound
	}
	j.UserID = cur.UserID
	if err := s.store.UpdateJuryMember(ctx, j); err != nil {
		return nil, fmt.Errorf("update jury member: %w", err)
	}
	s.audit(ctx, actorID, "jury_updated", "jury_member", j.ID)
	return s.store.GetJuryMember(ctx, j.ID)
}

// LinkJuryUser links the jury member to a jury_member account, or unlinks it
// when userID is zero.
func (s *Service) LinkJuryUser(ctx context.Context, actorID, juryID, userID int64) error {
	j, err := s.store.GetJuryMember(ctx, juryID)
	if err != nil {
		return err
	}
	if j == nil {
		return apperr.ErrNotFound
	}
	var link *int64
	if userID > 0 {
		u, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Invalid(fmt.Sprintf("user %d does not exist", userID))
		}
		if u.Role != models.RoleJuryMember {
			return apperr.Invalid("only jury_member accounts can be linked")
		}
		other, err := s.store.GetJuryMemberByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if other != nil && other.ID != juryID {
			return fmt.Errorf("user %d is linked to jury member %d: %w", userID, other.ID, apperr.ErrConflict)
		}
		link = &userID
	}
	if err := s.store.LinkJuryUser(ctx, juryID, link); err != nil {
		return err
	}
	s.audit(ctx, actorID, "jury_linked", "jury_member", juryID)
	return nil
}

func (s *Service) DeleteJury(ctx context.Context, actorID, id int64) error {
	j, err := s.store.GetJuryMember(ctx, id)
	if err != nil {
		return err
	}
	if j == nil {
		return apperr.ErrNotFound
	}
	if err := s.store.DeleteJuryMember(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, actorID, "jury_deleted", "jury_member", id)
	return nil
}

func (s *Service) audit(ctx context.Context, actorID int64, action, objectType string, objectID int64) {
	if _, err := s.store.CreateAuditLog(ctx, &models.AuditLog{UserID: actorID, Action: action, ObjectType: objectType, ObjectID: objectID}); err != nil {
		s.logger.Warn("write audit log", "action", action, "err", err)
	}
}
