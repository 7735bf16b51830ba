// Package candidates validates and stores candidate profiles and their photos.
package candidates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/importer"
	"github.com/garnizeh/trailblazers/internal/storage"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

// MaxPhotoBytes caps uploaded photos.
const MaxPhotoBytes = 5 << 20

type Store interface {
	repository.CandidateRepo
	repository.TermRepo
	repository.AuditRepo
}

type Service struct {
	store  Store
	photos storage.PhotoStore
	bus    *events.Bus
	logger *slog.Logger
}

func NewService(store Store, photos storage.PhotoStore, bus *events.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, photos: photos, bus: bus, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Candidate, error) {
	c, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.ErrNotFound
	}
	return c, nil
}

// Page is one page of a filtered candidate list.
type Page struct {
	Items []models.Candidate `json:"items"`
	Total int64              `json:"total"`
}

func (s *Service) List(ctx context.Context, f models.CandidateFilter) (*Page, error) {
	items, err := s.store.ListCandidates(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountCandidates(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Candidate{}
	}
	return &Page{Items: items, Total: total}, nil
}

func (s *Service) validate(ctx context.Context, c *models.Candidate) error {
	c.Name = strings.Join(strings.Fields(c.Name), " ")
	c.Slug = importer.Slugify(c.Slug)
	if c.Slug == "" {
		c.Slug = importer.Slugify(c.Name)
	}

	v := &apperr.ValidationError{}
	if c.Name == "" {
		v.Add("name is required")
	}
	if c.Slug == "" && c.Name != "" {
		v.Add("name must contain letters or digits")
	}
	for field, u := range map[string]*string{"website_url": &c.WebsiteURL, "linkedin_url": &c.LinkedInURL} {
		*u = strings.TrimSpace(*u)
		if *u == "" {
			continue
		}
		p, err := url.Parse(*u)
		if err != nil || (p.Scheme != "http" && p.Scheme != "https") || p.Host == "" {
			v.Add(field + " must be an http(s) URL")
		}
	}
	for taxonomy, slug := range map[string]string{
		models.TaxonomyCategory: c.Category,
		models.TaxonomyPhase:    c.Phase,
		models.TaxonomyStatus:   c.Status,
	} {
		if slug == "" {
			continue
		}
		ok, err := s.store.TermExists(ctx, taxonomy, slug)
		if err != nil {
			return err
		}
		if !ok {
			v.Add(fmt.Sprintf("unknown %s %q", strings.TrimPrefix(taxonomy, "mt_"), slug))
		}
	}
	if c.AwardYear != 0 && (c.AwardYear < 2000 || c.AwardYear > 2100) {
		v.Add("award_year is out of range")
	}
	return v.OrNil()
}

// Save creates the candidate when c.ID is zero and replaces its editable
// fields otherwise. Slugs must be unique.
func (s *Service) Save(ctx context.Context, actorID int64, c *models.Candidate) (*models.Candidate, error) {
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}
	other, err := s.store.GetCandidateBySlug(ctx, c.Slug)
	if err != nil {
		return nil, err
	}
	if other != nil && other.ID != c.ID {
		return nil, fmt.Errorf("slug %q is used by candidate %d: %w", c.Slug, other.ID, apperr.ErrConflict)
	}

	created := c.ID == 0
	if created {
		c.PhotoKey = ""
		id, err := s.store.CreateCandidate(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("create candidate: %w", err)
		}
		c.ID = id
	} else {
		cur, err := s.Get(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.PhotoKey = cur.PhotoKey
		if err := s.store.UpdateCandidate(ctx, c); err != nil {
			return nil, fmt.Errorf("update candidate: %w", err)
		}
	}

	action := "candidate_updated"
	if created {
		action = "candidate_created"
	}
	s.audit(ctx, actorID, action, c.ID)
	s.bus.Publish(ctx, events.Event{
		Name: events.CandidateSaved, UserID: actorID,
		Payload: events.CandidatePayload{CandidateID: c.ID, Created: created},
	})
	return s.Get(ctx, c.ID)
}

// Delete soft-deletes the candidate, or removes it with its assignments,
// evaluations, votes and photo when force is set.
func (s *Service) Delete(ctx context.Context, actorID, id int64, force bool) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !force {
		if err := s.store.SoftDeleteCandidate(ctx, id); err != nil {
			return err
		}
		s.audit(ctx, actorID, "candidate_trashed", id)
		return nil
	}
	if err := s.store.HardDeleteCandidate(ctx, id); err != nil {
		return err
	}
	if c.PhotoKey != "" && s.photos != nil {
		if err := s.photos.Delete(ctx, c.PhotoKey); err != nil {
			s.logger.Warn("delete candidate photo", "candidate_id", id, "key", c.PhotoKey, "err", err)
		}
	}
	s.audit(ctx, actorID, "candidate_deleted", id)
	return nil
}

func (s *Service) Restore(ctx context.Context, actorID, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.RestoreCandidate(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, actorID, "candidate_restored", id)
	return nil
}

var photoExt = map[string]bool{".webp": true, ".jpg": true, ".jpeg": true, ".png": true}

// SetPhoto stores the uploaded image and replaces the candidate's previous photo.
func (s *Service) SetPhoto(ctx context.Context, actorID, id int64, filename string, r io.Reader, size int64) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !photoExt[strings.ToLower(path.Ext(filename))] {
		return "", apperr.Invalid("photo must be a .webp, .jpg or .png file")
	}
	if size > MaxPhotoBytes {
		return "", apperr.Invalid(fmt.Sprintf("photo exceeds %d bytes", MaxPhotoBytes))
	}

	key := storage.PhotoKey(c.Slug, filename)
	if err := s.photos.Put(ctx, key, r, size, storage.ContentType(key)); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	if err := s.store.SetCandidatePhoto(ctx, id, key); err != nil {
		_ = s.photos.Delete(ctx, key)
		return "", err
	}
	if c.PhotoKey != "" {
		if err := s.photos.Delete(ctx, c.PhotoKey); err != nil {
			s.logger.Warn("delete previous photo", "candidate_id", id, "key", c.PhotoKey, "err", err)
		}
	}
	s.audit(ctx, actorID, "candidate_photo", id)
	return key, nil
}

// Photo opens the candidate's stored photo.
func (s *Service) Photo(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if c.PhotoKey == "" {
		return nil, "", apperr.ErrNotFound
	}
	rc, err := s.photos.Open(ctx, c.PhotoKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperr.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return rc, storage.ContentType(c.PhotoKey), nil
}

func (s *Service) audit(ctx context.Context, actorID int64, action string, id int64) {
	if _, err := s.store.CreateAuditLog(ctx, &models.AuditLog{UserID: actorID, Action: action, ObjectType: "candidate", ObjectID: id}); err != nil {
		s.logger.Warn("write audit log", "action", action, "err", err)
	}
}
