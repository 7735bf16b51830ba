// Package importer loads candidates from spreadsheets and matches their photos.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

type Store interface {
	repository.CandidateRepo
	repository.TermRepo
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

type Options struct {
	DryRun         bool
	UpdateExisting bool
	// AwardYear applies to rows without a year column value.
	AwardYear int
	// Phase applies to newly created candidates.
	Phase string
}

type Result struct {
	Total    int      `json:"total"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	DryRun   bool     `json:"dry_run"`
	Mapping  *Mapping `json:"mapping"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Import creates or updates candidates from rows; the first row holds the
// headers. Row problems are collected in Result.Errors and do not stop the
// import. The returned error is only set for unusable input or storage failures.
func (s *Service) Import(ctx context.Context, rows [][]string, opts Options) (*Result, error) {
	res := &Result{DryRun: opts.DryRun, Errors: []string{}, Warnings: []string{}}
	if len(rows) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	res.Mapping = MapColumns(rows[0])
	if _, ok := res.Mapping.Columns[FieldName]; !ok {
		return nil, fmt.Errorf("no name column found in headers %q", rows[0])
	}
	for h, f := range res.Mapping.Fuzzy {
		res.Warnings = append(res.Warnings, fmt.Sprintf("column %q mapped to %s by similarity", h, f))
	}
	for _, h := range res.Mapping.Unmapped {
		res.Warnings = append(res.Warnings, fmt.Sprintf("column %q ignored", h))
	}

	categories, err := s.termIndex(ctx, models.TaxonomyCategory)
	if err != nil {
		return nil, err
	}
	statuses, err := s.termIndex(ctx, models.TaxonomyStatus)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		res.Total++

		c, problems := s.candidateFromRow(res.Mapping, row, categories, statuses, opts)
		if len(problems) > 0 {
			for _, p := range problems {
				res.errorf("row %d: %s", line, p)
			}
			res.Skipped++
			continue
		}
		if prev, dup := seen[c.Slug]; dup {
			res.errorf("row %d: duplicate of row %d (%s)", line, prev, c.Slug)
			res.Skipped++
			continue
		}
		seen[c.Slug] = line

		existing, err := s.store.GetCandidateBySlug(ctx, c.Slug)
		if err != nil {
			return nil, fmt.Errorf("row %d: lookup %s: %w", line, c.Slug, err)
		}

		switch {
		case existing != nil && !opts.UpdateExisting:
			res.Skipped++
		case existing != nil:
			merge(existing, c)
			if !opts.DryRun {
				if err := s.store.UpdateCandidate(ctx, existing); err != nil {
					res.errorf("row %d: update %s: %v", line, c.Slug, err)
					res.Skipped++
					continue
				}
				s.publish(ctx, existing.ID, false)
			}
			res.Updated++
		default:
			if !opts.DryRun {
				id, err := s.store.CreateCandidate(ctx, c)
				if err != nil {
					res.errorf("row %d: create %s: %v", line, c.Slug, err)
					res.Skipped++
					continue
				}
				s.publish(ctx, id, true)
			}
			res.Created++
		}
	}

	s.logger.Info("candidate import finished",
		"total", res.Total, "created", res.Created, "updated", res.Updated,
		"skipped", res.Skipped, "errors", len(res.Errors), "dry_run", opts.DryRun)
	return res, nil
}

func (s *Service) publish(ctx context.Context, id int64, created bool) {
	s.bus.Publish(ctx, events.Event{
		Name:    events.CandidateImported,
		Payload: events.CandidatePayload{CandidateID: id, Created: created},
	})
}

// termIndex maps slug, compact name and compact slug of every term to its slug.
func (s *Service) termIndex(ctx context.Context, taxonomy string) (map[string]string, error) {
	terms, err := s.store.ListTerms(ctx, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("list %s terms: %w", taxonomy, err)
	}
	idx := make(map[string]string, len(terms)*3)
	for _, t := range terms {
		idx[t.Slug] = t.Slug
		idx[compact(t.Name)] = t.Slug
		idx[compact(t.Slug)] = t.Slug
	}
	return idx, nil
}

func (s *Service) candidateFromRow(m *Mapping, row []string, categories, statuses map[string]string, opts Options) (*models.Candidate, []string) {
	var problems []string

	name := strings.Join(strings.Fields(m.Value(row, FieldName)), " ")
	if name == "" {
		return nil, []string{"name is empty"}
	}

	c := &models.Candidate{
		Name:         name,
		Slug:         Slugify(name),
		Organization: m.Value(row, FieldOrganization),
		Position:     m.Value(row, FieldPosition),
		Country:      m.Value(row, FieldCountry),
		WebsiteURL:   normalizeURL(m.Value(row, FieldWebsite)),
		LinkedInURL:  normalizeURL(m.Value(row, FieldLinkedIn)),
		Description:  m.Value(row, FieldDescription),
		Phase:        opts.Phase,
		AwardYear:    opts.AwardYear,
	}
	if c.Slug == "" {
		return nil, []string{fmt.Sprintf("name %q has no usable characters", name)}
	}

	c.Sections = ParseSections(c.Description)
	for field, dst := range map[string]*string{
		FieldOverview:       &c.Sections.Overview,
		FieldCourage:        &c.Sections.Courage,
		FieldInnovation:     &c.Sections.Innovation,
		FieldImplementation: &c.Sections.Implementation,
		FieldRelevance:      &c.Sections.Relevance,
		FieldVisibility:     &c.Sections.Visibility,
	} {
		if v := m.Value(row, field); v != "" {
			*dst = v
		}
	}

	if v := m.Value(row, FieldCategory); v != "" {
		slug, ok := categories[v]
		if !ok {
			slug, ok = categories[compact(v)]
		}
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown category %q", v))
		}
		c.Category = slug
	}
	if v := m.Value(row, FieldStatus); v != "" {
		slug, ok := statuses[compact(v)]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown status %q", v))
		}
		c.Status = slug
	}
	if v := m.Value(row, FieldAwardYear); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 2000 || year > 2100 {
			problems = append(problems, fmt.Sprintf("invalid award year %q", v))
		}
		c.AwardYear = year
	}
	return c, problems
}

func normalizeURL(u string) string {
	if u == "" || strings.Contains(u, "://") {
		return u
	}
	return "https://" + u
}

func blank(row []string) bool {
	for _, v := range row {
		if trimCell(v) != "" {
			return false
		}
	}
	return true
}

// merge copies the non-empty imported fields onto the stored candidate.
func merge(dst, src *models.Candidate) {
	set := func(d *string, v string) {
		if v != "" {
			*d = v
		}
	}
	set(&dst.Name, src.Name)
	set(&dst.Organization, src.Organization)
	set(&dst.Position, src.Position)
	set(&dst.Country, src.Country)
	set(&dst.WebsiteURL, src.WebsiteURL)
	set(&dst.LinkedInURL, src.LinkedInURL)
	set(&dst.Description, src.Description)
	set(&dst.Sections.Overview, src.Sections.Overview)
	set(&dst.Sections.Courage, src.Sections.Courage)
	set(&dst.Sections.Innovation, src.Sections.Innovation)
	set(&dst.Sections.Implementation, src.Sections.Implementation)
	set(&dst.Sections.Relevance, src.Sections.Relevance)
	set(&dst.Sections.Visibility, src.Sections.Visibility)
	set(&dst.Category, src.Category)
	set(&dst.Status, src.Status)
	if src.AwardYear > 0 {
		dst.AwardYear = src.AwardYear
	}
}
