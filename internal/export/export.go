// Package export writes candidates, evaluations and votes as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

// Export kinds.
const (
	KindCandidates  = "candidates"
	KindEvaluations = "evaluations"
	KindVotes       = "votes"
)

// Kinds lists every supported export.
var Kinds = []string{KindCandidates, KindEvaluations, KindVotes}

type Store interface {
	repository.CandidateRepo
	repository.JuryRepo
	repository.EvaluationRepo
	repository.VoteRepo
}

type Exporter struct {
	store Store
}

func New(store Store) *Exporter {
	return &Exporter{store: store}
}

// Write writes the export of kind to w.
func (e *Exporter) Write(ctx context.Context, kind string, w io.Writer) error {
	switch kind {
	case KindCandidates:
		return e.Candidates(ctx, w)
	case KindEvaluations:
		return e.Evaluations(ctx, w)
	case KindVotes:
		return e.Votes(ctx, w)
	}
	return fmt.Errorf("unknown export %q", kind)
}

// Filename returns the download name for kind at t.
func Filename(kind string, t time.Time) string {
	return fmt.Sprintf("mt-%s-%s.csv", kind, t.Format("2006-01-02"))
}

func (e *Exporter) Candidates(ctx context.Context, w io.Writer) error {
	list, err := e.store.ListCandidates(ctx, models.CandidateFilter{Limit: -1})
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "name", "slug", "organization", "position", "country", "category", "phase", "status", "award_year", "website_url", "linkedin_url", "photo_key"})
	for _, c := range list {
		_ = cw.Write([]string{
			itoa(c.ID), c.Name, c.Slug, c.Organization, c.Position, c.Country,
			c.Category, c.Phase, c.Status, strconv.Itoa(c.AwardYear),
			c.WebsiteURL, c.LinkedInURL, c.PhotoKey,
		})
	}
	return flush(cw)
}

func (e *Exporter) Evaluations(ctx context.Context, w io.Writer) error {
	list, err := e.store.ListEvaluations(ctx, models.EvaluationFilter{Limit: -1})
	if err != nil {
		return fmt.Errorf("list evaluations: %w", err)
	}
	names, err := e.names(ctx)
	if err != nil {
		return err
	}
	jury, err := e.store.ListJuryMembers(ctx)
	if err != nil {
		return fmt.Errorf("list jury members: %w", err)
	}
	juryNames := make(map[int64]string, len(jury))
	for _, j := range jury {
		juryNames[j.ID] = j.Name
	}

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "jury_member_id", "jury_member", "candidate_id", "candidate", "courage", "innovation", "implementation", "relevance", "visibility", "total_score", "status", "comments", "updated"})
	for _, ev := range list {
		_ = cw.Write([]string{
			itoa(ev.ID), itoa(ev.JuryMemberID), juryNames[ev.JuryMemberID],
			itoa(ev.CandidateID), names[ev.CandidateID],
			score(ev.Scores.Courage), score(ev.Scores.Innovation), score(ev.Scores.Implementation),
			score(ev.Scores.Relevance), score(ev.Scores.Visibility),
			strconv.FormatFloat(ev.TotalScore, 'f', 2, 64), ev.Status, ev.Comments,
			timestamp(ev.Updated),
		})
	}
	return flush(cw)
}

// Votes writes one row per vote. Voter e-mail addresses are not exported.
func (e *Exporter) Votes(ctx context.Context, w io.Writer) error {
	list, err := e.store.ListVotes(ctx, 0)
	if err != nil {
		return fmt.Errorf("list votes: %w", err)
	}
	names, err := e.names(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "candidate_id", "candidate", "created"})
	for _, v := range list {
		_ = cw.Write([]string{itoa(v.ID), itoa(v.CandidateID), names[v.CandidateID], timestamp(v.Created)})
	}
	return flush(cw)
}

// names maps candidate ids to names, including soft-deleted candidates.
func (e *Exporter) names(ctx context.Context) (map[int64]string, error) {
	list, err := e.store.ListCandidates(ctx, models.CandidateFilter{Limit: -1, IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	m := make(map[int64]string, len(list))
	for _, c := range list {
		m[c.ID] = c.Name
	}
	return m, nil
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	return cw.Error()
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func score(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func timestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
