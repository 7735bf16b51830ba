package importer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/garnizeh/trailblazers/internal/storage"
	"github.com/garnizeh/trailblazers/pkg/models"
)

// Photo match methods.
const (
	MatchExact   = "exact"
	MatchSurname = "surname"
	MatchFuzzy   = "fuzzy"
)

type PhotoOptions struct {
	DryRun bool
	// Overwrite replaces photos of candidates that already have one.
	Overwrite bool
}

type PhotoMatch struct {
	File        string  `json:"file"`
	CandidateID int64   `json:"candidate_id"`
	Candidate   string  `json:"candidate"`
	Method      string  `json:"method"`
	Score       float64 `json:"score"`
	Key         string  `json:"key,omitempty"`
}

type PhotoResult struct {
	Files     int          `json:"files"`
	Matched   []PhotoMatch `json:"matched"`
	Unmatched []string     `json:"unmatched"`
	Uploaded  int          `json:"uploaded"`
	Skipped   int          `json:"skipped"`
	DryRun    bool         `json:"dry_run"`
	Errors    []string     `json:"errors"`
}

// MatchPhotos matches every .webp file in dir to a live candidate and, unless
// DryRun is set, uploads it to store and records the key on the candidate.
func (s *Service) MatchPhotos(ctx context.Context, dir string, store storage.PhotoStore, opts PhotoOptions) (*PhotoResult, error) {
	files, err := photoFiles(dir)
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.ListCandidates(ctx, models.CandidateFilter{Limit: -1})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	res := &PhotoResult{Files: len(files), DryRun: opts.DryRun, Matched: []PhotoMatch{}, Unmatched: []string{}, Errors: []string{}}
	for _, name := range files {
		c, method, score := MatchCandidate(strings.TrimSuffix(name, filepath.Ext(name)), candidates)
		if c == nil {
			res.Unmatched = append(res.Unmatched, name)
			continue
		}
		m := PhotoMatch{File: name, CandidateID: c.ID, Candidate: c.Name, Method: method, Score: score}
		if c.PhotoKey != "" && !opts.Overwrite {
			res.Skipped++
			res.Matched = append(res.Matched, m)
			continue
		}
		if !opts.DryRun {
			key, err := s.upload(ctx, store, c, filepath.Join(dir, name))
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			m.Key = key
			res.Uploaded++
		}
		res.Matched = append(res.Matched, m)
	}

	s.logger.Info("photo matching finished",
		"files", res.Files, "matched", len(res.Matched), "unmatched", len(res.Unmatched),
		"uploaded", res.Uploaded, "dry_run", opts.DryRun)
	return res, nil
}

func (s *Service) upload(ctx context.Context, store storage.PhotoStore, c *models.Candidate, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := storage.PhotoKey(c.Slug, path)
	if err := store.Put(ctx, key, f, info.Size(), storage.ContentType(key)); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	if err := s.store.SetCandidatePhoto(ctx, c.ID, key); err != nil {
		_ = store.Delete(ctx, key)
		return "", fmt.Errorf("set candidate photo: %w", err)
	}
	if c.PhotoKey != "" && c.PhotoKey != key {
		if err := store.Delete(ctx, c.PhotoKey); err != nil {
			s.logger.Warn("remove previous photo", "candidate_id", c.ID, "key", c.PhotoKey, "err", err)
		}
	}
	return key, nil
}

func photoFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read photo dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type()&fs.ModeType != 0 {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".webp") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// MatchCandidate finds the candidate a photo file name (without extension)
// belongs to. It tries the slug first, then a unique surname contained in
// the file name, then the most similar slug scoring at least MinSimilarity.
func MatchCandidate(base string, candidates []models.Candidate) (*models.Candidate, string, float64) {
	slug := Slugify(base)
	if slug == "" {
		return nil, "", 0
	}
	for i := range candidates {
		if candidates[i].Slug == slug || Slugify(candidates[i].Name) == slug {
			return &candidates[i], MatchExact, 1
		}
	}

	var hit *models.Candidate
	hits := 0
	for i := range candidates {
		surname := lastWord(candidates[i].Name)
		if len(surname) < 3 {
			continue
		}
		if strings.Contains("-"+slug+"-", "-"+surname+"-") {
			hit = &candidates[i]
			hits++
		}
	}
	if hits == 1 {
		return hit, MatchSurname, 1
	}

	var best *models.Candidate
	bestScore := 0.0
	for i := range candidates {
		if s := Similarity(slug, Slugify(candidates[i].Name)); s > bestScore {
			best, bestScore = &candidates[i], s
		}
	}
	if bestScore >= MinSimilarity {
		return best, MatchFuzzy, bestScore
	}
	return nil, "", bestScore
}

func lastWord(name string) string {
	parts := strings.Split(Slugify(name), "-")
	return parts[len(parts)-1]
}
