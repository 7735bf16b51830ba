package evaluation_test

import (
	"testing"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/evaluation"
	"github.com/garnizeh/trailblazers/pkg/models"
)

func ip(v int) *int { return &v }

func full(v int) models.Scores {
	return models.Scores{Courage: ip(v), Innovation: ip(v), Implementation: ip(v), Relevance: ip(v), Visibility: ip(v)}
}

func TestValidateScores(t *testing.T) {
	cases := []struct {
		name     string
		scores   models.Scores
		complete bool
		problems int
	}{
		{"full submission", full(7), true, 0},
		{"bounds", models.Scores{Courage: ip(0), Innovation: ip(10), Implementation: ip(5), Relevance: ip(5), Visibility: ip(5)}, true, 0},
		{"partial draft", models.Scores{Courage: ip(3)}, false, 0},
		{"empty draft", models.Scores{}, false, 0},
		{"partial submission", models.Scores{Courage: ip(3)}, true, 4},
		{"above range", models.Scores{Courage: ip(11)}, false, 1},
		{"below range", models.Scores{Visibility: ip(-1)}, false, 1},
		{"submission out of range", func() models.Scores { s := full(5); s.Relevance = ip(12); return s }(), true, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := evaluation.ValidateScores(tc.scores, tc.complete)
			if got := len(apperr.Problems(err)); got != tc.problems {
				t.Fatalf("expected %d problems, got %d (%v)", tc.problems, got, err)
			}
		})
	}
}

func TestTotal(t *testing.T) {
	s := models.Scores{Courage: ip(7), Innovation: ip(8), Implementation: ip(9), Relevance: ip(6), Visibility: ip(5)}
	if got := evaluation.Total(s); got != 7 {
		t.Fatalf("Total = %v, want 7", got)
	}
	if got := evaluation.Total(models.Scores{Courage: ip(1), Innovation: ip(2), Relevance: ip(2)}); got != 1.67 {
		t.Fatalf("Total = %v, want 1.67", got)
	}
	if got := evaluation.Total(models.Scores{}); got != 0 {
		t.Fatalf("Total of empty scores = %v", got)
	}
	if evaluation.Complete(models.Scores{Courage: ip(1)}) || !evaluation.Complete(full(1)) {
		t.Fatalf("Complete reported wrong state")
	}
}
