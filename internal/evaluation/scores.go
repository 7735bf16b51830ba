// Package evaluation validates and stores jury evaluations.
package evaluation

import (
	"fmt"
	"math"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/pkg/models"
)

const (
	MinScore = models.MinScore
	MaxScore = models.MaxScore
)

// Criteria lists the scored criteria in display order.
var Criteria = []string{"courage", "innovation", "implementation", "relevance", "visibility"}

func fields(s *models.Scores) []*int {
	return []*int{s.Courage, s.Innovation, s.Implementation, s.Relevance, s.Visibility}
}

// ValidateScores checks range and, when complete is set, that all five
// criteria are present.
func ValidateScores(s models.Scores, complete bool) error {
	v := &apperr.ValidationError{}
	for i, f := range fields(&s) {
		switch {
		case f == nil:
			if complete {
				v.Add(fmt.Sprintf("%s score is required", Criteria[i]))
			}
		case *f < MinScore || *f > MaxScore:
			v.Add(fmt.Sprintf("%s score must be between %d and %d", Criteria[i], MinScore, MaxScore))
		}
	}
	return v.OrNil()
}

// Complete reports whether every criterion has a score.
func Complete(s models.Scores) bool {
	for _, f := range fields(&s) {
		if f == nil {
			return false
		}
	}
	return true
}

// Total is the mean of the present scores rounded to two decimals, or 0 when
// none is present.
func Total(s models.Scores) float64 {
	sum, n := 0, 0
	for _, f := range fields(&s) {
		if f != nil {
			sum += *f
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*100) / 100
}
