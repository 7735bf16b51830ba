package assignment_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/garnizeh/trailblazers/internal/assignment"
)

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func spread(pairs []assignment.Pair, candidates []int64) (int, int) {
	counts := make(map[int64]int)
	for _, p := range pairs {
		counts[p.CandidateID]++
	}
	lo, hi := -1, 0
	for _, c := range candidates {
		n := counts[c]
		if lo == -1 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return lo, hi
}

func TestBalanced_SpreadWithinOne(t *testing.T) {
	cases := []struct{ jury, candidates, k int }{
		{3, 9, 3},
		{3, 10, 3},
		{7, 49, 10},
		{5, 12, 2},
		{12, 490, 40},
	}
	for _, tc := range cases {
		candidates := ids(tc.candidates)
		pairs, err := assignment.Balanced(ids(tc.jury), candidates, tc.k, nil, nil)
		if err != nil {
			t.Fatalf("Balanced(%+v) error: %v", tc, err)
		}
		if len(pairs) != tc.jury*tc.k {
			t.Fatalf("Balanced(%+v) produced %d pairs, want %d", tc, len(pairs), tc.jury*tc.k)
		}
		if lo, hi := spread(pairs, candidates); hi-lo > 1 {
			t.Fatalf("Balanced(%+v) spread %d..%d exceeds 1", tc, lo, hi)
		}
	}
}

func TestBalanced_TiesKeepInputOrder(t *testing.T) {
	pairs, err := assignment.Balanced([]int64{10, 20}, []int64{3, 1, 2}, 2, nil, nil)
	if err != nil {
		t.Fatalf("Balanced error: %v", err)
	}
	want := []assignment.Pair{
		{JuryMemberID: 10, CandidateID: 3},
		{JuryMemberID: 10, CandidateID: 1},
		{JuryMemberID: 20, CandidateID: 2},
		{JuryMemberID: 20, CandidateID: 3},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestBalanced_SeedsCountsAndSkipsExisting(t *testing.T) {
	counts := map[int64]int{1: 2, 2: 0, 3: 1}
	existing := assignment.Existing{{JuryMemberID: 5, CandidateID: 2}: {}}

	pairs, err := assignment.Balanced([]int64{5}, []int64{1, 2, 3}, 2, counts, existing)
	if err != nil {
		t.Fatalf("Balanced error: %v", err)
	}
	want := []assignment.Pair{
		{JuryMemberID: 5, CandidateID: 3},
		{JuryMemberID: 5, CandidateID: 1},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}
	if counts[3] != 1 {
		t.Fatalf("input counts were modified")
	}
}

func TestBalanced_MoreSlotsThanCandidates(t *testing.T) {
	pairs, err := assignment.Balanced([]int64{1}, []int64{1, 2}, 5, nil, nil)
	if err != nil {
		t.Fatalf("Balanced error: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected every candidate once, got %d pairs", len(pairs))
	}
}

func TestDistribution_EmptyInputs(t *testing.T) {
	_, err := assignment.Balanced(nil, nil, 3, nil, nil)
	if !errors.Is(err, assignment.ErrNoJuryMembers) || !errors.Is(err, assignment.ErrNoCandidates) {
		t.Fatalf("expected both validation errors, got %v", err)
	}
	_, err = assignment.Random([]int64{1}, nil, 3, nil, nil)
	if !errors.Is(err, assignment.ErrNoCandidates) || errors.Is(err, assignment.ErrNoJuryMembers) {
		t.Fatalf("expected only ErrNoCandidates, got %v", err)
	}
}

func TestRandom_DistinctPerJuryAndDeterministic(t *testing.T) {
	jury, candidates := ids(4), ids(20)
	existing := assignment.Existing{{JuryMemberID: 1, CandidateID: 1}: {}}

	a, err := assignment.Random(jury, candidates, 5, existing, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Random error: %v", err)
	}
	b, _ := assignment.Random(jury, candidates, 5, existing, rand.New(rand.NewPCG(1, 2)))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different pairs:\n%s", diff)
	}

	if len(a) != 20 {
		t.Fatalf("expected 20 pairs, got %d", len(a))
	}
	seen := make(map[assignment.Pair]bool)
	for _, p := range a {
		if seen[p] {
			t.Fatalf("duplicate pair %+v", p)
		}
		if p.JuryMemberID == 1 && p.CandidateID == 1 {
			t.Fatalf("existing pair proposed again")
		}
		seen[p] = true
	}
}
