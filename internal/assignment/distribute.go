// Package assignment distributes candidates across jury members and manages
// the resulting jury assignments.
package assignment

import (
	"errors"
	"math/rand/v2"
	"sort"
)

var (
	ErrNoJuryMembers = errors.New("no jury members available")
	ErrNoCandidates  = errors.New("no candidates available")
)

// Pair is a (jury member, candidate) assignment proposal.
type Pair struct {
	JuryMemberID int64
	CandidateID  int64
}

// Existing is the set of pairs that are already assigned.
type Existing map[Pair]struct{}

func (e Existing) has(j, c int64) bool {
	_, ok := e[Pair{JuryMemberID: j, CandidateID: c}]
	return ok
}

func validate(juryIDs, candidateIDs []int64) error {
	var errs []error
	if len(juryIDs) == 0 {
		errs = append(errs, ErrNoJuryMembers)
	}
	if len(candidateIDs) == 0 {
		errs = append(errs, ErrNoCandidates)
	}
	return errors.Join(errs...)
}

// Balanced gives each jury member the perJury candidates with the lowest
// running assignment count. counts seeds the running count (it is not
// modified); ties keep the order of candidateIDs. Pairs in existing are never
// proposed again.
func Balanced(juryIDs, candidateIDs []int64, perJury int, counts map[int64]int, existing Existing) ([]Pair, error) {
	if err := validate(juryIDs, candidateIDs); err != nil {
		return nil, err
	}
	if perJury <= 0 {
		return nil, nil
	}

	running := make(map[int64]int, len(candidateIDs))
	for _, c := range candidateIDs {
		running[c] = counts[c]
	}

	order := append([]int64(nil), candidateIDs...)
	var out []Pair
	for _, j := range juryIDs {
		sort.SliceStable(order, func(a, b int) bool {
			return running[order[a]] < running[order[b]]
		})

		taken := 0
		for _, c := range order {
			if taken == perJury {
				break
			}
			if existing.has(j, c) {
				continue
			}
			out = append(out, Pair{JuryMemberID: j, CandidateID: c})
			running[c]++
			taken++
		}
	}
	return out, nil
}

// Random gives each jury member perJury candidates drawn from an independent
// shuffle of candidateIDs. Pairs in existing are skipped.
func Random(juryIDs, candidateIDs []int64, perJury int, existing Existing, rng *rand.Rand) ([]Pair, error) {
	if err := validate(juryIDs, candidateIDs); err != nil {
		return nil, err
	}
	if perJury <= 0 {
		return nil, nil
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	var out []Pair
	for _, j := range juryIDs {
		shuffled := append([]int64(nil), candidateIDs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		taken := 0
		for _, c := range shuffled {
			if taken == perJury {
				break
			}
			if existing.has(j, c) {
				continue
			}
			out = append(out, Pair{JuryMemberID: j, CandidateID: c})
			taken++
		}
	}
	return out, nil
}
