// Package events is the in-process hook bus other packages publish domain events on.
package events

import (
	"context"
	"log/slog"
	"sync"
)

const (
	AssignmentCreated   = "mt_assignment_created"
	AssignmentRemoved   = "mt_assignment_removed"
	EvaluationSubmitted = "mt_evaluation_submitted"
	VoteCast            = "mt_vote_cast"
	CandidateImported   = "mt_candidate_imported"
	CandidateSaved      = "mt_candidate_saved"
)

// Event is a named occurrence with a free-form payload.
type Event struct {
	Name    string
	UserID  int64
	Payload any
}

// AssignmentPayload accompanies assignment events. One event is published per
// jury member and operation, listing the affected candidates.
type AssignmentPayload struct {
	JuryMemberID int64
	CandidateIDs []int64
}

// EvaluationPayload accompanies EvaluationSubmitted.
type EvaluationPayload struct {
	EvaluationID int64
	JuryMemberID int64
	CandidateID  int64
	TotalScore   float64
}

// VotePayload accompanies VoteCast.
type VotePayload struct {
	VoteID      int64
	CandidateID int64
}

// CandidatePayload accompanies CandidateImported and CandidateSaved.
type CandidatePayload struct {
	CandidateID int64
	Created     bool
}

type Listener func(ctx context.Context, e Event) error

// Bus dispatches events synchronously in registration order. Listener errors
// are logged and never reach the publisher.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{listeners: make(map[string][]Listener), logger: logger}
}

// On registers l for the named event.
func (b *Bus) On(name string, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// Publish calls every listener registered for e.Name. A nil bus is a no-op.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	ls := append([]Listener(nil), b.listeners[e.Name]...)
	b.mu.RUnlock()

	for _, l := range ls {
		if err := b.call(ctx, l, e); err != nil {
			b.logger.Warn("event listener failed", "event", e.Name, "err", err)
		}
	}
}

func (b *Bus) call(ctx context.Context, l Listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panic", "event", e.Name, "panic", r)
		}
	}()
	return l(ctx, e)
}
