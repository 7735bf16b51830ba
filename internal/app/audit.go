package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

// auditEvents records public votes and imports, which have no acting
// administrator to write their own audit entries.
func auditEvents(bus *events.Bus, audit repository.AuditRepo, logger *slog.Logger) {
	write := func(ctx context.Context, action, objectType string, objectID int64, details any) error {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		_, err = audit.CreateAuditLog(ctx, &models.AuditLog{Action: action, ObjectType: objectType, ObjectID: objectID, Details: string(b)})
		return err
	}

	bus.On(events.VoteCast, func(ctx context.Context, e events.Event) error {
		p, ok := e.Payload.(events.VotePayload)
		if !ok {
			return nil
		}
		return write(ctx, "vote_cast", "vote", p.VoteID, p)
	})
	bus.On(events.CandidateImported, func(ctx context.Context, e events.Event) error {
		p, ok := e.Payload.(events.CandidatePayload)
		if !ok {
			return nil
		}
		return write(ctx, "candidate_imported", "candidate", p.CandidateID, p)
	})
	logger.Debug("audit listeners registered")
}
