package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/testutil"
)

func TestBus_PublishOrderAndIsolation(t *testing.T) {
	bus := events.NewBus(testutil.Logger())
	var got []string

	bus.On(events.VoteCast, func(ctx context.Context, e events.Event) error {
		got = append(got, "first")
		return errors.New("ignored")
	})
	bus.On(events.VoteCast, func(ctx context.Context, e events.Event) error {
		panic("listener bug")
	})
	bus.On(events.VoteCast, func(ctx context.Context, e events.Event) error {
		p := e.Payload.(events.VotePayload)
		if p.CandidateID != 7 {
			t.Fatalf("unexpected payload %+v", p)
		}
		got = append(got, "third")
		return nil
	})
	bus.On(events.AssignmentCreated, func(ctx context.Context, e events.Event) error {
		t.Fatalf("unrelated listener called")
		return nil
	})

	bus.Publish(context.Background(), events.Event{Name: events.VoteCast, Payload: events.VotePayload{CandidateID: 7}})

	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Fatalf("unexpected call order %v", got)
	}
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *events.Bus
	bus.Publish(context.Background(), events.Event{Name: events.VoteCast})
}
