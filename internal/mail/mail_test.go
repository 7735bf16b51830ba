package mail

import (
	"context"
	"encoding/json"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/trailblazers/internal/events"
	"github.com/garnizeh/trailblazers/internal/jobs"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/testutil"
	"github.com/garnizeh/trailblazers/pkg/models"
)

type queued struct {
	typ string
	msg Message
}

type fakeQueue struct{ jobs []queued }

func (q *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	q.jobs = append(q.jobs, queued{typ: typ, msg: payload.(Message)})
	return int64(len(q.jobs)), nil
}

func TestRender(t *testing.T) {
	m, err := Render(TemplateAssignment, assignmentData{
		JuryName: "Dana", AwardYear: 2025,
		Candidates: []candidateLine{{Name: "Anna", Organization: "ACME"}, {Name: "Ben"}},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if m.Subject != "New candidates assigned for evaluation" {
		t.Fatalf("unexpected subject %q", m.Subject)
	}
	for _, want := range []string{"Hello Dana,", "2 candidates have been assigned", "  - Anna (ACME)\n", "  - Ben\n"} {
		if !strings.Contains(m.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, m.Body)
		}
	}

	r, err := Render(TemplateReminder, reminderData{JuryName: "Dana", Total: 3, Completed: 2, Pending: 1, Candidates: []candidateLine{{Name: "Cem"}}})
	if err != nil || r.Subject != "Reminder: 1 evaluation pending" {
		t.Fatalf("unexpected reminder %q, %v", r.Subject, err)
	}

	if _, err := Render("missing.tmpl", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestSMTPMailer(t *testing.T) {
	var gotAddr string
	var gotTo []string
	var gotMsg string
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p", From: "mt@example.com"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		if a == nil {
			t.Errorf("expected auth when username is set")
		}
		return nil
	}

	if err := m.Send(context.Background(), Message{To: "dana@example.com", Subject: "Hi", Body: "a\nb"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp.example.com:2525" || len(gotTo) != 1 || gotTo[0] != "dana@example.com" {
		t.Fatalf("unexpected envelope %s %v", gotAddr, gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Hi\r\n") || !strings.HasSuffix(gotMsg, "\r\n\r\na\r\nb") {
		t.Fatalf("unexpected message %q", gotMsg)
	}

	if err := m.Send(context.Background(), Message{To: "x@example.com\r\nBcc: evil@example.com"}); err == nil {
		t.Fatalf("expected header injection to be rejected")
	}
}

func TestCompose(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	b := string(compose("a@example.com", Message{To: "b@example.com", Subject: "S", Body: "x"}, now))
	if !strings.HasPrefix(b, "From: a@example.com\r\nTo: b@example.com\r\n") || !strings.Contains(b, "Date: Thu, 01 May 2025 09:00:00 +0000") {
		t.Fatalf("unexpected message %q", b)
	}
}

type recordingMailer struct{ sent []Message }

func (r *recordingMailer) Send(ctx context.Context, m Message) error {
	r.sent = append(r.sent, m)
	return nil
}

func TestSendHandler(t *testing.T) {
	rec := &recordingMailer{}
	h := SendHandler(rec)

	payload, _ := json.Marshal(Message{To: "a@example.com", Subject: "S", Body: "B"})
	if err := h(context.Background(), &jobs.Job{Type: jobs.TypeEmailSend, Payload: payload}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(rec.sent) != 1 || rec.sent[0].To != "a@example.com" {
		t.Fatalf("unexpected sent %+v", rec.sent)
	}

	bad, _ := json.Marshal(Message{Subject: "no recipient"})
	err := h(context.Background(), &jobs.Job{Type: jobs.TypeEmailSend, Payload: bad})
	if !jobs.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if err := h(context.Background(), &jobs.Job{Payload: []byte("{")}); !jobs.IsPermanent(err) {
		t.Fatalf("expected permanent decode error, got %v", err)
	}
}

func TestListenersAndReminders(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(testutil.NewDB(t), testutil.Logger())
	q := &fakeQueue{}
	svc := NewService(repo, q, Options{AdminAddress: "admin@example.com", AwardYear: 2025}, testutil.Logger())
	bus := events.NewBus(testutil.Logger())
	svc.Register(bus)

	dana, _ := repo.CreateJuryMember(ctx, &models.JuryMember{Name: "Dana", Email: "dana@example.com"})
	noMail, _ := repo.CreateJuryMember(ctx, &models.JuryMember{Name: "Eve"})
	a, _ := repo.CreateCandidate(ctx, &models.Candidate{Name: "Anna", Slug: "anna", Organization: "ACME"})
	b, _ := repo.CreateCandidate(ctx, &models.Candidate{Name: "Ben", Slug: "ben"})
	for _, p := range [][2]int64{{dana, a}, {dana, b}, {noMail, a}} {
		if _, _, err := repo.CreateAssignment(ctx, &models.Assignment{JuryMemberID: p[0], CandidateID: p[1]}); err != nil {
			t.Fatal(err)
		}
	}

	bus.Publish(ctx, events.Event{Name: events.AssignmentCreated, Payload: events.AssignmentPayload{JuryMemberID: dana, CandidateIDs: []int64{a, b}}})
	bus.Publish(ctx, events.Event{Name: events.AssignmentCreated, Payload: events.AssignmentPayload{JuryMemberID: noMail, CandidateIDs: []int64{a}}})
	if len(q.jobs) != 1 || q.jobs[0].typ != jobs.TypeEmailSend || q.jobs[0].msg.To != "dana@example.com" {
		t.Fatalf("expected one assignment mail for dana, got %+v", q.jobs)
	}

	score := 8
	evalID, _ := repo.UpsertEvaluation(ctx, &models.Evaluation{
		JuryMemberID: dana, CandidateID: a, Status: models.EvaluationCompleted, TotalScore: 8,
		Scores: models.Scores{Courage: &score, Innovation: &score, Implementation: &score, Relevance: &score, Visibility: &score},
	})
	bus.Publish(ctx, events.Event{Name: events.EvaluationSubmitted, Payload: events.EvaluationPayload{EvaluationID: evalID, JuryMemberID: dana, CandidateID: a, TotalScore: 8}})
	if len(q.jobs) != 2 || q.jobs[1].msg.To != "admin@example.com" || q.jobs[1].msg.Subject != "Evaluation submitted: Anna" {
		t.Fatalf("expected admin notice, got %+v", q.jobs)
	}

	res, err := svc.SendReminders(ctx)
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if res.Queued != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected reminder result %+v", res)
	}
	last := q.jobs[len(q.jobs)-1].msg
	if last.To != "dana@example.com" || !strings.Contains(last.Body, "completed 1 of 2") || !strings.Contains(last.Body, "  - Ben") || strings.Contains(last.Body, "Anna") {
		t.Fatalf("unexpected reminder %+v", last)
	}
}
