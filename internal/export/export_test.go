package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/trailblazers/internal/export"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/testutil"
	"github.com/garnizeh/trailblazers/pkg/models"
)

func intp(v int) *int { return &v }

func TestExports(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(testutil.NewDB(t), testutil.Logger())
	ex := export.New(repo)

	cid, _ := repo.CreateCandidate(ctx, &models.Candidate{Name: "Müller, Anna", Slug: "anna-mueller", Category: "established-companies", AwardYear: 2025})
	jid, _ := repo.CreateJuryMember(ctx, &models.JuryMember{Name: "Judge", Email: "judge@example.com"})
	if _, err := repo.UpsertEvaluation(ctx, &models.Evaluation{
		JuryMemberID: jid, CandidateID: cid, Status: models.EvaluationDraft,
		Scores:   models.Scores{Courage: intp(8), Innovation: intp(7)},
		Comments: "line one\nline two", TotalScore: 7.5,
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := repo.CreateVote(ctx, &models.Vote{CandidateID: cid, VoterEmail: "secret@example.com"}); err != nil {
		t.Fatal(err)
	}

	read := func(kind string) [][]string {
		t.Helper()
		var buf bytes.Buffer
		if err := ex.Write(ctx, kind, &buf); err != nil {
			t.Fatalf("export %s: %v", kind, err)
		}
		if kind == export.KindVotes && strings.Contains(buf.String(), "secret@example.com") {
			t.Fatalf("vote export leaks voter e-mail")
		}
		rows, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("parse %s csv: %v", kind, err)
		}
		return rows
	}

	cands := read(export.KindCandidates)
	if len(cands) != 2 || cands[1][1] != "Müller, Anna" || cands[1][6] != "established-companies" || cands[1][9] != "2025" {
		t.Fatalf("unexpected candidates export %q", cands)
	}

	evals := read(export.KindEvaluations)
	if len(evals) != 2 {
		t.Fatalf("expected header and one evaluation, got %q", evals)
	}
	row := evals[1]
	if row[2] != "Judge" || row[4] != "Müller, Anna" || row[5] != "8" || row[7] != "" || row[10] != "7.50" || row[12] != "line one\nline two" {
		t.Fatalf("unexpected evaluation row %q", row)
	}

	votes := read(export.KindVotes)
	if len(votes) != 2 || votes[1][2] != "Müller, Anna" {
		t.Fatalf("unexpected votes export %q", votes)
	}

	if err := ex.Write(ctx, "users", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown export")
	}
}

func TestFilename(t *testing.T) {
	got := export.Filename(export.KindVotes, time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC))
	if got != "mt-votes-2025-03-09.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}
