package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/garnizeh/trailblazers/internal/logging"
	"github.com/garnizeh/trailblazers/internal/repository/sqlite"
	"github.com/garnizeh/trailblazers/internal/testutil"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, "info", "json").Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	logging.New(&buf, "info", "text").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %q", buf.String())
	}
}

func TestErrorLogHandler_PersistsErrors(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(testutil.NewDB(t), testutil.Logger())

	var buf bytes.Buffer
	logger := logging.WithErrorLog(logging.New(&buf, "debug", "json"), repo).With("component", "import")

	logger.Info("imported", "rows", 3)
	logger.Error("import failed", "err", errors.New("bad header"))

	if !strings.Contains(buf.String(), "imported") || !strings.Contains(buf.String(), "import failed") {
		t.Fatalf("expected both records forwarded, got %q", buf.String())
	}

	n, err := repo.CountErrorLogsSince(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountErrorLogsSince error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one persisted error, got %d", n)
	}

	logs, _ := repo.ListErrorLogs(ctx, 10)
	if logs[0].Message != "import failed" {
		t.Fatalf("unexpected message %q", logs[0].Message)
	}
	if !strings.Contains(logs[0].Context, `"err":"bad header"`) || !strings.Contains(logs[0].Context, `"component":"import"`) {
		t.Fatalf("unexpected context %s", logs[0].Context)
	}
}

func TestErrorLogHandler_GroupsApplyOnlyToLaterAttrs(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.New(testutil.NewDB(t), testutil.Logger())

	logger := logging.WithErrorLog(logging.New(io.Discard, "info", "json"), repo).
		With("cause", errors.New("disk full")).
		WithGroup("req").
		With("id", "r-1").
		WithGroup("db")
	logger.Error("backup failed", "table", "evaluations")

	logs, err := repo.ListErrorLogs(ctx, 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("ListErrorLogs: %v %+v", err, logs)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(logs[0].Context), &got); err != nil {
		t.Fatalf("decode context %s: %v", logs[0].Context, err)
	}
	want := map[string]any{
		"cause":        "disk full",
		"req.id":       "r-1",
		"req.db.table": "evaluations",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
}
