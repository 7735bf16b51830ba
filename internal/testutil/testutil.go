// Package testutil opens migrated in-memory databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	rootdb "github.com/garnizeh/trailblazers/db"
	"github.com/garnizeh/trailblazers/internal/db"
)

var seq atomic.Int64

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewDB opens a private shared-cache in-memory database, applies all
// migrations and seeds, and closes it when the test ends.
func NewDB(t testing.TB) *db.DB {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	d, err := db.New(ctx, dsn, Logger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := db.Migrate(ctx, d, rootdb.Migrations, rootdb.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}
