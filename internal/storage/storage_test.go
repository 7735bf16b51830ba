package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/garnizeh/trailblazers/internal/storage"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	key := storage.PhotoKey("anna-schmidt", "Anna_Schmidt.WEBP")
	if !strings.HasPrefix(key, "candidates/anna-schmidt-") || !strings.HasSuffix(key, ".webp") {
		t.Fatalf("unexpected key %q", key)
	}

	if err := s.Put(ctx, key, strings.NewReader("RIFF"), 4, storage.ContentType(key)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "RIFF" {
		t.Fatalf("unexpected content %q", b)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Open(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing key should succeed, got %v", err)
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s, _ := storage.NewLocalStore(t.TempDir())
	for _, key := range []string{"", "../etc/passwd", "/abs"} {
		if err := s.Put(context.Background(), key, strings.NewReader("x"), 1, ""); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{"a.webp": "image/webp", "a.JPG": "image/jpeg", "a.png": "image/png", "a.bin": "application/octet-stream"}
	for in, want := range cases {
		if got := storage.ContentType(in); got != want {
			t.Fatalf("ContentType(%q) = %q, want %q", in, got, want)
		}
	}
}
