// Package storage keeps candidate photos on the local filesystem or in a
// MinIO/S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open for unknown keys.
var ErrNotFound = errors.New("object not found")

// PhotoStore stores opaque objects by key.
type PhotoStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// PhotoKey builds a unique object key for a candidate photo, keeping the
// extension of the source file name.
func PhotoKey(slug, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".webp"
	}
	return fmt.Sprintf("candidates/%s-%s%s", slug, uuid.NewString()[:8], ext)
}

// ContentType guesses the MIME type from the key extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".webp":
		return "image/webp"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}

func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
