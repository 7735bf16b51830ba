// Package logging builds the process logger and persists error records.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

// New returns a JSON or text slog logger writing to w at the given level.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps debug, info, warn and error to slog levels. Unknown values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ErrorLogHandler forwards every record to next and additionally stores
// records at or above Error in the error_logs table.
type ErrorLogHandler struct {
	next  slog.Handler
	repo  repository.ErrorLogRepo
	attrs []slog.Attr // keys already carry the group open when they were added
	group string
}

func NewErrorLogHandler(next slog.Handler, repo repository.ErrorLogRepo) *ErrorLogHandler {
	return &ErrorLogHandler{next: next, repo: repo}
}

// WithErrorLog wraps the handler of logger so error records are persisted.
func WithErrorLog(logger *slog.Logger, repo repository.ErrorLogRepo) *slog.Logger {
	return slog.New(NewErrorLogHandler(logger.Handler(), repo))
}

func (h *ErrorLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ErrorLogHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)
	if r.Level < slog.LevelError || h.repo == nil {
		return err
	}

	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = fieldValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = fieldValue(a.Value)
		return true
	})
	b, mErr := json.Marshal(fields)
	if mErr != nil {
		b = []byte("{}")
	}

	// the request context may already be canceled when the failure is logged
	if _, cErr := h.repo.CreateErrorLog(context.WithoutCancel(ctx), &models.ErrorLog{
		Level:   r.Level.String(),
		Message: r.Message,
		Context: string(b),
		Created: r.Time.UTC().UnixMilli(),
	}); cErr != nil && err == nil {
		err = cErr
	}
	return err
}

func fieldValue(v slog.Value) any {
	a := v.Resolve().Any()
	if e, ok := a.(error); ok {
		return e.Error()
	}
	return a
}

func (h *ErrorLogHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *ErrorLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	c.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &c
}

func (h *ErrorLogHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.next = h.next.WithGroup(name)
	if c.group == "" {
		c.group = name
	} else {
		c.group = c.group + "." + name
	}
	return &c
}
