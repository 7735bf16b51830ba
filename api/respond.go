package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/trailblazers/internal/apperr"
)

const maxBodyBytes = 1 << 20

// envelope is the response shape of every JSON endpoint.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorData struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, envelope{Success: true, Data: data}, status)
}

func writeError(w http.ResponseWriter, status int, message string, problems ...string) {
	writeJSON(w, envelope{Success: false, Data: errorData{Message: message, Errors: problems}}, status)
}

// writeServiceError maps service errors to HTTP statuses. Unexpected errors
// are logged and reported without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if problems := apperr.Problems(err); problems != nil {
		writeError(w, http.StatusBadRequest, "validation failed", problems...)
		return
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody reads a JSON body, validates it against the named schema and
// decodes it into v. It writes the error response itself and reports whether
// the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, schema string, v any) bool {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if problems, err := validateBody(r.Context(), schema, b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	} else if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "validation failed", problems...)
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeError(w, http.StatusBadRequest, "validation failed", typeProblem(typeErr))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// typeProblem describes a value the schema let through but the target field
// cannot hold, such as 7.5 or 10.0 for an integer score.
func typeProblem(err *json.UnmarshalTypeError) string {
	switch err.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%s must be a whole number written without a fraction", err.Field)
	default:
		return fmt.Sprintf("%s has the wrong type", err.Field)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryInt returns the integer query parameter or def when absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
