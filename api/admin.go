package api

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/trailblazers/internal/diagnostics"
	"github.com/garnizeh/trailblazers/internal/export"
	"github.com/garnizeh/trailblazers/internal/importer"
	"github.com/garnizeh/trailblazers/internal/mail"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

const maxImportBytes = 10 << 20

type AdminHandler struct {
	importer    *importer.Service
	exporter    *export.Exporter
	mail        *mail.Service
	diagnostics *diagnostics.Service
	audit       repository.AuditRepo
	awardYear   int
}

func NewAdminHandler(imp *importer.Service, exp *export.Exporter, m *mail.Service, diag *diagnostics.Service, audit repository.AuditRepo, awardYear int) *AdminHandler {
	return &AdminHandler{importer: imp, exporter: exp, mail: m, diagnostics: diag, audit: audit, awardYear: awardYear}
}

// Import accepts a multipart "file" (.xlsx or .csv) with optional
// dry_run, update_existing and award_year form values.
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer f.Close()

	format, err := importer.FormatOf(fh.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := importer.ReadRows(f, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read "+filepath.Base(fh.Filename), err.Error())
		return
	}

	opts := importer.Options{
		DryRun:         formBool(r, "dry_run"),
		UpdateExisting: formBool(r, "update_existing"),
		AwardYear:      h.awardYear,
		Phase:          r.FormValue("phase"),
	}
	if y, err := strconv.Atoi(r.FormValue("award_year")); err == nil && y > 0 {
		opts.AwardYear = y
	}
	res, err := h.importer.Import(r.Context(), rows, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func formBool(r *http.Request, name string) bool {
	switch r.FormValue(name) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Export streams {kind} as a CSV download.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	var buf bytes.Buffer
	if err := h.exporter.Write(r.Context(), kind, &buf); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(kind, time.Now())+`"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *AdminHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	res, err := h.mail.SendReminders(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *AdminHandler) Notices(w http.ResponseWriter, r *http.Request) {
	n, err := h.diagnostics.Notices(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if n == nil {
		n = []diagnostics.Check{}
	}
	writeSuccess(w, http.StatusOK, n)
}

// Diagnostic returns the cached health report; ?refresh=1 forces a new run.
func (h *AdminHandler) Diagnostic(w http.ResponseWriter, r *http.Request) {
	rep, err := h.diagnostics.Report(r.Context(), queryBool(r, "refresh"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, rep)
}

// AuditLog lists recent audit entries, optionally for one ?object_type=.
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audit.ListAuditLogs(r.Context(), r.URL.Query().Get("object_type"), queryInt(r, "limit", 100))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, logs)
}
