package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/internal/candidates"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

type CandidatesHandler struct {
	svc   *candidates.Service
	terms repository.TermRepo
}

func NewCandidatesHandler(svc *candidates.Service, terms repository.TermRepo) *CandidatesHandler {
	return &CandidatesHandler{svc: svc, terms: terms}
}

const defaultPageSize = 50

// List supports ?category=&phase=&status=&award_year=&search=&page=&per_page=.
// Administrators may add ?trashed=1 to include soft-deleted candidates.
func (h *CandidatesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perPage := queryInt(r, "per_page", defaultPageSize)
	if perPage <= 0 || perPage > 500 {
		perPage = defaultPageSize
	}
	page := max(queryInt(r, "page", 1), 1)

	f := models.CandidateFilter{
		Category:  q.Get("category"),
		Phase:     q.Get("phase"),
		Status:    q.Get("status"),
		AwardYear: queryInt(r, "award_year", 0),
		Search:    q.Get("search"),
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	}
	if u := UserFromContext(r.Context()); u != nil && u.Can(models.CapManageAwards) {
		f.IncludeDeleted = queryBool(r, "trashed")
	}

	p, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(p.Total, 10))
	writeSuccess(w, http.StatusOK, p)
}

func (h *CandidatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err == nil && c.DeletedAt != nil && !UserFromContext(r.Context()).Can(models.CapManageAwards) {
		err = apperr.ErrNotFound
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (h *CandidatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c models.Candidate
	if !decodeBody(w, r, schemaCandidate, &c) {
		return
	}
	c.ID = 0
	out, err := h.svc.Save(r.Context(), userID(r.Context()), &c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, out)
}

func (h *CandidatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var c models.Candidate
	if !decodeBody(w, r, schemaCandidate, &c) {
		return
	}
	c.ID = id
	out, err := h.svc.Save(r.Context(), userID(r.Context()), &c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

// Delete moves the candidate to the trash, or removes it for good with ?force=1.
func (h *CandidatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	force := queryBool(r, "force")
	if err := h.svc.Delete(r.Context(), userID(r.Context()), id, force); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true, "force": force})
}

func (h *CandidatesHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Restore(r.Context(), userID(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "restored": true})
}

// UploadPhoto expects a multipart form with a "photo" file field.
func (h *CandidatesHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, candidates.MaxPhotoBytes+1<<16)
	if err := r.ParseMultipartForm(candidates.MaxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	f, fh, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo field is required")
		return
	}
	defer f.Close()

	key, err := h.svc.SetPhoto(r.Context(), userID(r.Context()), id, fh.Filename, f, fh.Size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "photo_key": key})
}

func (h *CandidatesHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rc, contentType, err := h.svc.Photo(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		logger.Warn("stream photo", "candidate_id", id, "err", err)
	}
}

var taxonomies = map[string]string{
	"categories":  models.TaxonomyCategory,
	"phases":      models.TaxonomyPhase,
	"statuses":    models.TaxonomyStatus,
	"award-years": models.TaxonomyAwardYear,
}

// Taxonomy lists the terms of {taxonomy}: categories, phases, statuses or award-years.
func (h *CandidatesHandler) Taxonomy(w http.ResponseWriter, r *http.Request) {
	name, ok := taxonomies[mux.Vars(r)["taxonomy"]]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown taxonomy")
		return
	}
	if name == models.TaxonomyAwardYear {
		years, err := h.terms.ListAwardYears(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, years)
		return
	}
	terms, err := h.terms.ListTerms(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, terms)
}
