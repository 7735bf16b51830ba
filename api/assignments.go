package api

import (
	"net/http"

	"github.com/garnizeh/trailblazers/internal/assignment"
	"github.com/garnizeh/trailblazers/pkg/models"
)

type AssignmentsHandler struct {
	svc           *assignment.Service
	defaultMethod string
	defaultPer    int
}

// NewAssignmentsHandler uses method and perJury when auto-assign requests omit them.
func NewAssignmentsHandler(svc *assignment.Service, method string, perJury int) *AssignmentsHandler {
	return &AssignmentsHandler{svc: svc, defaultMethod: method, defaultPer: perJury}
}

// Auto handles mt_auto_assign.
func (h *AssignmentsHandler) Auto(w http.ResponseWriter, r *http.Request) {
	var opts assignment.AutoOptions
	if !decodeBody(w, r, schemaAutoAssign, &opts) {
		return
	}
	if opts.Method == "" {
		opts.Method = h.defaultMethod
	}
	if opts.PerJury == 0 {
		opts.PerJury = h.defaultPer
	}
	res, err := h.svc.AutoAssign(r.Context(), userID(r.Context()), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

type assignRequest struct {
	JuryMemberID int64   `json:"jury_member_id"`
	CandidateIDs []int64 `json:"candidate_ids"`
}

// Manual handles mt_manual_assign.
func (h *AssignmentsHandler) Manual(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decodeBody(w, r, schemaAssign, &req) {
		return
	}
	res, err := h.svc.Assign(r.Context(), userID(r.Context()), req.JuryMemberID, req.CandidateIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), models.AssignmentFilter{
		JuryMemberID: int64(queryInt(r, "jury_member_id", 0)),
		CandidateID:  int64(queryInt(r, "candidate_id", 0)),
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Assignment{}
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *AssignmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Remove(r.Context(), userID(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (h *AssignmentsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req assignment.BulkRemove
	if !decodeBody(w, r, schemaBulkRemove, &req) {
		return
	}
	n, err := h.svc.RemoveBulk(r.Context(), userID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *AssignmentsHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Distribution(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, d)
}
