package api

import (
	"net/http"

	"github.com/garnizeh/trailblazers/internal/evaluation"
	"github.com/garnizeh/trailblazers/pkg/models"
)

type EvaluationsHandler struct {
	svc *evaluation.Service
}

func NewEvaluationsHandler(svc *evaluation.Service) *EvaluationsHandler {
	return &EvaluationsHandler{svc: svc}
}

// Save handles mt_save_evaluation for drafts and submissions.
func (h *EvaluationsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req evaluation.SaveRequest
	if !decodeBody(w, r, schemaEvaluation, &req) {
		return
	}
	e, err := h.svc.Save(r.Context(), UserFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, e)
}

// Get returns the caller's evaluation of {candidate_id}. Administrators may
// read another jury member's with ?jury_member_id=.
func (h *EvaluationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cid, err := pathID(r, "candidate_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.svc.Get(r.Context(), UserFromContext(r.Context()), int64(queryInt(r, "jury_member_id", 0)), cid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, e)
}

// Dashboard handles mt_get_jury_dashboard_data.
func (h *EvaluationsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.JuryDashboard(r.Context(), UserFromContext(r.Context()), int64(queryInt(r, "jury_member_id", 0)))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, d)
}

func (h *EvaluationsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), models.EvaluationFilter{
		JuryMemberID: int64(queryInt(r, "jury_member_id", 0)),
		CandidateID:  int64(queryInt(r, "candidate_id", 0)),
		Status:       r.URL.Query().Get("status"),
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Evaluation{}
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *EvaluationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Delete(r.Context(), userID(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
