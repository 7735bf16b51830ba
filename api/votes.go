package api

import (
	"net"
	"net/http"

	"github.com/garnizeh/trailblazers/internal/voting"
	"github.com/garnizeh/trailblazers/pkg/models"
)

type VotesHandler struct {
	svc *voting.Service
}

func NewVotesHandler(svc *voting.Service) *VotesHandler {
	return &VotesHandler{svc: svc}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Cast handles mt_submit_public_vote.
func (h *VotesHandler) Cast(w http.ResponseWriter, r *http.Request) {
	var req voting.VoteRequest
	if !decodeBody(w, r, schemaVote, &req) {
		return
	}
	req.IPAddress = clientIP(r)
	req.UserAgent = r.UserAgent()

	v, err := h.svc.CastPublicVote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"id": v.ID, "candidate_id": v.CandidateID, "message": "thank you for voting"})
}

func (h *VotesHandler) Tally(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Tally(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if t == nil {
		t = []models.VoteCount{}
	}
	writeSuccess(w, http.StatusOK, t)
}

// Rankings supports ?category=&limit=.
func (h *VotesHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Rankings(r.Context(), r.URL.Query().Get("category"), queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Ranking{}
	}
	writeSuccess(w, http.StatusOK, list)
}
