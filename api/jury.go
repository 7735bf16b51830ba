package api

import (
	"net/http"

	"github.com/garnizeh/trailblazers/internal/accounts"
	"github.com/garnizeh/trailblazers/internal/apperr"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

type JuryHandler struct {
	accounts *accounts.Service
	jury     repository.JuryRepo
	users    repository.UserRepo
}

func NewJuryHandler(acc *accounts.Service, jury repository.JuryRepo, users repository.UserRepo) *JuryHandler {
	return &JuryHandler{accounts: acc, jury: jury, users: users}
}

func (h *JuryHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.jury.ListJuryMembers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.JuryMember{}
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *JuryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	j, err := h.jury.GetJuryMember(r.Context(), id)
	if err == nil && j == nil {
		err = apperr.ErrNotFound
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, j)
}

func (h *JuryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var j models.JuryMember
	if !decodeBody(w, r, schemaJury, &j) {
		return
	}
	j.ID = 0
	out, err := h.accounts.SaveJury(r.Context(), userID(r.Context()), &j)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, out)
}

func (h *JuryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var j models.JuryMember
	if !decodeBody(w, r, schemaJury, &j) {
		return
	}
	j.ID = id
	out, err := h.accounts.SaveJury(r.Context(), userID(r.Context()), &j)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *JuryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.accounts.DeleteJury(r.Context(), userID(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

type linkUserRequest struct {
	UserID int64 `json:"user_id"`
}

// LinkUser links a jury_member account; user_id 0 unlinks.
func (h *JuryHandler) LinkUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req linkUserRequest
	if !decodeBody(w, r, schemaLinkUser, &req) {
		return
	}
	if err := h.accounts.LinkJuryUser(r.Context(), userID(r.Context()), id, req.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	j, err := h.jury.GetJuryMember(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, j)
}

func (h *JuryHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req accounts.NewUser
	if !decodeBody(w, r, schemaUser, &req) {
		return
	}
	u, err := h.accounts.CreateUser(r.Context(), userID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, u)
}

func (h *JuryHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.User{}
	}
	writeSuccess(w, http.StatusOK, list)
}
