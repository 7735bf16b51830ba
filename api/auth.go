package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garnizeh/trailblazers/internal/accounts"
	"github.com/garnizeh/trailblazers/pkg/models"
	"github.com/garnizeh/trailblazers/pkg/repository"
)

type AuthHandler struct {
	accounts      *accounts.Service
	jury          repository.JuryRepo
	revoked       repository.TransientRepo
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(acc *accounts.Service, jury repository.JuryRepo, revoked repository.TransientRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{accounts: acc, jury: jury, revoked: revoked, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      *models.User `json:"user"`
}

// IssueToken signs a token for u valid for d.
func IssueToken(secret string, u *models.User, d time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(d)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(u.ID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte(secret))
	return s, exp, err
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeBody(w, r, schemaSignin, &req) {
		return
	}

	u, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "credentials not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	tokenStr, exp, err := IssueToken(h.jwtSecret, u, h.tokenDuration)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, authResponse{Token: tokenStr, ExpiresAt: exp.Unix(), User: u})
}

// Signout revokes the presented token until it would have expired.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	claims, _ := r.Context().Value(ctxClaims).(*jwt.RegisteredClaims)
	if claims != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
			if err := h.revoked.SetTransient(r.Context(), revokedKey(claims.ID), strconv.FormatInt(userID(r.Context()), 10), ttl); err != nil {
				writeServiceError(w, r, err)
				return
			}
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"message": "signed out"})
}

type meResponse struct {
	User         *models.User       `json:"user"`
	JuryMember   *models.JuryMember `json:"jury_member,omitempty"`
	Capabilities []string           `json:"capabilities"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	resp := meResponse{User: u, Capabilities: []string{}}
	for _, c := range []string{models.CapManageAwards, models.CapSubmitEvaluations} {
		if u.Can(c) {
			resp.Capabilities = append(resp.Capabilities, c)
		}
	}
	j, err := h.jury.GetJuryMemberByUserID(r.Context(), u.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp.JuryMember = j
	writeSuccess(w, http.StatusOK, resp)
}
