package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/store"
)

type AuthHandler struct {
	members *store.MemberStore
	tokens  *auth.TokenIssuer
	logger  *slog.Logger
}

func NewAuthHandler(ms *store.MemberStore, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		members: ms,
		tokens:  tokens,
		logger:  logger.With("component", "auth"),
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token  string        `json:"token"`
	Member *model.Member `json:"member"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.Role != model.RoleParent && req.Role != model.RoleChild {
		writeError(w, http.StatusBadRequest, "role must be parent or child")
		return
	}

	exists, err := h.members.EmailExists(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("check email", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	m, err := h.members.Create(r.Context(), req.Name, req.Email, string(hash), req.Role)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.tokens.Issue(m.ID, 0, m.Role)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, Member: m})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	m, hash, err := h.members.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Same response for unknown email and wrong password.
	if m == nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	var familyID int64
	if m.FamilyID != nil {
		familyID = *m.FamilyID
	}
	token, err := h.tokens.Issue(m.ID, familyID, m.Role)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, Member: m})
}
