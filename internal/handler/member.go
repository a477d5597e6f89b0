package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/store"
)

type MemberHandler struct {
	members *store.MemberStore
	logger  *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: ms, logger: logger.With("component", "member")}
}

// Me returns the authenticated member's profile.
func (h *MemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	m, err := h.members.GetByID(r.Context(), auth.MemberID(r.Context()))
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	m, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	// Profiles are visible inside the same family only.
	if m.FamilyID == nil || *m.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not in your family")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type updateMemberRequest struct {
	Name        *string `json:"name"`
	AvatarEmoji *string `json:"avatar_emoji"`
}

// Update changes the authenticated member's own profile fields.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.members.GetByID(r.Context(), auth.MemberID(r.Context()))
	if err != nil || m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		m.Name = name
	}
	if req.AvatarEmoji != nil {
		m.AvatarEmoji = *req.AvatarEmoji
	}

	if err := h.members.Save(r.Context(), m); err != nil {
		h.logger.Error("save member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, m)
}
