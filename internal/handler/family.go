package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/goal"
	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/store"
)

type FamilyHandler struct {
	families *store.FamilyStore
	members  *store.MemberStore
	engine   *goal.Engine
	tokens   *auth.TokenIssuer
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, ms *store.MemberStore, engine *goal.Engine, tokens *auth.TokenIssuer, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{
		families: fs,
		members:  ms,
		engine:   engine,
		tokens:   tokens,
		logger:   logger.With("component", "family"),
	}
}

type familyResponse struct {
	Family  *model.Family  `json:"family"`
	Members []model.Member `json:"members"`
	// Token carries the new family claim after create/join/leave.
	Token string `json:"token,omitempty"`
}

type createFamilyRequest struct {
	Name string `json:"name"`
}

// Create makes a new family with the caller as its first member.
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "family name is required")
		return
	}

	m, err := h.members.GetByID(r.Context(), auth.MemberID(r.Context()))
	if err != nil || m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if m.FamilyID != nil {
		writeError(w, http.StatusConflict, "already in a family")
		return
	}

	f, err := h.families.Create(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.joinFamily(w, r, m, f.ID); err != nil {
		return
	}
	h.respondWithFamily(w, r, http.StatusCreated, f.ID, m)
}

// Join adds the caller to an existing family.
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	familyID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid family id")
		return
	}

	m, err := h.members.GetByID(r.Context(), auth.MemberID(r.Context()))
	if err != nil || m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if m.FamilyID != nil {
		writeError(w, http.StatusConflict, "already in a family")
		return
	}

	f, err := h.families.GetByID(r.Context(), familyID)
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}

	if err := h.joinFamily(w, r, m, familyID); err != nil {
		return
	}
	h.respondWithFamily(w, r, http.StatusOK, familyID, m)
}

// Leave removes the caller from their family and reranks the rest.
func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	m, err := h.members.GetByID(r.Context(), auth.MemberID(r.Context()))
	if err != nil || m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if m.FamilyID == nil {
		writeError(w, http.StatusConflict, "not in a family")
		return
	}
	familyID := *m.FamilyID

	m.FamilyID = nil
	m.RankInFamily = 1
	if err := h.members.Save(r.Context(), m); err != nil {
		h.logger.Error("save member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.engine.RerankFamily(r.Context(), familyID); err != nil {
		h.logger.Error("rerank after leave", "family_id", familyID, "error", err)
	}

	token, err := h.tokens.Issue(m.ID, 0, m.Role)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member": m, "token": token})
}

// Get returns the caller's family with its members.
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	if familyID == 0 {
		writeError(w, http.StatusNotFound, "not in a family")
		return
	}
	h.respondWithFamily(w, r, http.StatusOK, familyID, nil)
}

func (h *FamilyHandler) joinFamily(w http.ResponseWriter, r *http.Request, m *model.Member, familyID int64) error {
	m.FamilyID = &familyID
	if err := h.members.Save(r.Context(), m); err != nil {
		h.logger.Error("save member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return err
	}
	if err := h.engine.RerankFamily(r.Context(), familyID); err != nil {
		h.logger.Error("rerank after join", "family_id", familyID, "error", err)
	}
	return nil
}

func (h *FamilyHandler) respondWithFamily(w http.ResponseWriter, r *http.Request, status int, familyID int64, m *model.Member) {
	f, err := h.families.GetByID(r.Context(), familyID)
	if err != nil || f == nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	members, err := h.members.ListByFamily(r.Context(), familyID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := familyResponse{Family: f, Members: members}
	if m != nil {
		token, err := h.tokens.Issue(m.ID, familyID, m.Role)
		if err != nil {
			h.logger.Error("issue token", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Token = token
	}
	writeJSON(w, status, resp)
}
