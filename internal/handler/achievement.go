package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/store"
)

type AchievementHandler struct {
	achievements *store.AchievementStore
	logger       *slog.Logger
}

func NewAchievementHandler(as *store.AchievementStore, logger *slog.Logger) *AchievementHandler {
	return &AchievementHandler{achievements: as, logger: logger.With("component", "achievement")}
}

func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.achievements.List(r.Context())
	if err != nil {
		h.logger.Error("list achievements", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

type createAchievementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StarsReward int    `json:"stars_reward"`
	CoinsReward int    `json:"coins_reward"`
}

// Create defines a new achievement badge. Parent-only, enforced by
// route middleware.
func (h *AchievementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAchievementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.StarsReward < 0 || req.CoinsReward < 0 {
		writeError(w, http.StatusBadRequest, "rewards must not be negative")
		return
	}

	a, err := h.achievements.Create(r.Context(), req.Title, req.Description, req.StarsReward, req.CoinsReward)
	if err != nil {
		h.logger.Error("create achievement", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Mine lists the caller's unlocked achievements.
func (h *AchievementHandler) Mine(w http.ResponseWriter, r *http.Request) {
	unlocks, err := h.achievements.ListUnlocksByMember(r.Context(), auth.MemberID(r.Context()))
	if err != nil {
		h.logger.Error("list unlocks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, unlocks)
}
