package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/leaderboard"
)

const defaultBoardSize = 10

type LeaderboardHandler struct {
	boards *leaderboard.Aggregator
	logger *slog.Logger
}

func NewLeaderboardHandler(boards *leaderboard.Aggregator, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{boards: boards, logger: logger.With("component", "leaderboard")}
}

// FamilyMembers returns the caller's family board ranked by lifetime stars.
func (h *LeaderboardHandler) FamilyMembers(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	if familyID == 0 {
		writeError(w, http.StatusNotFound, "not in a family")
		return
	}

	selfID := auth.MemberID(r.Context())
	board, err := h.boards.FamilyMembers(r.Context(), familyID, boardSize(r), &selfID)
	if err != nil {
		h.logger.Error("family leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Families returns the cross-family board for the requested period.
func (h *LeaderboardHandler) Families(w http.ResponseWriter, r *http.Request) {
	period := leaderboard.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = leaderboard.PeriodTotal
	}

	var selfID *int64
	if familyID := auth.FamilyID(r.Context()); familyID != 0 {
		selfID = &familyID
	}

	board, err := h.boards.Families(r.Context(), period, boardSize(r), selfID)
	if err != nil {
		if errors.Is(err, leaderboard.ErrUnknownPeriod) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("families leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func boardSize(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > 100 {
		return defaultBoardSize
	}
	return n
}
