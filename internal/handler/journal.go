package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/store"
)

type JournalHandler struct {
	journal *store.JournalStore
	logger  *slog.Logger
}

func NewJournalHandler(js *store.JournalStore, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{journal: js, logger: logger.With("component", "journal")}
}

type journalRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Mood  string `json:"mood"`
}

func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	entry, err := h.journal.Create(r.Context(), auth.MemberID(r.Context()), req.Title, req.Body, req.Mood)
	if err != nil {
		h.logger.Error("create journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.journal.ListByMember(r.Context(), auth.MemberID(r.Context()))
	if err != nil {
		h.logger.Error("list journal entries", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var req journalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := h.journal.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	// Journal entries are private to their author.
	if existing.MemberID != auth.MemberID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your entry")
		return
	}

	entry, err := h.journal.Update(r.Context(), id, req.Title, req.Body, req.Mood)
	if err != nil {
		h.logger.Error("update journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	existing, err := h.journal.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if existing.MemberID != auth.MemberID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your entry")
		return
	}

	if err := h.journal.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete journal entry", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
