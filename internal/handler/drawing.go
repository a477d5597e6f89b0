package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/media"
	"github.com/fernwood/starquest/internal/store"
)

const maxDrawingBytes = 5 << 20 // 5 MiB

type DrawingHandler struct {
	drawings *store.DrawingStore
	storage  *media.Storage
	logger   *slog.Logger
}

func NewDrawingHandler(ds *store.DrawingStore, storage *media.Storage, logger *slog.Logger) *DrawingHandler {
	return &DrawingHandler{drawings: ds, storage: storage, logger: logger.With("component", "drawing")}
}

// Upload accepts a raw image body with the title in a query parameter.
func (h *DrawingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "drawing storage not configured")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "body must be an image")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxDrawingBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty image")
		return
	}
	if len(data) > maxDrawingBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	memberID := auth.MemberID(r.Context())
	key, err := h.storage.Upload(r.Context(), memberID, contentType, data)
	if err != nil {
		h.logger.Error("upload drawing", "error", err)
		writeError(w, http.StatusBadGateway, "storage unavailable")
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		title = "Untitled"
	}
	d, err := h.drawings.Create(r.Context(), memberID, title, key, contentType, int64(len(data)))
	if err != nil {
		h.logger.Error("create drawing record", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Image streams the stored image bytes.
func (h *DrawingHandler) Image(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "drawing storage not configured")
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid drawing id")
		return
	}

	d, err := h.drawings.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get drawing", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "drawing not found")
		return
	}

	body, contentType, err := h.storage.Download(r.Context(), d.StorageKey)
	if err != nil {
		h.logger.Error("download drawing", "error", err)
		writeError(w, http.StatusBadGateway, "storage unavailable")
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = d.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	io.Copy(w, body)
}

func (h *DrawingHandler) List(w http.ResponseWriter, r *http.Request) {
	drawings, err := h.drawings.ListByMember(r.Context(), auth.MemberID(r.Context()))
	if err != nil {
		h.logger.Error("list drawings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, drawings)
}

func (h *DrawingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid drawing id")
		return
	}

	d, err := h.drawings.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get drawing", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "drawing not found")
		return
	}
	if d.MemberID != auth.MemberID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your drawing")
		return
	}

	if h.storage != nil {
		if err := h.storage.Delete(r.Context(), d.StorageKey); err != nil {
			h.logger.Error("delete stored image", "key", d.StorageKey, "error", err)
		}
	}
	if err := h.drawings.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete drawing record", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
