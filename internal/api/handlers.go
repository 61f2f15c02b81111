package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/viewservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *viewservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *viewservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. Daily%2F2026-10-21.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetSelection handles GET /api/selection.
//
//	@Summary		Get the filtered selection
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Selection(r.Context()))
}

// GetAllFiles handles GET /api/selection/all.
//
//	@Summary		Get every file in scope, ignoring the time window
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection/all [get]
func (h *Handler) GetAllFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.AllFiles(r.Context()))
}

// UpdateOptions handles PATCH /api/selection/options.
//
//	@Summary		Update selection options
//	@Tags			selection
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateOptionsRequest	true	"Fields to change"
//	@Success		200		{object}	SelectionResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection/options [patch]
func (h *Handler) UpdateOptions(w http.ResponseWriter, r *http.Request) {
	var req UpdateOptionsRequest
	if !decodeJSON(w, r, optionsBodyLimit, &req) {
		return
	}
	snap, err := h.svc.UpdateOptions(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidOptions) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		} else {
			slog.Error("update options failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Refresh handles POST /api/selection/refresh.
//
//	@Summary		Re-check today's daily note and recompute the window
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Refresh(r.Context()))
}

// CheckDailyNote handles GET /api/selection/daily.
//
//	@Summary		Check whether today's daily note exists
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	DailyNoteStatus
//	@Security		BearerAuth
//	@Router			/selection/daily [get]
func (h *Handler) CheckDailyNote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DailyNoteStatus{Exists: h.svc.CheckDailyNote(r.Context())})
}

// CreateDailyNote handles POST /api/selection/daily.
//
//	@Summary		Create today's daily note
//	@Tags			selection
//	@Produce		json
//	@Success		201		{object}	models.Document
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection/daily [post]
func (h *Handler) CreateDailyNote(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.CreateDailyNote(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("daily note already exists"))
		case errors.Is(err, apperr.ErrNotDailyMode):
			writeJSON(w, http.StatusConflict, errorBody("selection is not in daily mode"))
		default:
			slog.Error("create daily note failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, noteBodyLimit, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("note already exists"))
		} else {
			slog.Error("create note failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Note path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body	body		UpdateNoteRequest	true	"Updated content"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, noteBodyLimit)
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req UpdateNoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	note, err := h.svc.UpdateNote(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		default:
			slog.Error("update note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
