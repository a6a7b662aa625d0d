package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"notegate/core/logger"
	"notegate/notes"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"log/slog"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type noteResponse struct {
	notes.Note
	Links notes.Links `json:"links"`
}

type revokeResponse struct {
	Old   notes.Note  `json:"old"`
	Fresh notes.Note  `json:"fresh"`
	Links notes.Links `json:"links"`
}

type createNoteRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Creator     string `json:"creator"`
}

func (r createNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Description, validation.Length(0, 1024)),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetNote serves raw note HTML for the mini app. An unknown id is 404
// and a revoked one is 410, so a client can tell a dead link from a typo.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "missing id parameter")
		return
	}

	note, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		logger.Error(r.Context(), "api", "note.get_failed",
			slog.String("note_id", id),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "storage failure")
		return
	}
	if !note.Active {
		writeError(w, http.StatusGone, "revoked", "this link has been revoked")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(note.Content))
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		logger.Error(r.Context(), "api", "notes.list_failed", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "storage failure")
		return
	}

	out := make([]noteResponse, 0, len(list))
	for _, n := range list {
		out = append(out, noteResponse{Note: n, Links: s.links.Build(n.ID)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	creator := req.Creator
	if creator == "" {
		creator = "api"
	}

	note, err := s.store.Create(r.Context(), notes.Draft{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Creator:     creator,
	})
	if err != nil {
		var verr *notes.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Code(), verr.Error())
			return
		}
		logger.Error(r.Context(), "api", "note.create_failed", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "storage failure")
		return
	}

	writeJSON(w, http.StatusCreated, noteResponse{Note: note, Links: s.links.Build(note.ID)})
}

func (s *Server) handleRevokeNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "missing note id")
		return
	}

	rev, err := s.store.RevokeAndRegenerate(r.Context(), id)
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no active note with that id")
			return
		}
		logger.Error(r.Context(), "api", "note.revoke_failed",
			slog.String("note_id", id),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "storage failure")
		return
	}

	logger.Info(r.Context(), "api", "note.revoked",
		slog.String("old_id", rev.Old.ID),
		slog.String("fresh_id", rev.Fresh.ID),
	)
	writeJSON(w, http.StatusOK, revokeResponse{
		Old:   rev.Old,
		Fresh: rev.Fresh,
		Links: s.links.Build(rev.Fresh.ID),
	})
}
