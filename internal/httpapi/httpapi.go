// Package httpapi exposes the tutoring engine as a small JSON API. It is a
// thin surface: every decision lives in the engine.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/logicfirst/tutor/internal/engine"
	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/model"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	engine *engine.Engine
	lang   string
}

// New creates a new Handler responding in the given language.
func New(e *engine.Engine, lang string) *Handler {
	return &Handler{engine: e, lang: lang}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(i18n.Middleware(h.lang))
	r.Get("/healthz", h.handleHealth)
	r.Post("/sessions", h.handleStartSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Post("/sessions/{sessionID}/messages", h.handleMessage)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startSessionRequest struct {
	UserID       string `json:"user_id"`
	AssignmentID string `json:"assignment_id"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.AssignmentID == "" {
		writeError(w, http.StatusBadRequest, "user_id and assignment_id are required")
		return
	}

	res, err := h.engine.StartSession(r.Context(), req.UserID, req.AssignmentID)
	if err != nil {
		if errors.Is(err, engine.ErrNoProblems) {
			writeError(w, http.StatusNotFound, "assignment has no problems")
			return
		}
		slog.Error("start session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

type messageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	res, err := h.engine.ProcessTurn(r.Context(), sessionID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, engine.ErrSessionClosed):
			writeError(w, http.StatusConflict, "session is not active")
		default:
			slog.Error("process turn failed", "session", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not process message")
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type sessionResponse struct {
	Session *model.Session `json:"session"`
	Turns   []model.Turn   `json:"turns"`
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, turns, err := h.engine.Transcript(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("get session failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Turns: turns})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
