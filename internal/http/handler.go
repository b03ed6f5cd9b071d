// Package http is the REST control plane: session lifecycle, settings and
// outbound sends.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/wa"
)

// Lifecycle is the surface the handlers need from the connection manager.
type Lifecycle interface {
	StartSession(id string) (*session.Session, error)
	ResetSession(id string) error
	Connected(id string) bool
	SendText(ctx context.Context, id, to, text string) error
	SendContact(ctx context.Context, id, to, displayName, vcard string) error
	SendMedia(ctx context.Context, id string, spec wa.MediaSpec) error
}

// Handler serves the session API.
type Handler struct {
	lifecycle Lifecycle
	registry  *session.Registry
}

func NewHandler(lc Lifecycle, reg *session.Registry) *Handler {
	return &Handler{lifecycle: lc, registry: reg}
}

// RegisterRoutes mounts the API under the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleDeleteSession)
			r.Get("/settings", h.handleGetSettings)
			r.Patch("/settings", h.handlePatchSettings)
			r.Post("/messages", h.handleSendMessage)
		})
	})
}

type sessionView struct {
	SessionID   string  `json:"sessionId"`
	Status      string  `json:"status"`
	PairingCode *string `json:"pairingCode"`
	Connected   bool    `json:"connected"`
}

func (h *Handler) sessionView(sess *session.Session) sessionView {
	status, code := sess.Snapshot()
	v := sessionView{
		SessionID: sess.ID,
		Status:    string(status),
		Connected: h.lifecycle.Connected(sess.ID),
	}
	if code != "" {
		v.PairingCode = &code
	}
	return v
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(h.registry.IDs()),
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	id := strings.TrimSpace(payload.SessionID)
	if id == "" {
		id = uuid.New().String()
	} else if !validSessionID(id) {
		respondError(w, http.StatusBadRequest, "invalid sessionId")
		return
	}

	sess, err := h.lifecycle.StartSession(id)
	if err != nil {
		L_error("http: session start failed", "session", id, "error", err)
		respondError(w, http.StatusInternalServerError, "session start failed")
		return
	}

	respondJSON(w, http.StatusCreated, h.sessionView(sess))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.registry.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.lifecycle.ResetSession(id); err != nil {
		if errors.Is(err, wa.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		L_error("http: session reset failed", "session", id, "error", err)
		respondError(w, http.StatusInternalServerError, "session reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	sess := h.registry.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	sess.Mu.Lock()
	st := sess.Settings
	sess.Mu.Unlock()
	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	sess := h.registry.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.UpdateSettings(sess, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.Mu.Lock()
	st := sess.Settings
	sess.Mu.Unlock()
	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var payload struct {
		To       string `json:"to"`
		Type     string `json:"type"`
		Text     string `json:"text"`
		URL      string `json:"url"`
		Caption  string `json:"caption"`
		Filename string `json:"filename"`
		PTT      bool   `json:"ptt"`

		// contact kind
		DisplayName string `json:"displayName"`
		Vcard       string `json:"vcard"`

		// event kind
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.To == "" {
		respondError(w, http.StatusBadRequest, "to is required")
		return
	}

	kind := payload.Type
	if kind == "" {
		kind = "text"
	}

	var err error
	switch kind {
	case "text":
		if payload.Text == "" {
			respondError(w, http.StatusBadRequest, "text is required")
			return
		}
		err = h.lifecycle.SendText(r.Context(), id, payload.To, payload.Text)
	case "image", "video", "audio", "document":
		if payload.URL == "" {
			respondError(w, http.StatusBadRequest, "url is required")
			return
		}
		err = h.lifecycle.SendMedia(r.Context(), id, wa.MediaSpec{
			To:       payload.To,
			Kind:     kind,
			URL:      payload.URL,
			Caption:  payload.Caption,
			Filename: payload.Filename,
			PTT:      payload.PTT,
		})
	case "contact":
		if payload.Vcard == "" {
			respondError(w, http.StatusBadRequest, "vcard is required")
			return
		}
		err = h.lifecycle.SendContact(r.Context(), id, payload.To, payload.DisplayName, payload.Vcard)
	case "event":
		if payload.Text == "" {
			respondError(w, http.StatusBadRequest, "text is required")
			return
		}
		text := payload.Text
		if payload.Title != "" {
			text = payload.Title + "\n\n" + text
		}
		err = h.lifecycle.SendText(r.Context(), id, payload.To, text)
	default:
		respondError(w, http.StatusBadRequest, "unknown message type")
		return
	}

	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]any{"sent": true})
	case errors.Is(err, wa.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, wa.ErrNotConnected):
		respondError(w, http.StatusConflict, "session not connected")
	default:
		L_error("http: send failed", "session", id, "error", err)
		respondError(w, http.StatusBadGateway, "send failed")
	}
}

// validSessionID keeps ids usable as directory names.
func validSessionID(id string) bool {
	if len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		L_warn("http: response encode failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
