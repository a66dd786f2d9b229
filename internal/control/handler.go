package control

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"playerd/internal/platform/metrics"
)

const jsonContentType = "application/json"

// Handler exposes the session control endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes registers the session endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/playback", h.SetPlayback)
		r.Post("/mode", h.SetMode)
		r.Post("/seek", h.Seek)
		r.Post("/start", h.Start)
		r.Post("/end", h.End)
		r.Post("/step", h.Step)
		r.Put("/inout", h.SetInOut)
	})
}

// CreateSession handles POST /sessions.
// Body: { "source": "pattern://bars" }.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.svc.Create(req.Source)
	if err != nil {
		if errors.Is(err, ErrInvalidSource) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.log.Error("create session failed", slog.String("source", req.Source), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{ID: sess.ID})
	h.metrics.IncSessionsCreated()
}

// GetSession handles GET /sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// DeleteSession handles DELETE /sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "id"))
	if err := h.svc.Delete(id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// The session is gone either way; only its teardown reported trouble.
		h.log.Warn("delete session", slog.String("session", string(id)), slog.String("error", err.Error()))
	}
	w.WriteHeader(http.StatusNoContent)
	h.metrics.IncSessionsDeleted()
}

// SetPlayback handles POST /sessions/{id}/playback.
// Body: { "direction": "forward" }.
func (h *Handler) SetPlayback(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PlaybackRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess.Media.SetPlayback(req.Direction)
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// SetMode handles POST /sessions/{id}/mode.
// Body: { "mode": "pingpong" }.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ModeRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess.Media.SetPlaybackMode(req.Mode)
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// Seek handles POST /sessions/{id}/seek.
// Body: { "time": 1500000 }.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SeekRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Time == nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	sess.Media.SetCurrentTime(*req.Time)
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// Start handles POST /sessions/{id}/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Media.Start()
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// End handles POST /sessions/{id}/end.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Media.End()
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// Step handles POST /sessions/{id}/step.
// Body: { "frames": -1 }.
func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req StepRequest
	if !h.decode(w, r, &req) {
		return
	}
	switch {
	case req.Frames > 0:
		sess.Media.NextFrame(req.Frames)
	case req.Frames < 0:
		sess.Media.PrevFrame(-req.Frames)
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// SetInOut handles PUT /sessions/{id}/inout.
// Body: { "enabled": true, "in": 0, "out": 2000000 }.
func (h *Handler) SetInOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req InOutRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess.Media.SetInOutPoints(req.Enabled, req.In, req.Out)
	writeJSON(w, http.StatusOK, sess.Media.State())
}

// session resolves the {id} URL parameter, writing 404 when it is unknown.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := h.svc.Get(SessionID(chi.URLParam(r, "id")))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// decode reads a JSON body into v, writing 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug("invalid request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
