package timers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"tock/cmd/identity"
	"tock/cmd/internal/auth/session"
	v1 "tock/shared/contracts/sync/v1"
)

const defaultMaxBodyBytes = 16 << 10 // 16 KiB

// SessionResolver authenticates opaque bearer tokens.
// Implemented by session.Service.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (identity.User, error)
}

// Handler exposes the discrete (non-duplex) timer surface.
//
// Mutations go straight to the sync engine, which persists and then resyncs
// every live connection of the user, so an HTTP-created timer shows up on
// all of the user's open WebSocket clients.
type Handler struct {
	log        *slog.Logger
	engine     *Service
	sessions   SessionResolver
	cookieName string
}

// NewHandler constructs the timer HTTP handler.
func NewHandler(log *slog.Logger, engine *Service, sessions SessionResolver) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:        log,
		engine:     engine,
		sessions:   sessions,
		cookieName: session.DefaultCookieName,
	}
}

// Register wires timer routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /api/timers", h.handleCreate)
	mux.HandleFunc("POST /api/timers/{id}/stop", h.handleStop)
	mux.HandleFunc("GET /api/timers", h.handleList)
}

type createTimerRequest struct {
	Description string `json:"description"`
}

type createTimerResponse struct {
	ID int64 `json:"id"`
}

type listTimersResponse struct {
	ActiveTimers []v1.TimerPayload `json:"active_timers"`
	ClosedTimers []v1.TimerPayload `json:"closed_timers"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req createTimerRequest
	if err := decodeJSON(w, r, defaultMaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	id, err := h.engine.Create(r.Context(), user.ID, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyDescription):
			writeError(w, http.StatusBadRequest, "empty_description", "description is required")
		case errors.Is(err, ErrDescriptionTooLong):
			writeError(w, http.StatusBadRequest, "description_too_long", "description is too long")
		default:
			h.log.Error("api.timers.create.fail", "user_id", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, createTimerResponse{ID: id})
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid timer id")
		return
	}

	if err := h.engine.Stop(r.Context(), user.ID, id); err != nil {
		switch {
		case errors.Is(err, ErrTimerNotFound):
			writeError(w, http.StatusNotFound, "timer_not_found", "timer not found or already stopped")
		default:
			h.log.Error("api.timers.stop.fail", "user_id", user.ID, "timer_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	resp := listTimersResponse{
		ActiveTimers: []v1.TimerPayload{},
		ClosedTimers: []v1.TimerPayload{},
	}

	wantActive, wantClosed := true, true
	switch r.URL.Query().Get("active") {
	case "":
	case "true":
		wantClosed = false
	case "false":
		wantActive = false
	default:
		writeError(w, http.StatusBadRequest, "invalid_filter", "active must be true or false")
		return
	}

	if wantActive {
		active, err := h.engine.store.ListActive(r.Context(), user.ID)
		if err != nil {
			h.log.Error("api.timers.list.fail", "user_id", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		resp.ActiveTimers = ToWireList(active)
	}
	if wantClosed {
		closed, err := h.engine.store.ListClosed(r.Context(), user.ID)
		if err != nil {
			h.log.Error("api.timers.list.fail", "user_id", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		resp.ClosedTimers = ToWireList(closed)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	token := session.TokenFromRequest(r, h.cookieName)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session token")
		return identity.User{}, false
	}

	user, err := h.sessions.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session token")
			return identity.User{}, false
		}
		// Fail closed on store trouble; never guess an identity.
		h.log.Error("api.timers.auth.fail", "err", err)
		writeError(w, http.StatusUnauthorized, "unauthorized", "session validation unavailable")
		return identity.User{}, false
	}
	return user, true
}

// ---- json helpers ----

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
