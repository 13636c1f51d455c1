package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/worklens/presence-backend-go/internal/domain/session"
	"github.com/worklens/presence-backend-go/internal/handler/http/response"
)

type SessionHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	End(w http.ResponseWriter, r *http.Request)
	Heartbeat(w http.ResponseWriter, r *http.Request)
	StartPause(w http.ResponseWriter, r *http.Request)
	EndPause(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ListPauses(w http.ResponseWriter, r *http.Request)
	ListEvents(w http.ResponseWriter, r *http.Request)
}

type sessionHandlerImpl struct {
	sessionService session.SessionService
}

func NewSessionHandler(sessionService session.SessionService) SessionHandler {
	return &sessionHandlerImpl{
		sessionService: sessionService,
	}
}

func userIDFromContext(r *http.Request) (string, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", false
	}
	userID, ok := claims["user_id"].(string)
	return userID, ok && userID != ""
}

// Start implements SessionHandler.
func (h *sessionHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	var req session.StartSessionRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	userID, ok := userIDFromContext(r)
	if !ok {
		response.Unauthorized(w, "user_id claim is missing")
		return
	}
	req.UserID = userID

	result, err := h.sessionService.StartSession(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Session started", result)
}

// End implements SessionHandler.
func (h *sessionHandlerImpl) End(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	result, err := h.sessionService.EndSession(r.Context(), sessionID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Session ended", result)
}

// Heartbeat implements SessionHandler.
func (h *sessionHandlerImpl) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req session.HeartbeatRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.SessionID = chi.URLParam(r, "id")

	result, err := h.sessionService.RecordHeartbeat(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func decodePauseRequest(r *http.Request) (session.PauseRequest, bool) {
	var req session.PauseRequest

	// The body is optional; pause requests may carry just the URL.
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
	}
	req.SessionID = chi.URLParam(r, "id")
	req.Kind = chi.URLParam(r, "kind")
	return req, true
}

// StartPause implements SessionHandler.
func (h *sessionHandlerImpl) StartPause(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePauseRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.sessionService.StartPause(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// EndPause implements SessionHandler.
func (h *sessionHandlerImpl) EndPause(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePauseRequest(r)
	if !ok {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.sessionService.EndPause(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.SuccessWithMessage(w, "No open pause to end", nil)
		return
	}

	response.Success(w, result)
}

// Get implements SessionHandler.
func (h *sessionHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListPauses implements SessionHandler.
func (h *sessionHandlerImpl) ListPauses(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.ListPauses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListEvents implements SessionHandler.
func (h *sessionHandlerImpl) ListEvents(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessionService.ListEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
