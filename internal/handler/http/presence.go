package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worklens/presence-backend-go/internal/domain/presence"
	"github.com/worklens/presence-backend-go/internal/handler/http/response"
)

type PresenceHandler interface {
	Confirm(w http.ResponseWriter, r *http.Request)
}

type presenceHandlerImpl struct {
	scheduler presence.Scheduler
}

func NewPresenceHandler(scheduler presence.Scheduler) PresenceHandler {
	return &presenceHandlerImpl{
		scheduler: scheduler,
	}
}

// Confirm implements PresenceHandler.
func (h *presenceHandlerImpl) Confirm(w http.ResponseWriter, r *http.Request) {
	var req presence.ConfirmRequest

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}
	req.PromptID = chi.URLParam(r, "promptID")

	result, err := h.scheduler.Confirm(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Presence confirmed", result)
}
