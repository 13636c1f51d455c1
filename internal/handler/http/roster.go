package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/worklens/presence-backend-go/internal/domain/roster"
	"github.com/worklens/presence-backend-go/internal/handler/http/response"
	"github.com/worklens/presence-backend-go/internal/pkg/jwt"
	"github.com/worklens/presence-backend-go/internal/pkg/sse"
)

type RosterHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type rosterHandlerImpl struct {
	rosterService roster.RosterService
	jwtService    jwt.Service
	hub           *sse.Hub
}

func NewRosterHandler(rosterService roster.RosterService, jwtService jwt.Service, hub *sse.Hub) RosterHandler {
	return &rosterHandlerImpl{
		rosterService: rosterService,
		jwtService:    jwtService,
		hub:           hub,
	}
}

// Get implements RosterHandler.
func (h *rosterHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	req := roster.RosterRequest{
		Date: r.URL.Query().Get("date"),
	}

	result, err := h.rosterService.GetRoster(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Stream implements RosterHandler. Supervisors keep this open; roster_changed
// and presence_check events tell them when to refetch.
func (h *rosterHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// Token comes via query parameter (EventSource cannot set headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ValidateAccessToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe()
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":\"%s\"}\n\n", userID)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
