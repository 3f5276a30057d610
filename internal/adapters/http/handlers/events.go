package handlers

import (
	"maps"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/contextify/internal/adapters/http/dto"
	"github.com/jsamuelsen/contextify/internal/app"
	"github.com/jsamuelsen/contextify/internal/domain"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
)

// EventHandler logs events submitted over HTTP through the facade, so
// they carry the same context as the service's own logs.
type EventHandler struct {
	contextify *app.Contextify
}

// NewEventHandler creates a new event handler.
func NewEventHandler(c *app.Contextify) *EventHandler {
	return &EventHandler{contextify: c}
}

// Create handles POST /api/v1/events.
//
// The event is logged at the requested level. With notify set it is then
// forwarded to the channels routed for log notifications, narrowed by
// only and except.
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.EventRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if req.Notify && !h.contextify.IsNotificationsEnabled() {
		_ = c.Error(domain.ErrNotificationsDisabled)
		return
	}

	ctx := c.Request.Context()
	h.contextify.Log(ctx, logging.ParseLevel(req.Level), req.Message, eventArgs(req.Context)...)

	resp := dto.EventResponse{Logged: true}

	if req.Notify {
		if err := h.contextify.Notify(ctx, req.Only, req.Except); err != nil {
			_ = c.Error(err)
			return
		}

		resp.Notified = true
	}

	c.JSON(http.StatusAccepted, resp)
}

// RegisterEventRoutes registers POST /events under rg.
func (h *EventHandler) RegisterEventRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.Create)
}

// eventArgs flattens the request context into slog key/value pairs in key order.
func eventArgs(m map[string]any) []any {
	args := make([]any, 0, 2*len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		args = append(args, key, m[key])
	}

	return args
}
