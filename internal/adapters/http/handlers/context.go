package handlers

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/contextify/internal/adapters/http/dto"
	"github.com/jsamuelsen/contextify/internal/app"
	"github.com/jsamuelsen/contextify/internal/app/logctx"
	"github.com/jsamuelsen/contextify/internal/domain"
)

// ContextHandler exposes the collected context for inspection and lets
// operators recompute static providers without a restart.
type ContextHandler struct {
	contextify *app.Contextify
}

// NewContextHandler creates a new context handler.
func NewContextHandler(c *app.Contextify) *ContextHandler {
	return &ContextHandler{contextify: c}
}

// GetContext handles GET /-/context/:group.
// Unknown groups are rejected; a disabled service answers with an empty context.
func (h *ContextHandler) GetContext(c *gin.Context) {
	group := c.Param("group")
	if !slices.Contains([]string{logctx.GroupLog, logctx.GroupNotification}, group) {
		_ = c.Error(fmt.Errorf("%w %q", domain.ErrUnknownGroup, group))
		return
	}

	c.JSON(http.StatusOK, dto.ContextResponse{
		Group:   group,
		Context: h.contextify.Context(group),
	})
}

// Touch handles POST /-/context/touch.
// An empty id list recomputes every static provider.
func (h *ContextHandler) Touch(c *gin.Context) {
	var req dto.TouchRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if len(req.IDs) == 0 {
		if err := h.contextify.TouchAll(); err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, dto.TouchResponse{All: h.contextify.IsEnabled()})

		return
	}

	touched := make(map[string]bool, len(req.IDs))

	for _, id := range req.IDs {
		ok, err := h.contextify.Touch(id)
		if err != nil {
			_ = c.Error(err)
			return
		}

		touched[id] = ok
	}

	c.JSON(http.StatusOK, dto.TouchResponse{Touched: touched})
}

// RegisterContextRoutes registers the context routes under rg:
//   - GET  /context/:group
//   - POST /context/touch
func (h *ContextHandler) RegisterContextRoutes(rg *gin.RouterGroup) {
	rg.GET("/context/:group", h.GetContext)
	rg.POST("/context/touch", h.Touch)
}
