package rewards

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smarttraffic/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	r := rg.Group("/rewards")

	r.GET("/leaderboard", h.leaderboard)
	r.GET("/next-update", h.nextUpdate)
	r.POST("/trigger", authMW, h.trigger)
}

func (h *Handler) nextUpdate(c *gin.Context) {
	last, next, err := h.svc.Schedule(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	payload := gin.H{}
	if !last.IsZero() {
		payload["last_update"] = last
		payload["next_update"] = next
	}
	response.OK(c, payload)
}

func (h *Handler) leaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	board, err := h.svc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, board)
}

// trigger forces the full recompute. Administrative escape hatch, also
// useful when seeding environments.
func (h *Handler) trigger(c *gin.Context) {
	if err := h.svc.Trigger(c.Request.Context()); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
