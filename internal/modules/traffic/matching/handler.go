package matching

import (
	"github.com/gin-gonic/gin"

	"github.com/smarttraffic/core/internal/middleware"
	"github.com/smarttraffic/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/feed", authMW, h.feed)
}

func (h *Handler) feed(c *gin.Context) {
	matches, err := h.svc.FindMatches(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, matches)
}
