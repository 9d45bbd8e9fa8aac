package ledger

import (
	"github.com/gin-gonic/gin"

	"github.com/smarttraffic/core/internal/middleware"
	"github.com/smarttraffic/core/internal/pkg/response"
)

type AddRatingDTO struct {
	WebsiteID        string `json:"website_id"         binding:"required"`
	Score            int    `json:"score"              binding:"required,min=1,max=5"`
	Feedback         string `json:"feedback"`
	DwellTimeSeconds int    `json:"dwell_time_seconds" binding:"min=0"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	r := rg.Group("/ratings", authMW)

	r.POST("", h.addRating)
	r.GET("/mine", h.listMine)
}

func (h *Handler) addRating(c *gin.Context) {
	var dto AddRatingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rating, err := h.svc.AddRating(
		c.Request.Context(),
		middleware.CurrentUserID(c),
		dto.WebsiteID,
		dto.Score,
		dto.Feedback,
		dto.DwellTimeSeconds,
	)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, rating)
}

func (h *Handler) listMine(c *gin.Context) {
	ratings, err := h.svc.ForUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, ratings)
}
