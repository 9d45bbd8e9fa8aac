package website

import (
	"github.com/gin-gonic/gin"

	"github.com/smarttraffic/core/internal/middleware"
	"github.com/smarttraffic/core/internal/pkg/pagination"
	"github.com/smarttraffic/core/internal/pkg/response"
)

type AddWebsiteDTO struct {
	URL            string `json:"url"             binding:"required,url"`
	Description    string `json:"description"`
	TargetAudience string `json:"target_audience"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	w := rg.Group("/websites")

	w.POST("", authMW, h.add)
	w.GET("", authMW, h.listMine)
	w.GET("/:id", h.get)
	w.GET("/:id/ratings", h.listRatings)
}

func (h *Handler) add(c *gin.Context) {
	var dto AddWebsiteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	site, err := h.svc.Add(c.Request.Context(), middleware.CurrentUserID(c), dto.URL, dto.Description, dto.TargetAudience)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, site)
}

func (h *Handler) listMine(c *gin.Context) {
	sites, err := h.svc.ByOwner(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, sites)
}

func (h *Handler) get(c *gin.Context) {
	site, err := h.svc.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if site == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, site)
}

func (h *Handler) listRatings(c *gin.Context) {
	ratings, err := h.svc.Ratings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	q := pagination.FromContext(c)
	page, meta := pagination.Slice(ratings, q)
	response.Paged(c, page, meta)
}
