package campaign

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smarttraffic/core/internal/middleware"
	"github.com/smarttraffic/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	c := rg.Group("/websites/:id/campaigns")

	c.POST("", authMW, h.start)
	c.GET("", h.history)
	c.GET("/latest", h.latest)
	c.GET("/stream", h.stream)
}

func (h *Handler) start(c *gin.Context) {
	websiteID := c.Param("id")

	site, err := h.svc.websites.ByID(c.Request.Context(), websiteID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if site == nil {
		response.NotFoundMsg(c, "website not found")
		return
	}
	if site.OwnerID != middleware.CurrentUserID(c) {
		response.Forbidden(c, "only the website owner can start a campaign")
		return
	}

	task, err := h.svc.StartRun(c.Request.Context(), websiteID)
	if err != nil {
		if errors.Is(err, ErrWebsiteNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"task_id": task.ID, "status": task.Status})
}

func (h *Handler) latest(c *gin.Context) {
	campaign, err := h.svc.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if campaign == nil {
		response.NotFoundMsg(c, "no campaign recorded for this website")
		return
	}
	response.OK(c, campaign)
}

func (h *Handler) history(c *gin.Context) {
	campaigns, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, campaigns)
}

// stream relays the live progress of a running campaign over SSE. The
// stream closes after the terminal "done" event or when the client leaves.
func (h *Handler) stream(c *gin.Context) {
	websiteID := c.Param("id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(data string) {
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		c.Writer.Flush()
	}

	sub := h.svc.rds.Subscribe(c.Request.Context(), progressChannel(websiteID))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			sendEvent(msg.Payload)

			var ev progressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err == nil && ev.Type == "done" {
				return
			}
		}
	}
}
