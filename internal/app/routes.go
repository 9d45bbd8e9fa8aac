package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smarttraffic/core/internal/middleware"
	"github.com/smarttraffic/core/internal/modules/account"
	"github.com/smarttraffic/core/internal/modules/chat"
	"github.com/smarttraffic/core/internal/modules/economy/ledger"
	"github.com/smarttraffic/core/internal/modules/economy/rewards"
	"github.com/smarttraffic/core/internal/modules/traffic/campaign"
	"github.com/smarttraffic/core/internal/modules/traffic/matching"
	"github.com/smarttraffic/core/internal/modules/traffic/website"
	"github.com/smarttraffic/core/internal/pkg/response"
)

var processStart = time.Now()

func (a *App) registerRoutes() {
	r := a.router
	authMW := middleware.Auth(a.rc)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "smarttraffic-core",
		"version": "1.0.0",
	}

	api := r.Group("/api/v2")
	api.Use(middleware.OptionalAuth(a.rc))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"timestamp": time.Since(processStart).Milliseconds()})
	})

	account.NewHandler(a.accountSvc).RegisterRoutes(api, authMW)
	ledger.NewHandler(a.ledgerSvc).RegisterRoutes(api, authMW)
	rewards.NewHandler(a.rewardsSvc).RegisterRoutes(api, authMW)
	website.NewHandler(a.websiteSvc).RegisterRoutes(api, authMW)
	campaign.NewHandler(a.campaignSvc).RegisterRoutes(api, authMW)
	matching.NewHandler(a.matchingSvc).RegisterRoutes(api, authMW)
	chat.NewHandler(a.chatSvc).RegisterRoutes(api, authMW)

	// Job visibility for operators.
	api.GET("/system/jobs", authMW, func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
}
