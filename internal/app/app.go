package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/config"
	"github.com/smarttraffic/core/internal/database"
	"github.com/smarttraffic/core/internal/middleware"
	"github.com/smarttraffic/core/internal/modules/account"
	"github.com/smarttraffic/core/internal/modules/chat"
	"github.com/smarttraffic/core/internal/modules/economy/ledger"
	"github.com/smarttraffic/core/internal/modules/economy/rewards"
	"github.com/smarttraffic/core/internal/modules/traffic/campaign"
	"github.com/smarttraffic/core/internal/modules/traffic/matching"
	"github.com/smarttraffic/core/internal/modules/traffic/website"
	pkgcron "github.com/smarttraffic/core/internal/pkg/cron"
	"github.com/smarttraffic/core/internal/pkg/jwt"
	"github.com/smarttraffic/core/internal/pkg/kvstore"
	pkgredis "github.com/smarttraffic/core/internal/pkg/redis"
	"github.com/smarttraffic/core/internal/pkg/taskqueue"
	"github.com/smarttraffic/core/internal/provider"
	"github.com/smarttraffic/core/internal/repo"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	rc     *pkgredis.Client
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	accountSvc  *account.Service
	ledgerSvc   *ledger.Service
	rewardsSvc  *rewards.Service
	websiteSvc  *website.Service
	campaignSvc *campaign.Service
	matchingSvc *matching.Service
	chatSvc     *chat.Service
	taskSvc     *taskqueue.Service
}

// New initializes the application: config → store → Redis → services → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	jwt.SetSecret(cfg.JWTSecret)

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	store, err := buildStore(cfg, rc)
	if err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	users := repo.NewUsers(store)
	websites := repo.NewWebsites(store)
	ratings := repo.NewRatings(store)
	campaigns := repo.NewCampaigns(store)

	ai := provider.NewClient(cfg.AI)
	taskSvc := taskqueue.NewService(rc)

	rewardsSvc := rewards.NewService(users, store, cfg.Economy, logger.Named("rewards"))
	agent := campaign.NewAgent(ai, campaign.NewSynthesizer(ai, logger.Named("synthesizer")), cfg.Campaign.MaxTurns, logger.Named("agent"))

	app := &App{
		cfg:    cfg,
		router: router,
		rc:     rc,
		logger: logger,
		sched:  pkgcron.New(),

		accountSvc:  account.NewService(users, rc, cfg.Economy, rewardsSvc),
		ledgerSvc:   ledger.NewService(users, websites, ratings, cfg.Economy, logger.Named("ledger")),
		rewardsSvc:  rewardsSvc,
		websiteSvc:  website.NewService(websites, ratings, ai, logger.Named("website")),
		campaignSvc: campaign.NewService(websites, campaigns, agent, taskSvc, rc, logger.Named("campaign")),
		matchingSvc: matching.NewService(users, websites, ratings, ai, logger.Named("matching")),
		chatSvc:     chat.NewService(ai, logger.Named("chat")),
		taskSvc:     taskSvc,
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.registerCronJobs()
	app.sched.Start(ctx)

	app.registerRoutes()
	return app, nil
}

// buildStore selects the list-store backend per config.
func buildStore(cfg *config.AppConfig, rc *pkgredis.Client) (kvstore.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMySQL:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return kvstore.NewGorm(db), nil
	case config.StoreRedis:
		return kvstore.NewRedis(rc), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		c.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		c.AllowOriginFunc = func(origin string) bool { return true }
	}
	return c
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
