package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/models"
	redisc "github.com/smarttraffic/core/internal/pkg/redis"
	"github.com/smarttraffic/core/internal/pkg/taskqueue"
	"github.com/smarttraffic/core/internal/repo"
)

const TaskTypeCampaignRun = "campaign_run"

var ErrWebsiteNotFound = errors.New("website not found")

// estimatedTraffic weights: link-building assets weigh less than content
// and indexing assets. Tunable policy, not a correctness invariant.
const (
	trafficPerBacklink = 10
	trafficPerPost     = 50
)

type runPayload struct {
	WebsiteID string `json:"website_id"`
}

// progressEvent is one SSE/pub-sub frame of a live campaign run.
type progressEvent struct {
	Type     string                `json:"type"` // "step" | "asset" | "done"
	Step     *models.CampaignStep  `json:"step,omitempty"`
	Asset    *models.CampaignAsset `json:"asset,omitempty"`
	Campaign *models.Campaign      `json:"campaign,omitempty"`
}

// Service owns campaign runs: one live run per website (task dedup),
// executed in the background, progress published over redis pub/sub, the
// finished record persisted with derived totals.
type Service struct {
	websites  *repo.Websites
	campaigns *repo.Campaigns
	agent     *Agent
	tasks     *taskqueue.Service
	rds       *redisc.Client
	log       *zap.Logger
}

func NewService(websites *repo.Websites, campaigns *repo.Campaigns, agent *Agent, tasks *taskqueue.Service, rds *redisc.Client, log *zap.Logger) *Service {
	return &Service{
		websites:  websites,
		campaigns: campaigns,
		agent:     agent,
		tasks:     tasks,
		rds:       rds,
		log:       log,
	}
}

func progressChannel(websiteID string) string {
	return "st:campaign:events:" + websiteID
}

// StartRun enqueues a campaign run for the website, or returns the live
// task when one is already running (dedup per website).
func (s *Service) StartRun(ctx context.Context, websiteID string) (*taskqueue.Task, error) {
	site, err := s.websites.ByID(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, ErrWebsiteNotFound
	}

	task, err := s.tasks.Enqueue(ctx, TaskTypeCampaignRun, runPayload{WebsiteID: websiteID}, websiteID)
	if err != nil {
		return nil, err
	}
	if task.Status == taskqueue.TaskPending {
		go s.executeRun(context.Background(), task.ID, websiteID)
	}
	return task, nil
}

// executeRun drives the agent, relays progress, and persists the result.
func (s *Service) executeRun(ctx context.Context, taskID, websiteID string) {
	_ = s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	site, err := s.websites.ByID(ctx, websiteID)
	if err != nil || site == nil {
		s.log.Warn("campaign run lost its website", zap.String("website_id", websiteID))
		_ = s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, "website not found")
		return
	}

	record := models.Campaign{
		ID:        models.NewID(),
		WebsiteID: websiteID,
		Status:    models.CampaignRunning,
		Steps:     []models.CampaignStep{},
		Assets:    []models.CampaignAsset{},
		CreatedAt: time.Now(),
	}

	var mu sync.Mutex
	onStep := func(step models.CampaignStep, asset *models.CampaignAsset) {
		mu.Lock()
		record.Steps = append(record.Steps, step)
		if asset != nil {
			record.Assets = append(record.Assets, *asset)
		}
		mu.Unlock()

		s.publish(ctx, websiteID, progressEvent{Type: "step", Step: &step})
		if asset != nil {
			s.publish(ctx, websiteID, progressEvent{Type: "asset", Asset: asset})
		}
	}

	status := s.agent.Run(ctx, site, onStep)

	record.Status = status
	record.TotalBacklinks, record.TotalPosts, record.EstimatedTraffic = deriveTotals(record.Assets)

	if err := s.campaigns.Save(ctx, record); err != nil {
		s.log.Error("persist campaign failed", zap.String("campaign_id", record.ID), zap.Error(err))
		_ = s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	s.publish(ctx, websiteID, progressEvent{Type: "done", Campaign: &record})

	taskStatus := taskqueue.TaskCompleted
	errMsg := ""
	if status == models.CampaignFailed {
		taskStatus = taskqueue.TaskFailed
		errMsg = "campaign ended in failed state"
	}
	_ = s.tasks.UpdateStatus(ctx, taskID, taskStatus, record, errMsg)

	s.log.Info("campaign run finished",
		zap.String("website_id", websiteID),
		zap.String("status", string(status)),
		zap.Int("assets", len(record.Assets)),
	)
}

func (s *Service) publish(ctx context.Context, websiteID string, ev progressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rds.Publish(ctx, progressChannel(websiteID), data); err != nil {
		s.log.Warn("publish campaign progress failed", zap.Error(err))
	}
}

// Latest returns the newest campaign for a website, or (nil, nil).
func (s *Service) Latest(ctx context.Context, websiteID string) (*models.Campaign, error) {
	return s.campaigns.LatestByWebsite(ctx, websiteID)
}

// History returns all campaigns recorded for a website.
func (s *Service) History(ctx context.Context, websiteID string) ([]models.Campaign, error) {
	return s.campaigns.ByWebsite(ctx, websiteID)
}

// deriveTotals computes the aggregate counters from the asset mix.
func deriveTotals(assets []models.CampaignAsset) (backlinks, posts, traffic int) {
	for _, a := range assets {
		switch a.Type {
		case models.AssetBacklink, models.AssetDirectorySubmission:
			backlinks++
		case models.AssetSocialPost, models.AssetArticle:
			posts++
		}
	}
	return backlinks, posts, backlinks*trafficPerBacklink + posts*trafficPerPost
}
