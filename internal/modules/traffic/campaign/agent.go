package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/provider"
)

// SessionOpener opens the multi-turn tool conversation; satisfied by
// *provider.Client and by test fakes.
type SessionOpener interface {
	NewToolSession(purpose provider.Purpose, systemPrompt, userPrompt string, tools []provider.ToolSpec, maxTokens int) (provider.ToolSession, error)
}

// StepFunc receives each produced step (and asset, when the step created
// one) in emission order. It must return quickly.
type StepFunc func(step models.CampaignStep, asset *models.CampaignAsset)

// Agent drives the bounded tool-calling loop for one website. It never
// returns an error: every outcome is a terminal CampaignStatus, and partial
// results emitted before a failure remain valid.
type Agent struct {
	sessions SessionOpener
	synth    *Synthesizer
	maxTurns int
	log      *zap.Logger

	now func() time.Time
}

func NewAgent(sessions SessionOpener, synth *Synthesizer, maxTurns int, log *zap.Logger) *Agent {
	if maxTurns <= 0 {
		maxTurns = 12
	}
	return &Agent{sessions: sessions, synth: synth, maxTurns: maxTurns, log: log, now: time.Now}
}

func systemPrompt(site *models.Website) string {
	return fmt.Sprintf(`You are the SmartTraffic Autonomous Agent.
Your goal is generating REAL traffic for the website: %s (%s).
Niche: %s
Target Audience: %s

MISSION: Execute a massive visibility campaign.

REQUIRED ACTIONS:
1. Create a compelling Social Media Post (Twitter/LinkedIn) with a generated image.
2. Write a detailed SEO Article draft.
3. Script a short promotional Video.
4. Submit to a Search Engine.
5. Draft a Press Release.
6. Setup Analytics Tracking.

STRATEGY:
- Customize content for the specific audience.
- Use persuasive language.
- Ensure diversity in platforms (Text, Video, Social, Search).

Call the provided tools to perform these actions. After calling a tool,
I will confirm execution. When every required action is done, call the
finish_campaign tool exactly once.`,
		site.URL, site.Name, site.Niche, site.TargetAudienceProfile)
}

const openingPrompt = "Start the campaign. Analyze the best strategy and execute the first action."
const nudgePrompt = "Please execute the next traffic generation tool, or call finish_campaign if every required action is done."

// Run executes the campaign loop and reports the terminal status:
// completed when the model calls finish_campaign or the turn budget runs
// out, failed on a transport error or when no provider is configured.
func (a *Agent) Run(ctx context.Context, site *models.Website, onStep StepFunc) models.CampaignStatus {
	session, err := a.sessions.NewToolSession(
		provider.PurposeCampaign, systemPrompt(site), openingPrompt, campaignTools(), 8192)
	if err != nil {
		a.log.Warn("campaign session unavailable", zap.Error(err))
		onStep(a.step("Agent Startup", "No content provider available", models.StepError), nil)
		return models.CampaignFailed
	}

	var (
		turn    *provider.Turn
		results []provider.ToolResult
		nudge   string
	)

	for turnCount := 1; turnCount <= a.maxTurns; turnCount++ {
		switch {
		case nudge != "":
			turn, err = session.Nudge(ctx, nudge)
			nudge = ""
		default:
			turn, err = session.Next(ctx, results)
			results = nil
		}
		if err != nil {
			a.log.Warn("campaign turn failed", zap.Int("turn", turnCount), zap.Error(err))
			onStep(a.step("Agent Turn", "Provider call failed, stopping campaign", models.StepError), nil)
			return models.CampaignFailed
		}

		if len(turn.Calls) == 0 {
			nudge = nudgePrompt
			continue
		}

		var finished bool
		results, finished = a.executeCalls(ctx, site, turn.Calls, onStep)
		if finished {
			return models.CampaignCompleted
		}
	}

	// Budget exhausted: partial campaigns still have value.
	a.log.Info("campaign turn budget exhausted", zap.Int("max_turns", a.maxTurns))
	return models.CampaignCompleted
}

// executeCalls synthesizes all tool calls of one turn. Calls are
// independent, so synthesis runs concurrently; steps are emitted in call
// order once everything settles.
func (a *Agent) executeCalls(ctx context.Context, site *models.Website, calls []provider.ToolCall, onStep StepFunc) ([]provider.ToolResult, bool) {
	type outcome struct {
		asset models.CampaignAsset
		ok    bool
	}

	outcomes := make([]outcome, len(calls))
	finished := false

	var wg sync.WaitGroup
	for i, call := range calls {
		if call.Name == toolFinishCampaign {
			finished = true
			continue
		}
		wg.Add(1)
		go func(i int, call provider.ToolCall) {
			defer wg.Done()
			asset, ok := a.synth.Synthesize(ctx, call, site)
			outcomes[i] = outcome{asset: asset, ok: ok}
		}(i, call)
	}
	wg.Wait()

	results := make([]provider.ToolResult, 0, len(calls))
	for i, call := range calls {
		if call.Name == toolFinishCampaign {
			onStep(a.step(actionName(call.Name), callDetail(call.Name, decodeArgs(call.Input)), models.StepSuccess), nil)
			results = append(results, provider.ToolResult{CallID: call.ID, Content: "Campaign closed."})
			continue
		}

		out := outcomes[i]
		status := models.StepSuccess
		resultMsg := "Success: Asset created."
		if !out.ok {
			status = models.StepError
			resultMsg = "Partial: asset recorded with placeholder content."
		}

		asset := out.asset
		onStep(a.step(actionName(call.Name), callDetail(call.Name, decodeArgs(call.Input)), status), &asset)
		results = append(results, provider.ToolResult{CallID: call.ID, Content: resultMsg})
	}
	return results, finished
}

func (a *Agent) step(action, detail string, status models.StepStatus) models.CampaignStep {
	return models.CampaignStep{
		ID:        models.NewID(),
		Action:    action,
		Detail:    detail,
		Status:    status,
		CreatedAt: a.now(),
	}
}
