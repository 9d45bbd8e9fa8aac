package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/provider"
)

type fakeGen struct {
	text     string
	textErr  error
	img      string
	imgErr   error
	video    string
	videoErr error
}

func (f *fakeGen) GenerateText(ctx context.Context, purpose provider.Purpose, systemPrompt, prompt string, maxTokens int, opts ...provider.GenerateOption) (string, error) {
	return f.text, f.textErr
}

func (f *fakeGen) GenerateImage(ctx context.Context, purpose provider.Purpose, prompt string) (string, error) {
	return f.img, f.imgErr
}

func (f *fakeGen) GenerateVideo(ctx context.Context, purpose provider.Purpose, prompt string) (string, error) {
	return f.video, f.videoErr
}

// fakeSession replays a scripted sequence of turns. A nil entry in the
// script makes that turn return an error.
type fakeSession struct {
	script  []*provider.Turn
	pos     int
	nudges  int
	results [][]provider.ToolResult
}

func (f *fakeSession) advance() (*provider.Turn, error) {
	if f.pos >= len(f.script) {
		return &provider.Turn{Text: "nothing left"}, nil
	}
	turn := f.script[f.pos]
	f.pos++
	if turn == nil {
		return nil, errors.New("connection reset")
	}
	return turn, nil
}

func (f *fakeSession) Next(ctx context.Context, results []provider.ToolResult) (*provider.Turn, error) {
	f.results = append(f.results, results)
	return f.advance()
}

func (f *fakeSession) Nudge(ctx context.Context, message string) (*provider.Turn, error) {
	f.nudges++
	return f.advance()
}

type fakeOpener struct {
	session *fakeSession
	err     error
}

func (f *fakeOpener) NewToolSession(purpose provider.Purpose, systemPrompt, userPrompt string, tools []provider.ToolSpec, maxTokens int) (provider.ToolSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func toolCall(id, name string, args map[string]interface{}) provider.ToolCall {
	raw, _ := json.Marshal(args)
	return provider.ToolCall{ID: id, Name: name, Input: raw}
}

type recorder struct {
	steps  []models.CampaignStep
	assets []models.CampaignAsset
}

func (r *recorder) onStep(step models.CampaignStep, asset *models.CampaignAsset) {
	r.steps = append(r.steps, step)
	if asset != nil {
		r.assets = append(r.assets, *asset)
	}
}

func testSite() *models.Website {
	return &models.Website{
		ID:                    "site-1",
		OwnerID:               "owner-1",
		URL:                   "https://shop.example",
		Name:                  "Example Shop",
		Niche:                 "Fashion Ecommerce",
		TargetAudienceProfile: "Young professionals, 25-35",
	}
}

func newAgent(session *fakeSession, gen ContentGenerator, maxTurns int) *Agent {
	log := zap.NewNop()
	return NewAgent(&fakeOpener{session: session}, NewSynthesizer(gen, log), maxTurns, log)
}

func TestRunCompletesOnFinishTool(t *testing.T) {
	session := &fakeSession{script: []*provider.Turn{
		{Calls: []provider.ToolCall{
			toolCall("c1", "generate_seo_article", map[string]interface{}{"topic": "fall fashion", "targetKeywords": []string{"style"}}),
		}},
		{Calls: []provider.ToolCall{
			toolCall("c2", toolFinishCampaign, map[string]interface{}{"summary": "all done"}),
		}},
	}}
	agent := newAgent(session, &fakeGen{text: "article body"}, 12)

	rec := &recorder{}
	status := agent.Run(context.Background(), testSite(), rec.onStep)

	assert.Equal(t, models.CampaignCompleted, status)
	require.Len(t, rec.steps, 2)
	assert.Equal(t, "SEO Content Gen", rec.steps[0].Action)
	assert.Equal(t, models.StepSuccess, rec.steps[0].Status)
	assert.Equal(t, "Campaign Wrap-Up", rec.steps[1].Action)

	require.Len(t, rec.assets, 1)
	assert.Equal(t, models.AssetArticle, rec.assets[0].Type)
	assert.Equal(t, "article body", rec.assets[0].Content)

	// Tool results for the first turn flowed back into the session.
	require.Len(t, session.results, 2)
	require.Len(t, session.results[1], 1)
	assert.Equal(t, "c1", session.results[1][0].CallID)
}

func TestRunFailsOnTransportErrorKeepingAssets(t *testing.T) {
	session := &fakeSession{script: []*provider.Turn{
		{Calls: []provider.ToolCall{
			toolCall("c1", "post_to_social_media", map[string]interface{}{"platform": "Twitter", "message": "hi", "hashtags": []string{"#x"}}),
		}},
		nil, // transport error on the second turn
	}}
	agent := newAgent(session, &fakeGen{text: "copy", img: "https://img.example/1.png"}, 12)

	rec := &recorder{}
	status := agent.Run(context.Background(), testSite(), rec.onStep)

	assert.Equal(t, models.CampaignFailed, status)
	require.Len(t, rec.assets, 1, "assets emitted before the failure survive")
	assert.Equal(t, models.AssetSocialPost, rec.assets[0].Type)

	last := rec.steps[len(rec.steps)-1]
	assert.Equal(t, models.StepError, last.Status)
}

func TestRunTurnBudgetExhaustionCompletes(t *testing.T) {
	// The model keeps acting and never calls finish_campaign.
	var script []*provider.Turn
	for i := 0; i < 20; i++ {
		script = append(script, &provider.Turn{Calls: []provider.ToolCall{
			toolCall("c", "submit_to_search_engine", map[string]interface{}{"engine": "Google", "sitemapUrl": "https://shop.example/sitemap.xml"}),
		}})
	}
	session := &fakeSession{script: script}
	agent := newAgent(session, &fakeGen{text: "<urlset/>"}, 3)

	rec := &recorder{}
	status := agent.Run(context.Background(), testSite(), rec.onStep)

	assert.Equal(t, models.CampaignCompleted, status)
	assert.Len(t, rec.assets, 3, "one asset per allowed turn")
}

func TestRunNudgesOnPlainTextTurn(t *testing.T) {
	session := &fakeSession{script: []*provider.Turn{
		{Text: "Let me think about the strategy first."},
		{Calls: []provider.ToolCall{toolCall("c1", toolFinishCampaign, nil)}},
	}}
	agent := newAgent(session, &fakeGen{text: "x"}, 12)

	rec := &recorder{}
	status := agent.Run(context.Background(), testSite(), rec.onStep)

	assert.Equal(t, models.CampaignCompleted, status)
	assert.Equal(t, 1, session.nudges)
}

func TestRunFailsWhenNoProviderConfigured(t *testing.T) {
	log := zap.NewNop()
	agent := NewAgent(&fakeOpener{err: provider.ErrNoProvider}, NewSynthesizer(&fakeGen{}, log), 12, log)

	rec := &recorder{}
	status := agent.Run(context.Background(), testSite(), rec.onStep)

	assert.Equal(t, models.CampaignFailed, status)
	require.Len(t, rec.steps, 1)
	assert.Equal(t, models.StepError, rec.steps[0].Status)
	assert.Empty(t, rec.assets)
}

func TestRunSynthesisFailureKeepsLoopAlive(t *testing.T) {
	session := &fakeSession{script: []*provider.Turn{
		{Calls: []provider.ToolCall{
			toolCall("c1", "submit_press_release", map[string]interface{}{"headline": "h", "body": "b", "outlet": "Wire"}),
		}},
		{Calls: []provider.ToolCall{toolCall("c2", toolFinishCampaign, nil)}},
	}}
	agent := newAgent(session, &fakeGen{textErr: errors.New("model overloaded")}, 12)

	rec := &recorder{}
	status := agent.Run(context.Background(), testSite(), rec.onStep)

	assert.Equal(t, models.CampaignCompleted, status)
	require.Len(t, rec.assets, 1)
	assert.Equal(t, placeholderContent, rec.assets[0].Content)
	assert.Equal(t, models.StepError, rec.steps[0].Status)
}

func TestDeriveTotals(t *testing.T) {
	assets := []models.CampaignAsset{
		{Type: models.AssetDirectorySubmission},
		{Type: models.AssetBacklink},
		{Type: models.AssetSocialPost},
		{Type: models.AssetArticle},
		{Type: models.AssetArticle},
		{Type: models.AssetSearchSubmission},
		{Type: models.AssetVideoContent},
	}
	backlinks, posts, traffic := deriveTotals(assets)
	assert.Equal(t, 2, backlinks)
	assert.Equal(t, 3, posts)
	assert.Equal(t, 2*10+3*50, traffic)
}
