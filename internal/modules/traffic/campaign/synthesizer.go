package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/provider"
)

// ContentGenerator is the slice of the provider client the synthesizer
// needs. Narrow so tests can substitute a fake.
type ContentGenerator interface {
	GenerateText(ctx context.Context, purpose provider.Purpose, systemPrompt, prompt string, maxTokens int, opts ...provider.GenerateOption) (string, error)
	GenerateImage(ctx context.Context, purpose provider.Purpose, prompt string) (string, error)
	GenerateVideo(ctx context.Context, purpose provider.Purpose, prompt string) (string, error)
}

const placeholderContent = "Content generation unavailable. Asset recorded without generated copy."

// Synthesizer turns one tool call into exactly one CampaignAsset. It is
// total over tool names: unknown tools produce a typed fallback asset, and
// failed secondary generations produce placeholder content instead of
// errors, so a bad branch can never stall the agent loop.
type Synthesizer struct {
	gen ContentGenerator
	log *zap.Logger

	now func() time.Time
}

func NewSynthesizer(gen ContentGenerator, log *zap.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, log: log, now: time.Now}
}

// Synthesize produces the asset for a tool call. The boolean reports
// whether every required secondary generation succeeded; media generation
// is optional-success and never flips it.
func (s *Synthesizer) Synthesize(ctx context.Context, call provider.ToolCall, site *models.Website) (models.CampaignAsset, bool) {
	args := decodeArgs(call.Input)

	asset := models.CampaignAsset{
		ID:        models.NewID(),
		Type:      models.AssetArticle,
		Platform:  "web",
		CreatedAt: s.now(),
	}

	switch call.Name {
	case "post_to_social_media":
		return s.socialPost(ctx, args, asset), true

	case "create_video_content":
		return s.videoContent(ctx, args, asset), true

	case "generate_seo_article":
		prompt := fmt.Sprintf(
			"Write a comprehensive SEO article about %q for the website %s (%s). Keywords: %s. Use the following outline: %s. Format in Markdown.",
			args.str("topic", site.Niche), site.Name, site.URL,
			strings.Join(args.strList("targetKeywords"), ", "), args.str("outline", "introduction, body, conclusion"),
		)
		content, ok := s.longForm(ctx, prompt)
		asset.Type = models.AssetArticle
		asset.Platform = "Internal Blog"
		asset.Content = content
		return asset, ok

	case "create_web2_post":
		platform := args.str("platform", "Medium")
		prompt := fmt.Sprintf(
			"Write a high-quality blog post for %s titled %q. Content focus: %s. Include a natural backlink to %s with anchor %q. Write at least 400 words.",
			platform, args.str("title", site.Name), args.str("content", site.Description),
			site.URL, args.str("backlinkAnchor", site.Name),
		)
		content, ok := s.longForm(ctx, prompt)
		asset.Type = models.AssetArticle
		asset.Platform = platform
		asset.Content = content
		asset.URL = fmt.Sprintf("https://%s.com/%s-update", strings.ToLower(platform), slug(site.Name))
		return asset, ok

	case "submit_press_release":
		outlet := args.str("outlet", "PR Newswire")
		prompt := fmt.Sprintf(
			"Write a formal press release. Headline: %s. Body context: %s. For outlet: %s. Include boilerplate for %s.",
			args.str("headline", site.Name), args.str("body", site.Description), outlet, site.Name,
		)
		content, ok := s.longForm(ctx, prompt)
		asset.Type = models.AssetArticle
		asset.Platform = outlet
		asset.Content = content
		asset.URL = fmt.Sprintf("https://pr-newswire.com/%d", s.now().UnixMilli())
		return asset, ok

	case "submit_to_directory":
		dirURL := args.str("directoryUrl", "https://dir.example.com")
		prompt := fmt.Sprintf(
			"Write a professional directory listing submission for the website %q (%s). Target Directory: %s. Category: %s. Focus on the niche: %s. Keep it under 100 words.",
			site.Name, site.URL, dirURL, args.str("category", site.Niche), site.Niche,
		)
		content, ok := s.shortForm(ctx, prompt)
		asset.Type = models.AssetDirectorySubmission
		asset.Platform = "Directory"
		asset.Content = fmt.Sprintf("TARGET: %s\n\nSUBMISSION TEXT:\n%s", dirURL, content)
		asset.URL = fmt.Sprintf("%s/listing/%s", strings.TrimRight(dirURL, "/"), slug(site.Name))
		return asset, ok

	case "submit_to_search_engine":
		engine := args.str("engine", "Google")
		prompt := fmt.Sprintf(
			"Generate a valid XML sitemap snippet for %s with %s as lastmod. Include Homepage, About, Contact, and Blog pages.",
			site.URL, s.now().UTC().Format("2006-01-02"),
		)
		content, ok := s.shortForm(ctx, prompt)
		asset.Type = models.AssetSearchSubmission
		asset.Platform = engine
		asset.Content = content
		asset.URL = fmt.Sprintf("https://%s.com/webmasters/status", strings.ToLower(engine))
		return asset, ok

	case "create_local_listing":
		service := args.str("service", "Google Maps")
		prompt := fmt.Sprintf(
			"Generate Schema.org JSON-LD for a LocalBusiness: %s (%s). Service: %s. Website: %s.",
			args.str("businessName", site.Name), args.str("category", site.Niche), service, site.URL,
		)
		content, ok := s.shortForm(ctx, prompt)
		asset.Type = models.AssetLocalListing
		asset.Platform = service
		asset.Content = content
		asset.URL = fmt.Sprintf("https://%s.com/maps?q=%s", slug(service), slug(args.str("businessName", site.Name)))
		return asset, ok

	case "setup_analytics_tracking":
		platform := args.str("platform", "Google Analytics")
		prompt := fmt.Sprintf(
			"Generate the HTML/JS tracking snippet for %s with Tracking ID: %s.",
			platform, args.str("trackingId", "UA-000000"),
		)
		content, ok := s.shortForm(ctx, prompt)
		asset.Type = models.AssetSearchSubmission
		asset.Platform = platform
		asset.Content = content
		asset.URL = "https://analytics.google.com/"
		return asset, ok
	}

	// Unknown tool: typed generic fallback, never a panic or an error.
	s.log.Warn("unknown campaign tool", zap.String("tool", call.Name))
	asset.Content = fmt.Sprintf("Unsupported action %q recorded for %s.", call.Name, site.URL)
	return asset, true
}

func (s *Synthesizer) socialPost(ctx context.Context, args toolArgs, asset models.CampaignAsset) models.CampaignAsset {
	platform := args.str("platform", "Twitter")
	message := args.str("message", "")
	hashtags := args.strList("hashtags")

	asset.Type = models.AssetSocialPost
	asset.Platform = platform
	asset.Content = message
	if len(hashtags) > 0 {
		asset.Content = fmt.Sprintf("%s\n\nTags: %s", message, strings.Join(hashtags, " "))
	}
	asset.URL = fmt.Sprintf("https://%s.com/post/gen-%s", strings.ToLower(platform), models.NewID()[:8])

	// Media is optional-success: a failed image leaves a valid text post.
	imagePrompt := fmt.Sprintf("A high quality social media image for: %s. Style: Professional, Engaging.", message)
	if mediaURL, err := s.gen.GenerateImage(ctx, provider.PurposeCampaign, imagePrompt); err == nil && mediaURL != "" {
		asset.MediaURL = mediaURL
		asset.MediaType = models.MediaImage
	} else if err != nil {
		s.log.Warn("social post image generation failed", zap.Error(err))
	}
	return asset
}

func (s *Synthesizer) videoContent(ctx context.Context, args toolArgs, asset models.CampaignAsset) models.CampaignAsset {
	platform := args.str("platform", "YouTube")
	asset.Type = models.AssetVideoContent
	asset.Platform = platform
	asset.Content = fmt.Sprintf("TITLE: %s\n\nVISUAL: %s",
		args.str("title", "Promotional video"), args.str("visualPrompt", ""))
	asset.URL = fmt.Sprintf("https://%s.com/shorts/gen-%s", strings.ToLower(platform), models.NewID()[:8])

	// Media is optional-success, same as socialPost: without it the asset
	// is still a valid script-only deliverable.
	videoPrompt := args.str("visualPrompt", asset.Content)
	if mediaURL, err := s.gen.GenerateVideo(ctx, provider.PurposeCampaign, videoPrompt); err == nil && mediaURL != "" {
		asset.MediaURL = mediaURL
		asset.MediaType = models.MediaVideo
	} else if err != nil {
		s.log.Warn("video generation failed", zap.Error(err))
	}
	return asset
}

// longForm runs a quality-weighted generation; shortForm a fast one. Both
// degrade to a placeholder instead of failing.
func (s *Synthesizer) longForm(ctx context.Context, prompt string) (string, bool) {
	return s.generate(ctx, prompt, 4096)
}

func (s *Synthesizer) shortForm(ctx context.Context, prompt string) (string, bool) {
	return s.generate(ctx, prompt, 1024)
}

func (s *Synthesizer) generate(ctx context.Context, prompt string, maxTokens int) (string, bool) {
	content, err := s.gen.GenerateText(ctx, provider.PurposeCampaign, "", prompt, maxTokens)
	if err != nil || strings.TrimSpace(content) == "" {
		if err != nil {
			s.log.Warn("secondary generation failed", zap.Error(err))
		}
		return placeholderContent, false
	}
	return content, true
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "")
}
