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

func synthCall(name string, args map[string]interface{}) provider.ToolCall {
	raw, _ := json.Marshal(args)
	return provider.ToolCall{ID: "call-1", Name: name, Input: raw}
}

func TestSynthesizeSocialPostWithImage(t *testing.T) {
	s := NewSynthesizer(&fakeGen{img: "https://cdn.example/img.png"}, zap.NewNop())

	asset, ok := s.Synthesize(context.Background(), synthCall("post_to_social_media", map[string]interface{}{
		"platform": "LinkedIn",
		"message":  "Check out our new collection",
		"hashtags": []string{"#fashion", "#style"},
	}), testSite())

	assert.True(t, ok)
	assert.Equal(t, models.AssetSocialPost, asset.Type)
	assert.Equal(t, "LinkedIn", asset.Platform)
	assert.Contains(t, asset.Content, "Check out our new collection")
	assert.Contains(t, asset.Content, "#fashion #style")
	assert.Equal(t, "https://cdn.example/img.png", asset.MediaURL)
	assert.Equal(t, models.MediaImage, asset.MediaType)
	assert.Contains(t, asset.URL, "https://linkedin.com/post/gen-")
}

func TestSynthesizeSocialPostImageFailureIsOptional(t *testing.T) {
	s := NewSynthesizer(&fakeGen{imgErr: errors.New("image backend down")}, zap.NewNop())

	asset, ok := s.Synthesize(context.Background(), synthCall("post_to_social_media", map[string]interface{}{
		"platform": "Twitter",
		"message":  "hello",
	}), testSite())

	assert.True(t, ok, "missing media still yields a valid text-only asset")
	assert.Empty(t, asset.MediaURL)
	assert.Empty(t, string(asset.MediaType))
	assert.Equal(t, "hello", asset.Content)
}

func TestSynthesizeSecondaryFailureYieldsPlaceholder(t *testing.T) {
	s := NewSynthesizer(&fakeGen{textErr: errors.New("timeout")}, zap.NewNop())

	asset, ok := s.Synthesize(context.Background(), synthCall("generate_seo_article", map[string]interface{}{
		"topic":          "winter coats",
		"targetKeywords": []string{"coat", "warm"},
	}), testSite())

	assert.False(t, ok)
	assert.Equal(t, models.AssetArticle, asset.Type)
	assert.Equal(t, placeholderContent, asset.Content)
}

func TestSynthesizeUnknownToolFallsBack(t *testing.T) {
	s := NewSynthesizer(&fakeGen{}, zap.NewNop())

	asset, ok := s.Synthesize(context.Background(), synthCall("hack_the_mainframe", nil), testSite())

	assert.True(t, ok)
	assert.Equal(t, models.AssetArticle, asset.Type)
	assert.Equal(t, "web", asset.Platform)
	assert.NotEmpty(t, asset.Content)
}

func TestSynthesizeAssetTypePerTool(t *testing.T) {
	s := NewSynthesizer(&fakeGen{text: "generated"}, zap.NewNop())
	site := testSite()

	cases := []struct {
		tool string
		args map[string]interface{}
		want models.AssetType
	}{
		{"submit_to_directory", map[string]interface{}{"directoryUrl": "https://dir.example", "category": "retail"}, models.AssetDirectorySubmission},
		{"create_web2_post", map[string]interface{}{"platform": "Medium", "title": "t", "content": "c", "backlinkAnchor": "a"}, models.AssetArticle},
		{"generate_seo_article", map[string]interface{}{"topic": "t"}, models.AssetArticle},
		{"submit_press_release", map[string]interface{}{"headline": "h", "body": "b", "outlet": "Wire"}, models.AssetArticle},
		{"submit_to_search_engine", map[string]interface{}{"engine": "Bing"}, models.AssetSearchSubmission},
		{"create_video_content", map[string]interface{}{"platform": "YouTube", "title": "t", "visualPrompt": "v"}, models.AssetVideoContent},
		{"create_local_listing", map[string]interface{}{"service": "Google Maps", "businessName": "Shop"}, models.AssetLocalListing},
		{"setup_analytics_tracking", map[string]interface{}{"platform": "GA", "trackingId": "G-1"}, models.AssetSearchSubmission},
	}
	for _, tc := range cases {
		asset, ok := s.Synthesize(context.Background(), synthCall(tc.tool, tc.args), site)
		require.True(t, ok, tc.tool)
		assert.Equal(t, tc.want, asset.Type, tc.tool)
		assert.NotEmpty(t, asset.Content, tc.tool)
		assert.NotEmpty(t, asset.ID, tc.tool)
	}
}

func TestSynthesizeVideoWithMedia(t *testing.T) {
	s := NewSynthesizer(&fakeGen{video: "https://cdn.example/clip.mp4"}, zap.NewNop())

	asset, ok := s.Synthesize(context.Background(), synthCall("create_video_content", map[string]interface{}{
		"platform":     "TikTok",
		"title":        "Store tour",
		"visualPrompt": "Walkthrough of the shop floor",
	}), testSite())

	assert.True(t, ok)
	assert.Equal(t, models.AssetVideoContent, asset.Type)
	assert.Contains(t, asset.Content, "TITLE: Store tour")
	assert.Contains(t, asset.Content, "Walkthrough of the shop floor")
	assert.Equal(t, "https://cdn.example/clip.mp4", asset.MediaURL)
	assert.Equal(t, models.MediaVideo, asset.MediaType)
}

func TestSynthesizeVideoFailureIsTextOnlyScript(t *testing.T) {
	s := NewSynthesizer(&fakeGen{videoErr: errors.New("video backend down")}, zap.NewNop())

	asset, ok := s.Synthesize(context.Background(), synthCall("create_video_content", map[string]interface{}{
		"platform":     "YouTube",
		"title":        "Store tour",
		"visualPrompt": "Walkthrough of the shop floor",
	}), testSite())

	assert.True(t, ok, "missing media still yields a valid script asset")
	assert.Equal(t, models.AssetVideoContent, asset.Type)
	assert.Empty(t, asset.MediaURL)
	assert.Empty(t, string(asset.MediaType))
}
