package campaign

import (
	"encoding/json"
	"fmt"

	"github.com/smarttraffic/core/internal/provider"
)

// toolFinishCampaign is the structured completion signal: the model calls
// it when the mission is done instead of emitting a magic string.
const toolFinishCampaign = "finish_campaign"

func strProp(desc string) map[string]interface{} {
	p := map[string]interface{}{"type": "string"}
	if desc != "" {
		p["description"] = desc
	}
	return p
}

func strListProp(desc string) map[string]interface{} {
	p := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
	if desc != "" {
		p["description"] = desc
	}
	return p
}

func campaignTools() []provider.ToolSpec {
	return []provider.ToolSpec{
		{
			Name:        "submit_to_directory",
			Description: "Submit website to a high-DA web directory",
			InputSchema: map[string]interface{}{
				"directoryUrl": strProp(""),
				"category":     strProp(""),
				"description":  strProp(""),
			},
			Required: []string{"directoryUrl", "category", "description"},
		},
		{
			Name:        "create_web2_post",
			Description: "Create a blog post on platforms like Medium, Blogger, or WordPress",
			InputSchema: map[string]interface{}{
				"platform":       strProp(""),
				"title":          strProp(""),
				"content":        strProp(""),
				"backlinkAnchor": strProp(""),
			},
			Required: []string{"platform", "title", "content", "backlinkAnchor"},
		},
		{
			Name:        "post_to_social_media",
			Description: "Create and schedule a social media post with an image",
			InputSchema: map[string]interface{}{
				"platform": strProp(""),
				"message":  strProp(""),
				"hashtags": strListProp(""),
			},
			Required: []string{"platform", "message", "hashtags"},
		},
		{
			Name:        "generate_seo_article",
			Description: "Generate a full SEO article for content marketing",
			InputSchema: map[string]interface{}{
				"topic":          strProp(""),
				"targetKeywords": strListProp(""),
				"outline":        strProp(""),
			},
			Required: []string{"topic", "targetKeywords"},
		},
		{
			Name:        "submit_press_release",
			Description: "Submit a press release to news aggregators",
			InputSchema: map[string]interface{}{
				"headline": strProp(""),
				"body":     strProp(""),
				"outlet":   strProp(""),
			},
			Required: []string{"headline", "body", "outlet"},
		},
		{
			Name:        "submit_to_search_engine",
			Description: "Submit website URL to search engines for indexing",
			InputSchema: map[string]interface{}{
				"engine":     strProp(""),
				"sitemapUrl": strProp(""),
			},
			Required: []string{"engine", "sitemapUrl"},
		},
		{
			Name:        "create_video_content",
			Description: "Script a short promotional video",
			InputSchema: map[string]interface{}{
				"platform":     strProp(""),
				"title":        strProp(""),
				"visualPrompt": strProp("Description of the video scene"),
			},
			Required: []string{"platform", "title", "visualPrompt"},
		},
		{
			Name:        "create_local_listing",
			Description: "Create a business listing on map services",
			InputSchema: map[string]interface{}{
				"service":      strProp(""),
				"businessName": strProp(""),
				"category":     strProp(""),
			},
			Required: []string{"service", "businessName", "category"},
		},
		{
			Name:        "setup_analytics_tracking",
			Description: "Configure analytics tooling for the website",
			InputSchema: map[string]interface{}{
				"platform":   strProp("e.g. Google Analytics, Facebook Pixel"),
				"trackingId": strProp(""),
			},
			Required: []string{"platform", "trackingId"},
		},
		{
			Name:        toolFinishCampaign,
			Description: "Signal that every required campaign action is done. Call this exactly once, as the last action.",
			InputSchema: map[string]interface{}{
				"summary": strProp("One-sentence wrap-up of what was accomplished"),
			},
			Required: []string{},
		},
	}
}

var actionNames = map[string]string{
	"submit_to_directory":      "Directory Submission",
	"create_web2_post":         "Web 2.0 Blog Post",
	"post_to_social_media":     "Social Media Blast",
	"generate_seo_article":     "SEO Content Gen",
	"submit_press_release":     "PR Distribution",
	"submit_to_search_engine":  "Search Indexing",
	"create_video_content":     "Video Creation",
	"create_local_listing":     "Local Map Listing",
	"setup_analytics_tracking": "Analytics Config",
	toolFinishCampaign:         "Campaign Wrap-Up",
}

func actionName(toolName string) string {
	if name, ok := actionNames[toolName]; ok {
		return name
	}
	return "Traffic Action"
}

func callDetail(name string, args toolArgs) string {
	switch name {
	case "submit_to_directory":
		return "Submitting to " + args.str("directoryUrl", "Niche Directory")
	case "post_to_social_media":
		return "Posting to " + args.str("platform", "social media")
	case "create_web2_post":
		return "Publishing on " + args.str("platform", "blog platform")
	case "generate_seo_article":
		return "Drafting: " + args.str("topic", "article")
	case "submit_press_release":
		return "Outlet: " + args.str("outlet", "newswire")
	case "submit_to_search_engine":
		return "Pinging " + args.str("engine", "search engine")
	case "create_video_content":
		return "Scripting for " + args.str("platform", "video platform")
	case "create_local_listing":
		return "Listing on " + args.str("service", "map service")
	case "setup_analytics_tracking":
		return "Configuring " + args.str("platform", "analytics")
	case toolFinishCampaign:
		return args.str("summary", "Closing out the campaign")
	}
	return "Processing..."
}

// toolArgs is the decoded argument bag of one tool call.
type toolArgs map[string]interface{}

func decodeArgs(input json.RawMessage) toolArgs {
	args := toolArgs{}
	if len(input) > 0 {
		_ = json.Unmarshal(input, &args)
	}
	return args
}

func (a toolArgs) str(key, fallback string) string {
	if v, ok := a[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func (a toolArgs) strList(key string) []string {
	raw, ok := a[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (a toolArgs) String() string {
	data, err := json.Marshal(map[string]interface{}(a))
	if err != nil {
		return fmt.Sprintf("%v", map[string]interface{}(a))
	}
	return string(data)
}
