package models

import "time"

// CampaignStatus is the terminal (or in-flight) state of an agent run.
type CampaignStatus string

const (
	CampaignRunning   CampaignStatus = "running"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// StepStatus marks the outcome of one agent action.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

// AssetType is the closed set of artifact kinds the synthesizer can produce.
// Adding a tool requires adding a case here so the synthesizer switch stays
// exhaustive.
type AssetType string

const (
	AssetArticle             AssetType = "article"
	AssetSocialPost          AssetType = "social_post"
	AssetBacklink            AssetType = "backlink"
	AssetDirectorySubmission AssetType = "directory_submission"
	AssetSearchSubmission    AssetType = "search_submission"
	AssetVideoContent        AssetType = "video_content"
	AssetLocalListing        AssetType = "local_listing"
)

// MediaType tags the optional media attachment of an asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Campaign records one agent run against one website, composed of the steps
// and assets emitted during the run plus derived totals.
type Campaign struct {
	ID        string         `json:"id"`
	WebsiteID string         `json:"website_id"`
	Status    CampaignStatus `json:"status"`
	Steps     []CampaignStep `json:"steps"`
	Assets    []CampaignAsset `json:"assets"`

	TotalBacklinks   int `json:"total_backlinks"`
	TotalPosts       int `json:"total_posts"`
	EstimatedTraffic int `json:"estimated_traffic"`

	CreatedAt time.Time `json:"created"`
}

// CampaignStep is an append-only progress event of an agent run.
type CampaignStep struct {
	ID        string     `json:"id"`
	Action    string     `json:"action"`
	Detail    string     `json:"detail"`
	Status    StepStatus `json:"status"`
	CreatedAt time.Time  `json:"created"`
}

// CampaignAsset is one produced promotional artifact. Immutable once created.
type CampaignAsset struct {
	ID        string    `json:"id"`
	Type      AssetType `json:"type"`
	Platform  string    `json:"platform"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType MediaType `json:"media_type,omitempty"`
	CreatedAt time.Time `json:"created"`
}
