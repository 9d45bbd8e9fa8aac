package models

import "time"

// EngagementLevel is the AI-predicted depth of visitor engagement.
type EngagementLevel string

const (
	EngagementLow    EngagementLevel = "Low"
	EngagementMedium EngagementLevel = "Medium"
	EngagementHigh   EngagementLevel = "High"
)

// Website is an owner's property registered for traffic matching.
// The AI-derived profile fields are filled once at registration time by the
// analysis step; the rolling aggregates are maintained by the rating ledger.
type Website struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Niche                 string          `json:"niche"`
	QualityScore          int             `json:"quality_score"` // 0-100
	TargetAudienceProfile string          `json:"target_audience_profile"`
	AnalysisSummary       string          `json:"analysis_summary"`
	AudienceInterests     []string        `json:"audience_interests,omitempty"`
	SemanticTags          []string        `json:"semantic_tags,omitempty"`
	ContentTypes          []string        `json:"content_types,omitempty"`
	DetectedCTAs          []string        `json:"detected_ctas,omitempty"`
	MetaDescription       string          `json:"meta_description,omitempty"`
	MetaKeywords          []string        `json:"meta_keywords,omitempty"`
	EngagementPrediction  EngagementLevel `json:"engagement_prediction"`

	TotalVisits   int     `json:"total_visits"`
	AverageRating float64 `json:"average_rating"` // running mean over TotalVisits ratings

	CreatedAt time.Time `json:"created"`
}

// Rating is an immutable feedback event from one visit-rate cycle.
type Rating struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	WebsiteID        string    `json:"website_id"`
	Score            int       `json:"score"` // 1-5
	Feedback         string    `json:"feedback"`
	DwellTimeSeconds int       `json:"dwell_time_seconds"`
	CreatedAt        time.Time `json:"created"`
}
