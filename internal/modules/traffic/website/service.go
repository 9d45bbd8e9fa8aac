package website

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/provider"
	"github.com/smarttraffic/core/internal/repo"
)

// Analyzer is the structured-generation slice of the provider client.
type Analyzer interface {
	GenerateObject(ctx context.Context, purpose provider.Purpose, systemPrompt, prompt string, maxTokens int, out interface{}, opts ...provider.GenerateOption) error
}

// analysisResult is the schema the model fills during website analysis.
type analysisResult struct {
	Name                  string   `json:"name"`
	Niche                 string   `json:"niche"`
	QualityScore          int      `json:"qualityScore"`
	TargetAudienceProfile string   `json:"targetAudienceProfile"`
	AudienceInterests     []string `json:"audienceInterests"`
	ContentTypes          []string `json:"contentTypes"`
	DetectedCTAs          []string `json:"detectedCTAs"`
	SemanticTags          []string `json:"semanticTags"`
	MetaDescription       string   `json:"metaDescription"`
	MetaKeywords          []string `json:"metaKeywords"`
	EngagementPrediction  string   `json:"engagementPrediction"`
	AIAnalysisSummary     string   `json:"aiAnalysisSummary"`
}

// Service registers websites. Registration runs the AI analysis first; a
// provider failure degrades to a deterministic profile derived from the
// URL and the owner's description, never to an error.
type Service struct {
	websites *repo.Websites
	ratings  *repo.Ratings
	ai       Analyzer
	log      *zap.Logger
}

func NewService(websites *repo.Websites, ratings *repo.Ratings, ai Analyzer, log *zap.Logger) *Service {
	return &Service{websites: websites, ratings: ratings, ai: ai, log: log}
}

// Add analyzes and registers a website for the owner.
func (s *Service) Add(ctx context.Context, ownerID, rawURL, description, targetAudience string) (*models.Website, error) {
	w := models.Website{
		ID:          models.NewID(),
		OwnerID:     ownerID,
		URL:         strings.TrimSpace(rawURL),
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now(),
	}

	result, err := s.analyze(ctx, w.URL, description, targetAudience)
	if err != nil {
		s.log.Warn("website analysis failed, using fallback profile",
			zap.String("url", w.URL), zap.Error(err))
		result = fallbackProfile(w.URL, description)
	}
	applyAnalysis(&w, result)

	if err := s.websites.Append(ctx, w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Service) analyze(ctx context.Context, rawURL, description, targetAudience string) (*analysisResult, error) {
	prompt := strings.Join([]string{
		"CRITICAL MISSION: Analyze this website to enable perfect traffic matching.",
		"",
		"Website URL: " + rawURL,
		"Owner's Description: " + description,
		"Target Audience Wanted: " + targetAudience,
		"",
		"INSTRUCTIONS:",
		"1. Extract the official website title/brand name.",
		`2. Identify the PRIMARY niche (e.g. "Fashion Ecommerce", "Tech Blog", "SaaS Tool").`,
		"3. Assign a quality score (0-100) based on content depth, UX signals, and professional design.",
		"4. Create a detailed target audience profile (age, gender, interests, intent).",
		"5. Identify ALL content types present (Blog, Product Pages, Videos, Tools, Forum, ...).",
		"6. Extract conversion elements (sign-up forms, buy buttons, newsletter, contact, ...).",
		"7. List 10-15 semantic tags describing this site, for the matching algorithm.",
		"8. Extract the meta description and keywords.",
		"9. Predict engagement (how long an average user stays): Low, Medium or High.",
		"",
		"Respond with JSON only, using exactly these keys:",
		`{"name","niche","qualityScore","targetAudienceProfile","audienceInterests",`,
		`"contentTypes","detectedCTAs","semanticTags","metaDescription","metaKeywords",`,
		`"engagementPrediction","aiAnalysisSummary"}`,
	}, "\n")

	// Search grounding is what separates a real profile from one guessed
	// off the URL string.
	var result analysisResult
	if err := s.ai.GenerateObject(ctx, provider.PurposeAnalysis, "", prompt, 2048, &result, provider.WithWebSearch()); err != nil {
		return nil, err
	}
	return &result, nil
}

func applyAnalysis(w *models.Website, r *analysisResult) {
	w.Name = r.Name
	if w.Name == "" {
		w.Name = hostOf(w.URL)
	}
	w.Niche = r.Niche
	w.QualityScore = clampScore(r.QualityScore)
	w.TargetAudienceProfile = r.TargetAudienceProfile
	w.AnalysisSummary = r.AIAnalysisSummary
	w.AudienceInterests = r.AudienceInterests
	w.SemanticTags = r.SemanticTags
	w.ContentTypes = r.ContentTypes
	w.DetectedCTAs = r.DetectedCTAs
	w.MetaDescription = r.MetaDescription
	w.MetaKeywords = r.MetaKeywords
	w.EngagementPrediction = normalizeEngagement(r.EngagementPrediction)
}

func fallbackProfile(rawURL, description string) *analysisResult {
	profile := description
	if strings.TrimSpace(profile) == "" {
		profile = "General audience"
	}
	return &analysisResult{
		Name:                  hostOf(rawURL),
		Niche:                 "Uncategorized",
		QualityScore:          50,
		TargetAudienceProfile: profile,
		AudienceInterests:     []string{"general"},
		ContentTypes:          []string{"Website"},
		SemanticTags:          []string{"website"},
		DetectedCTAs:          []string{},
		MetaKeywords:          []string{},
		EngagementPrediction:  string(models.EngagementMedium),
		AIAnalysisSummary:     "Analysis unavailable. Owner description: " + description,
	}
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func normalizeEngagement(raw string) models.EngagementLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return models.EngagementLow
	case "high":
		return models.EngagementHigh
	default:
		return models.EngagementMedium
	}
}

// ByOwner lists the owner's registered websites.
func (s *Service) ByOwner(ctx context.Context, ownerID string) ([]models.Website, error) {
	return s.websites.ByOwner(ctx, ownerID)
}

// ByID returns one website, or (nil, nil) when absent.
func (s *Service) ByID(ctx context.Context, id string) (*models.Website, error) {
	return s.websites.ByID(ctx, id)
}

// Ratings returns a website's rating events, newest first.
func (s *Service) Ratings(ctx context.Context, websiteID string) ([]models.Rating, error) {
	return s.ratings.ByWebsite(ctx, websiteID)
}
