package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smarttraffic/core/internal/models"
	"github.com/smarttraffic/core/internal/provider"
	"github.com/smarttraffic/core/internal/repo"
)

// maxDailyMatches caps how many sites one feed request surfaces.
const maxDailyMatches = 50

// candidateCap bounds the prompt size on large marketplaces.
const candidateCap = 100

// Matcher is the structured-generation slice of the provider client.
type Matcher interface {
	GenerateObject(ctx context.Context, purpose provider.Purpose, systemPrompt, prompt string, maxTokens int, out interface{}, opts ...provider.GenerateOption) error
}

// Match is one feed entry: a website paired with the model's affinity
// judgement for this user.
type Match struct {
	Website                 models.Website `json:"website"`
	MatchScore              int            `json:"match_score"` // 0-100
	Reasoning               string         `json:"reasoning"`
	PredictedEngagementTime int            `json:"predicted_engagement_time"` // seconds
}

type rawMatch struct {
	WebsiteID               string `json:"websiteId"`
	MatchScore              int    `json:"matchScore"`
	Reasoning               string `json:"reasoning"`
	PredictedEngagementTime int    `json:"predictedEngagementTime"`
}

type candidate struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Name      string   `json:"name"`
	Niche     string   `json:"niche"`
	Quality   int      `json:"quality"`
	Audience  string   `json:"audience"`
	Interests []string `json:"interests"`
	Tags      []string `json:"tags"`
}

// Service builds the generator discovery feed: unvisited websites ranked
// by model-judged affinity with the user's interests. Provider failure
// yields an empty feed, never an error.
type Service struct {
	users    *repo.Users
	websites *repo.Websites
	ratings  *repo.Ratings
	ai       Matcher
	log      *zap.Logger
}

func NewService(users *repo.Users, websites *repo.Websites, ratings *repo.Ratings, ai Matcher, log *zap.Logger) *Service {
	return &Service{users: users, websites: websites, ratings: ratings, ai: ai, log: log}
}

// FindMatches returns the feed for one user. Websites the user already
// rated or owns are excluded; unknown website ids in the model response
// are dropped; scores are clamped to [0,100].
func (s *Service) FindMatches(ctx context.Context, userID string) ([]Match, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return []Match{}, nil
	}

	sites, err := s.websites.All(ctx)
	if err != nil {
		return nil, err
	}
	visited, err := s.visitedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Website, len(sites))
	candidates := make([]candidate, 0, len(sites))
	for _, w := range sites {
		if w.OwnerID == userID {
			continue
		}
		if _, seen := visited[w.ID]; seen {
			continue
		}
		byID[w.ID] = w
		candidates = append(candidates, candidate{
			ID: w.ID, URL: w.URL, Name: w.Name, Niche: w.Niche,
			Quality: w.QualityScore, Audience: w.TargetAudienceProfile,
			Interests: w.AudienceInterests, Tags: w.SemanticTags,
		})
		if len(candidates) >= candidateCap {
			break
		}
	}
	if len(candidates) == 0 {
		return []Match{}, nil
	}

	raw, err := s.askModel(ctx, user, candidates)
	if err != nil {
		s.log.Warn("matching generation failed, returning empty feed", zap.Error(err))
		return []Match{}, nil
	}

	matches := make([]Match, 0, len(raw))
	for _, m := range raw {
		site, ok := byID[m.WebsiteID]
		if !ok {
			continue
		}
		engagement := m.PredictedEngagementTime
		if engagement <= 0 {
			engagement = 30
		}
		matches = append(matches, Match{
			Website:                 site,
			MatchScore:              clamp(m.MatchScore, 0, 100),
			Reasoning:               m.Reasoning,
			PredictedEngagementTime: engagement,
		})
		if len(matches) >= maxDailyMatches {
			break
		}
	}
	return matches, nil
}

func (s *Service) askModel(ctx context.Context, user *models.User, candidates []candidate) ([]rawMatch, error) {
	siteList, err := json.Marshal(candidates)
	if err != nil {
		return nil, err
	}

	limit := maxDailyMatches
	if len(candidates) < limit {
		limit = len(candidates)
	}
	prompt := fmt.Sprintf(
		"Match user to websites.\nUser Interests: %s\nSites: %s\nReturn TOP %d matches as JSON array: [{websiteId, matchScore, reasoning, predictedEngagementTime}].",
		strings.Join(user.Interests, ", "), siteList, limit,
	)

	var raw []rawMatch
	if err := s.ai.GenerateObject(ctx, provider.PurposeAnalysis, "", prompt, 4096, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Service) visitedSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	history, err := s.ratings.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	visited := make(map[string]struct{}, len(history))
	for _, r := range history {
		visited[r.WebsiteID] = struct{}{}
	}
	return visited, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
