package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"

	appcfg "github.com/smarttraffic/core/internal/config"
)

// Purpose names a model assignment slot. Each slot can be pinned to a
// provider and model in config; otherwise the first enabled provider wins.
type Purpose string

const (
	PurposeCampaign Purpose = "campaign"
	PurposeAnalysis Purpose = "analysis"
	PurposeChat     Purpose = "chat"
)

// ErrNoProvider is returned when no enabled provider is configured.
// Callers with a deterministic fallback treat this as a soft failure.
var ErrNoProvider = errors.New("no enabled AI provider configured")

// Client routes generation calls to the configured providers.
type Client struct {
	cfg appcfg.AIConfig
}

func NewClient(cfg appcfg.AIConfig) *Client {
	return &Client{cfg: cfg}
}

// Select resolves the provider for a purpose, or nil when none is enabled.
func (c *Client) Select(purpose Purpose) *appcfg.AIProvider {
	var assignment *appcfg.AIModelAssignment
	switch purpose {
	case PurposeCampaign:
		assignment = c.cfg.CampaignModel
	case PurposeAnalysis:
		assignment = c.cfg.AnalysisModel
	case PurposeChat:
		assignment = c.cfg.ChatModel
	}
	return selectProvider(c.cfg, assignment)
}

// genOptions collects per-call generation tweaks.
type genOptions struct {
	webSearch bool
}

// GenerateOption tweaks a single generation call.
type GenerateOption func(*genOptions)

// WithWebSearch lets the model ground its answer with live web search.
// Needed for analysis prompts where the model must look at real sites
// instead of guessing from the URL string.
func WithWebSearch() GenerateOption {
	return func(o *genOptions) { o.webSearch = true }
}

func applyGenerateOptions(opts []GenerateOption) genOptions {
	var o genOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GenerateText runs a single-shot prompt and returns the model's text.
func (c *Client) GenerateText(ctx context.Context, purpose Purpose, systemPrompt, prompt string, maxTokens int, opts ...GenerateOption) (string, error) {
	prov := c.Select(purpose)
	if prov == nil {
		return "", ErrNoProvider
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	o := applyGenerateOptions(opts)

	if o.webSearch {
		// Search grounding rides on provider server tools, which the
		// jetify single-shot path does not expose.
		if isAnthropicProviderType(prov.Type) {
			return callAnthropicWithSearch(ctx, prov, systemPrompt, prompt, maxTokens)
		}
		return callChatCompletions(ctx, prov, systemPrompt, prompt, maxTokens, true)
	}

	if isOpenAICompatibleProviderType(prov.Type) {
		return callChatCompletions(ctx, prov, systemPrompt, prompt, maxTokens, false)
	}

	model, err := buildLanguageModel(prov)
	if err != nil {
		return "", err
	}
	resp, err := jetai.GenerateText(
		ctx,
		buildPromptMessages(systemPrompt, prompt),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(maxTokens),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromResponse(resp)
}

// GenerateObject runs a prompt that must yield JSON and decodes it into out.
func (c *Client) GenerateObject(ctx context.Context, purpose Purpose, systemPrompt, prompt string, maxTokens int, out interface{}, opts ...GenerateOption) error {
	raw, err := c.GenerateText(ctx, purpose, systemPrompt, prompt, maxTokens, opts...)
	if err != nil {
		return err
	}
	return UnmarshalModelJSON(raw, out)
}

// GenerateImage produces an image for the prompt and returns a data URL.
// Anthropic providers cannot serve this; image calls go through the
// OpenAI-style images endpoint of whichever provider handles the purpose.
func (c *Client) GenerateImage(ctx context.Context, purpose Purpose, prompt string) (string, error) {
	prov := c.Select(purpose)
	if prov == nil {
		return "", ErrNoProvider
	}
	if isAnthropicProviderType(prov.Type) {
		return "", errors.New("provider does not support image generation")
	}
	return callImageGeneration(ctx, prov, prompt)
}

// GenerateVideo produces a short video for the prompt and returns its URL.
// Same provider constraints as GenerateImage; callers treat a failure as
// optional media, not a hard error.
func (c *Client) GenerateVideo(ctx context.Context, purpose Purpose, prompt string) (string, error) {
	prov := c.Select(purpose)
	if prov == nil {
		return "", ErrNoProvider
	}
	if isAnthropicProviderType(prov.Type) {
		return "", errors.New("provider does not support video generation")
	}
	return callVideoGeneration(ctx, prov, prompt)
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func isAnthropicProviderType(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

func selectProvider(cfg appcfg.AIConfig, assignment *appcfg.AIModelAssignment) *appcfg.AIProvider {
	var providerID string
	var overrideModel string
	if assignment != nil {
		providerID = strings.TrimSpace(assignment.ProviderID)
		overrideModel = strings.TrimSpace(assignment.Model)
	}

	pick := func(provider appcfg.AIProvider) *appcfg.AIProvider {
		selected := provider
		if overrideModel != "" {
			selected.DefaultModel = overrideModel
		}
		return &selected
	}

	if providerID != "" {
		for _, provider := range cfg.Providers {
			if !provider.Enabled {
				continue
			}
			if strings.TrimSpace(provider.ID) != providerID {
				continue
			}
			return pick(provider)
		}
	}

	for _, provider := range cfg.Providers {
		if !provider.Enabled {
			continue
		}
		return pick(provider)
	}

	return nil
}

func buildLanguageModel(provider *appcfg.AIProvider) (jetapi.LanguageModel, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}

	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("AI provider api key is empty")
	}

	modelID := strings.TrimSpace(provider.DefaultModel)
	endpoint := strings.TrimSpace(provider.Endpoint)

	if isAnthropicProviderType(provider.Type) {
		if modelID == "" {
			modelID = "claude-haiku-4-5-20251001"
		}

		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}

		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	if modelID == "" {
		modelID = "gpt-4o-mini"
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}

	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

func buildPromptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractTextFromResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from AI")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

// callAnthropicWithSearch runs a single-shot prompt with the web_search
// server tool enabled, collecting the final text blocks.
func callAnthropicWithSearch(ctx context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(provider.APIKey) == "" {
		return "", errors.New("AI provider api key is empty")
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(strings.TrimSpace(provider.APIKey)),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(provider.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}

	modelID := strings.TrimSpace(provider.DefaultModel)
	if modelID == "" {
		modelID = "claude-haiku-4-5-20251001"
	}

	params := anthropicclient.MessageNewParams{
		Model:     anthropicclient.Model(modelID),
		MaxTokens: int64(maxTokens),
		Tools: []anthropicclient.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropicclient.WebSearchTool20250305Param{
				MaxUses: anthropicclient.Int(3),
			}},
		},
		Messages: []anthropicclient.MessageParam{
			anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(prompt)),
		},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		params.System = []anthropicclient.TextBlockParam{{Text: systemPrompt}}
	}

	client := anthropicclient.NewClient(opts...)
	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropicclient.TextBlock); ok {
			full.WriteString(b.Text)
		}
	}
	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func callChatCompletions(ctx context.Context, provider *appcfg.AIProvider, systemPrompt, prompt string, maxTokens int, withSearch bool) (string, error) {
	if strings.TrimSpace(provider.APIKey) == "" {
		return "", errors.New("AI provider api key is empty")
	}

	endpoint := normalizeCompatibleEndpoint(provider.Endpoint)
	model := strings.TrimSpace(provider.DefaultModel)
	if model == "" {
		model = "gpt-4o-mini"
	}

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": systemPrompt,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": prompt,
	})

	payload := map[string]interface{}{
		"model":      model,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	if withSearch {
		payload["web_search_options"] = map[string]interface{}{}
	}
	body, _ := json.Marshal(payload)

	respBody, err := postJSON(ctx, endpoint+"/v1/chat/completions", provider.APIKey, body, 60*time.Second)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("openai-compatible error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("empty response from AI")
	}
	return result.Choices[0].Message.Content, nil
}

func callImageGeneration(ctx context.Context, provider *appcfg.AIProvider, prompt string) (string, error) {
	if strings.TrimSpace(provider.APIKey) == "" {
		return "", errors.New("AI provider api key is empty")
	}

	endpoint := normalizeCompatibleEndpoint(provider.Endpoint)
	body, _ := json.Marshal(map[string]interface{}{
		"model":  "gpt-image-1",
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	})

	respBody, err := postJSON(ctx, endpoint+"/v1/images/generations", provider.APIKey, body, 120*time.Second)
	if err != nil {
		return "", err
	}

	var result struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("image generation error: %s", result.Error.Message)
	}
	if len(result.Data) == 0 {
		return "", errors.New("empty image response from AI")
	}
	if result.Data[0].URL != "" {
		return result.Data[0].URL, nil
	}
	if result.Data[0].B64JSON != "" {
		return "data:image/png;base64," + result.Data[0].B64JSON, nil
	}
	return "", errors.New("empty image response from AI")
}

func callVideoGeneration(ctx context.Context, provider *appcfg.AIProvider, prompt string) (string, error) {
	if strings.TrimSpace(provider.APIKey) == "" {
		return "", errors.New("AI provider api key is empty")
	}

	endpoint := normalizeCompatibleEndpoint(provider.Endpoint)
	body, _ := json.Marshal(map[string]interface{}{
		"model":  "sora-2",
		"prompt": prompt,
		"n":      1,
	})

	respBody, err := postJSON(ctx, endpoint+"/v1/videos/generations", provider.APIKey, body, 300*time.Second)
	if err != nil {
		return "", err
	}

	var result struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("video generation error: %s", result.Error.Message)
	}
	if len(result.Data) == 0 {
		return "", errors.New("empty video response from AI")
	}
	if result.Data[0].URL != "" {
		return result.Data[0].URL, nil
	}
	if result.Data[0].B64JSON != "" {
		return "data:video/mp4;base64," + result.Data[0].B64JSON, nil
	}
	return "", errors.New("empty video response from AI")
}

func postJSON(ctx context.Context, url, apiKey string, body []byte, timeout time.Duration) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("provider request failed: %s", strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// UnmarshalModelJSON decodes a model response that is supposed to be JSON,
// tolerating markdown code fences and surrounding prose.
func UnmarshalModelJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	// Models sometimes wrap the payload in prose; try to cut out the
	// outermost object or array.
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(cleaned, pair[0])
		end := strings.LastIndex(cleaned, pair[1])
		if start >= 0 && end > start {
			if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("invalid JSON response from AI")
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeCompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		cleaned := strings.TrimRight(base, "/")
		cleaned = strings.TrimSuffix(cleaned, "/v1")
		return cleaned
	}

	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/v1")
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
