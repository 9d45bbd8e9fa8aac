package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	appcfg "github.com/smarttraffic/core/internal/config"
)

// ToolSpec declares one tool the model may call. InputSchema holds the
// JSON-schema property map; Required lists mandatory property names.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	Required    []string
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult feeds the outcome of one call back into the conversation.
type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// Turn is one assistant response: optional narration text plus zero or
// more tool calls. A turn with no calls means the model stopped on its own.
type Turn struct {
	Text  string
	Calls []ToolCall
}

// ToolSession is a stateful multi-turn tool conversation. The first Next
// call takes nil results and sends the opening prompt; each later call
// feeds back the results of the previous turn's tool calls.
type ToolSession interface {
	Next(ctx context.Context, results []ToolResult) (*Turn, error)

	// Nudge sends a plain user message, for steering a model that answered
	// with text instead of tool calls.
	Nudge(ctx context.Context, message string) (*Turn, error)
}

// NewToolSession opens a tool conversation with the provider assigned to
// the purpose. Anthropic providers use the native messages API; everything
// else goes through the OpenAI-style chat-completions tool protocol.
func (c *Client) NewToolSession(purpose Purpose, systemPrompt, userPrompt string, tools []ToolSpec, maxTokens int) (ToolSession, error) {
	prov := c.Select(purpose)
	if prov == nil {
		return nil, ErrNoProvider
	}
	if strings.TrimSpace(prov.APIKey) == "" {
		return nil, errors.New("AI provider api key is empty")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	if isAnthropicProviderType(prov.Type) {
		return newAnthropicToolSession(prov, systemPrompt, userPrompt, tools, maxTokens), nil
	}
	return newCompatibleToolSession(prov, systemPrompt, userPrompt, tools, maxTokens), nil
}

type anthropicToolSession struct {
	client anthropicclient.Client
	params anthropicclient.MessageNewParams
}

func newAnthropicToolSession(prov *appcfg.AIProvider, systemPrompt, userPrompt string, tools []ToolSpec, maxTokens int) *anthropicToolSession {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(strings.TrimSpace(prov.APIKey)),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(prov.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}

	modelID := strings.TrimSpace(prov.DefaultModel)
	if modelID == "" {
		modelID = "claude-haiku-4-5-20251001"
	}

	toolParams := make([]anthropicclient.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		toolParams = append(toolParams, anthropicclient.ToolUnionParam{
			OfTool: &anthropicclient.ToolParam{
				Name:        t.Name,
				Description: anthropicclient.String(t.Description),
				InputSchema: anthropicclient.ToolInputSchemaParam{
					Properties: t.InputSchema,
					Required:   t.Required,
				},
			},
		})
	}

	params := anthropicclient.MessageNewParams{
		Model:     anthropicclient.Model(modelID),
		MaxTokens: int64(maxTokens),
		Tools:     toolParams,
		Messages: []anthropicclient.MessageParam{
			anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(userPrompt)),
		},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		params.System = []anthropicclient.TextBlockParam{{Text: systemPrompt}}
	}

	return &anthropicToolSession{
		client: anthropicclient.NewClient(opts...),
		params: params,
	}
}

func (s *anthropicToolSession) Next(ctx context.Context, results []ToolResult) (*Turn, error) {
	if len(results) > 0 {
		blocks := make([]anthropicclient.ContentBlockParamUnion, 0, len(results))
		for _, res := range results {
			blocks = append(blocks, anthropicclient.ContentBlockParamUnion{
				OfToolResult: &anthropicclient.ToolResultBlockParam{
					ToolUseID: res.CallID,
					IsError:   anthropicclient.Bool(res.IsError),
					Content: []anthropicclient.ToolResultBlockParamContentUnion{
						{OfText: &anthropicclient.TextBlockParam{Text: res.Content}},
					},
				},
			})
		}
		s.params.Messages = append(s.params.Messages, anthropicclient.MessageParam{
			Role:    anthropicclient.MessageParamRoleUser,
			Content: blocks,
		})
	}
	return s.call(ctx)
}

func (s *anthropicToolSession) Nudge(ctx context.Context, message string) (*Turn, error) {
	s.params.Messages = append(s.params.Messages,
		anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(message)))
	return s.call(ctx)
}

func (s *anthropicToolSession) call(ctx context.Context) (*Turn, error) {
	msg, err := s.client.Messages.New(ctx, s.params)
	if err != nil {
		return nil, err
	}
	s.params.Messages = append(s.params.Messages, msg.ToParam())

	turn := &Turn{}
	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropicclient.TextBlock:
			text.WriteString(b.Text)
		case anthropicclient.ToolUseBlock:
			turn.Calls = append(turn.Calls, ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: json.RawMessage(b.Input),
			})
		}
	}
	turn.Text = text.String()
	return turn, nil
}

type compatibleToolSession struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	tools     []map[string]interface{}
	messages  []map[string]interface{}
}

func newCompatibleToolSession(prov *appcfg.AIProvider, systemPrompt, userPrompt string, tools []ToolSpec, maxTokens int) *compatibleToolSession {
	model := strings.TrimSpace(prov.DefaultModel)
	if model == "" {
		model = "gpt-4o-mini"
	}

	toolPayload := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		toolPayload = append(toolPayload, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters": map[string]interface{}{
					"type":       "object",
					"properties": t.InputSchema,
					"required":   t.Required,
				},
			},
		})
	}

	messages := make([]map[string]interface{}, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": systemPrompt,
		})
	}
	messages = append(messages, map[string]interface{}{
		"role":    "user",
		"content": userPrompt,
	})

	return &compatibleToolSession{
		endpoint:  normalizeCompatibleEndpoint(prov.Endpoint),
		apiKey:    strings.TrimSpace(prov.APIKey),
		model:     model,
		maxTokens: maxTokens,
		tools:     toolPayload,
		messages:  messages,
	}
}

func (s *compatibleToolSession) Next(ctx context.Context, results []ToolResult) (*Turn, error) {
	for _, res := range results {
		content := res.Content
		if res.IsError {
			content = "error: " + content
		}
		s.messages = append(s.messages, map[string]interface{}{
			"role":         "tool",
			"tool_call_id": res.CallID,
			"content":      content,
		})
	}
	return s.call(ctx)
}

func (s *compatibleToolSession) Nudge(ctx context.Context, message string) (*Turn, error) {
	s.messages = append(s.messages, map[string]interface{}{
		"role":    "user",
		"content": message,
	})
	return s.call(ctx)
}

func (s *compatibleToolSession) call(ctx context.Context) (*Turn, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"model":      s.model,
		"messages":   s.messages,
		"tools":      s.tools,
		"max_tokens": s.maxTokens,
	})

	respBody, err := postJSON(ctx, s.endpoint+"/v1/chat/completions", s.apiKey, body, 120*time.Second)
	if err != nil {
		return nil, err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return nil, fmt.Errorf("openai-compatible error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("empty response from AI")
	}

	choice := result.Choices[0].Message
	turn := &Turn{Text: choice.Content}

	assistant := map[string]interface{}{
		"role":    "assistant",
		"content": choice.Content,
	}
	if len(choice.ToolCalls) > 0 {
		rawCalls := make([]map[string]interface{}, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			args := tc.Function.Arguments
			if strings.TrimSpace(args) == "" {
				args = "{}"
			}
			turn.Calls = append(turn.Calls, ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: json.RawMessage(args),
			})
			rawCalls = append(rawCalls, map[string]interface{}{
				"id":   tc.ID,
				"type": "function",
				"function": map[string]interface{}{
					"name":      tc.Function.Name,
					"arguments": args,
				},
			})
		}
		assistant["tool_calls"] = rawCalls
	}
	s.messages = append(s.messages, assistant)

	return turn, nil
}
