package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcfg "github.com/smarttraffic/core/internal/config"
)

func TestUnmarshalModelJSON(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	t.Run("plain object", func(t *testing.T) {
		var p payload
		require.NoError(t, UnmarshalModelJSON(`{"name":"a","score":1}`, &p))
		assert.Equal(t, payload{Name: "a", Score: 1}, p)
	})

	t.Run("fenced object", func(t *testing.T) {
		var p payload
		require.NoError(t, UnmarshalModelJSON("```json\n{\"name\":\"a\",\"score\":2}\n```", &p))
		assert.Equal(t, 2, p.Score)
	})

	t.Run("object wrapped in prose", func(t *testing.T) {
		var p payload
		require.NoError(t, UnmarshalModelJSON(`Here you go: {"name":"a","score":3} hope it helps`, &p))
		assert.Equal(t, 3, p.Score)
	})

	t.Run("array wrapped in prose", func(t *testing.T) {
		var items []payload
		require.NoError(t, UnmarshalModelJSON(`The matches are: [{"name":"a","score":4}]`, &items))
		require.Len(t, items, 1)
		assert.Equal(t, 4, items[0].Score)
	})

	t.Run("no json at all", func(t *testing.T) {
		var p payload
		assert.Error(t, UnmarshalModelJSON("sorry, I cannot do that", &p))
	})
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	assert.Equal(t, "", normalizeOpenAIBaseURL(""))
	assert.Equal(t, "https://api.example.com/v1", normalizeOpenAIBaseURL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/v1", normalizeOpenAIBaseURL("https://api.example.com/v1/"))
	assert.Equal(t, "https://api.example.com/proxy/v1", normalizeOpenAIBaseURL("https://api.example.com/proxy"))
}

func TestNormalizeCompatibleEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.openai.com", normalizeCompatibleEndpoint(""))
	assert.Equal(t, "https://api.example.com", normalizeCompatibleEndpoint("https://api.example.com/"))
	assert.Equal(t, "https://api.example.com", normalizeCompatibleEndpoint("https://api.example.com/v1"))
	assert.Equal(t, "https://api.example.com/proxy", normalizeCompatibleEndpoint("https://api.example.com/proxy/v1/"))
}

func TestSelectProvider(t *testing.T) {
	cfg := appcfg.AIConfig{Providers: []appcfg.AIProvider{
		{ID: "disabled", Type: "OpenAI", Enabled: false, DefaultModel: "m0"},
		{ID: "first", Type: "Anthropic", Enabled: true, DefaultModel: "m1"},
		{ID: "second", Type: "OpenAI", Enabled: true, DefaultModel: "m2"},
	}}

	t.Run("first enabled wins without assignment", func(t *testing.T) {
		p := selectProvider(cfg, nil)
		require.NotNil(t, p)
		assert.Equal(t, "first", p.ID)
	})

	t.Run("assignment pins provider and overrides model", func(t *testing.T) {
		p := selectProvider(cfg, &appcfg.AIModelAssignment{ProviderID: "second", Model: "custom"})
		require.NotNil(t, p)
		assert.Equal(t, "second", p.ID)
		assert.Equal(t, "custom", p.DefaultModel)
	})

	t.Run("assignment to disabled provider falls back", func(t *testing.T) {
		p := selectProvider(cfg, &appcfg.AIModelAssignment{ProviderID: "disabled"})
		require.NotNil(t, p)
		assert.Equal(t, "first", p.ID)
	})

	t.Run("nothing enabled", func(t *testing.T) {
		assert.Nil(t, selectProvider(appcfg.AIConfig{}, nil))
	})
}

func TestProviderTypeNormalization(t *testing.T) {
	assert.True(t, isOpenAICompatibleProviderType("OpenAI-Compatible"))
	assert.True(t, isOpenAICompatibleProviderType("openai_compatible"))
	assert.False(t, isOpenAICompatibleProviderType("OpenAI"))
	assert.True(t, isAnthropicProviderType(" Anthropic "))
}
