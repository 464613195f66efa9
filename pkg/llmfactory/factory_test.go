package llmfactory_test

import (
	"context"
	"testing"

	"github.com/effective-security/funagent/pkg/llmfactory"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Factory(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")
	t.Setenv("GOOGLEAI_TOKEN", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 5)
	assert.Equal(t, "fakekey", cfg.Providers[1].Token)

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	fm := model.(*fakeLLM)
	assert.Equal(t, "mistral:7b", fm.model)
	assert.Equal(t, "local", fm.provider)

	model, err = f.ModelByName("llama3.2")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "llama3.2", fm.model)
	assert.Equal(t, "local", fm.provider)

	model, err = f.ModelByName("unknown", "gpt-4o")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, "openai", fm.provider)

	// falls back to the default
	model, err = f.ModelByName("non-existent-model")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "mistral:7b", fm.model)

	model, err = f.ModelByType("ANTHROPIC")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-3-5-haiku-latest", fm.model)
	assert.Equal(t, "anthropic", fm.provider)

	// cached
	model2, err := f.ModelByType("ANTHROPIC")
	require.NoError(t, err)
	assert.Same(t, model, model2)

	_, err = f.ModelByType("PERPLEXITY")
	assert.EqualError(t, err, "provider not found for type: PERPLEXITY")

	_, err = llmfactory.New(&llmfactory.Config{}).DefaultModel()
	assert.EqualError(t, err, "no providers configured")
}

func Test_CreateLLM(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	model, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "local",
		DefaultModel: "mistral:7b",
		API:          llmfactory.APIConfig{APIType: "ollama", BaseURL: "http://localhost:11434"},
	})
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOllama, model.GetProviderType())
	assert.Equal(t, "mistral:7b", model.GetName())

	model, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "openai",
		Token:        "fakekey",
		DefaultModel: "gpt-4o-mini",
		API:          llmfactory.APIConfig{APIType: "OPEN_AI"},
	})
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, model.GetProviderType())

	model, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "anthropic",
		Token:        "fakekey",
		DefaultModel: "claude-3-5-haiku-latest",
		API:          llmfactory.APIConfig{APIType: "ANTHROPIC"},
	})
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, model.GetProviderType())

	_, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "anthropic",
		DefaultModel: "claude-3-5-haiku-latest",
		API:          llmfactory.APIConfig{APIType: "ANTHROPIC"},
	})
	assert.Error(t, err)

	_, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		API: llmfactory.APIConfig{APIType: "CLOUDFLARE"},
	})
	assert.EqualError(t, err, "unsupported provider type: CLOUDFLARE")
}

func Test_LoadConfig(t *testing.T) {
	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)

	_, err = llmfactory.LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)

	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	assert.NotNil(t, f)
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderType(f.provider)
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}, nil
}
