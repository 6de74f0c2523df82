package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-health/logos/internal/adapters/driven/storage/memory"
	"github.com/logos-health/logos/internal/core/domain"
)

func noEnv(string) string { return "" }

func newTestSettings(values map[string]any) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore(values)
	return NewSettingsService(store).WithEnv(noEnv), store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettings(nil)

	settings, err := service.Get()

	require.NoError(t, err)
	d := domain.DefaultAppSettings()
	assert.Equal(t, d.RAG, settings.RAG)
	assert.Equal(t, d.Confidence, settings.Confidence)
	assert.Equal(t, d.VectorStore, settings.VectorStore)
	assert.Equal(t, 1536, settings.Embedding.Dimensions)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Context.Model)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Fast.Model)
	assert.Equal(t, "gpt-4.1", settings.LLM.Deep.Model)
	assert.Equal(t, 5, settings.LLM.Fast.TopLogProbs)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, _ := newTestSettings(map[string]any{
		KeyTopK:                   8,
		KeyMinScore:               0.65,
		KeyValidateRelevance:      true,
		KeyGuidelineMarkers:       []string{"Protocol"},
		KeyEmbedModel:             "text-embedding-3-large",
		KeyVectorProvider:         "memory",
		"llm.fast.model":          "gpt-4o",
		"llm.deep.max_tokens":     16000,
		"confidence.high_entropy": 0.9,
	})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 8, settings.RAG.TopK)
	assert.InDelta(t, 0.65, settings.RAG.MinScore, 1e-12)
	assert.True(t, settings.RAG.ValidateRelevance)
	assert.Equal(t, []string{"Protocol"}, settings.RAG.GuidelineMarkers)
	assert.Equal(t, 3072, settings.Embedding.Dimensions, "dimensions follow the model")
	assert.Equal(t, domain.VectorStoreMemory, settings.VectorStore.Provider)
	assert.Equal(t, "gpt-4o", settings.LLM.Fast.Model)
	assert.Equal(t, 16000, settings.LLM.Deep.MaxTokens)
	assert.InDelta(t, 0.9, settings.Confidence.HighEntropy, 1e-12)
}

func TestSettingsService_Get_ZeroIsAValue(t *testing.T) {
	service, _ := newTestSettings(map[string]any{KeyMinScore: 0.0, KeyChunkOverlap: 0})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Zero(t, settings.RAG.MinScore)
	assert.Zero(t, settings.RAG.ChunkOverlapWords)
}

func TestSettingsService_Get_InvalidProvidersFallBack(t *testing.T) {
	service, _ := newTestSettings(map[string]any{
		KeyLLMProvider:    "anthropic",
		KeyVectorProvider: "pinecone",
	})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, domain.VectorStoreQdrant, settings.VectorStore.Provider)
}

func TestSettingsService_Get_SecretsFromEnvironment(t *testing.T) {
	env := map[string]string{
		EnvOpenAIAPIKey: "sk-env",
		EnvQdrantAPIKey: "qd-env",
		EnvQdrantURL:    "http://qdrant:6333",
	}
	store := memory.NewConfigStore(map[string]any{KeyLLMAPIKey: "sk-config"})
	service := NewSettingsService(store).WithEnv(func(k string) string { return env[k] })

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-config", settings.LLM.APIKey, "config wins over environment")
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "qd-env", settings.VectorStore.APIKey)
	assert.Equal(t, "http://qdrant:6333", settings.VectorStore.URL)
}

func TestSettingsService_Set_ParsesByKind(t *testing.T) {
	service, store := newTestSettings(nil)

	require.NoError(t, service.Set(KeyTopK, "12"))
	require.NoError(t, service.Set(KeyMinScore, " 0.4 "))
	require.NoError(t, service.Set(KeyValidateRelevance, "true"))
	require.NoError(t, service.Set(KeyGuidelineMarkers, "Настанова, Guideline,"))
	require.NoError(t, service.Set("llm.deep.model", "o3"))

	assert.Equal(t, 12, store.GetInt(KeyTopK))
	assert.InDelta(t, 0.4, store.GetFloat(KeyMinScore), 1e-12)
	assert.True(t, store.GetBool(KeyValidateRelevance))
	assert.Equal(t, []string{"Настанова", "Guideline"}, store.GetStringSlice(KeyGuidelineMarkers))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "o3", settings.LLM.Deep.Model)
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	service, _ := newTestSettings(nil)

	tests := []struct {
		key, value string
	}{
		{"search.mode", "hybrid"},
		{KeyTopK, "many"},
		{KeyMinScore, "high"},
		{KeyValidateRelevance, "maybe"},
		{KeyLLMProvider, "anthropic"},
		{KeyVectorProvider, "pinecone"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := service.Set(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("missing api keys", func(t *testing.T) {
		service, _ := newTestSettings(nil)
		err := service.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding provider")
		assert.Contains(t, err.Error(), "LLM provider")
	})

	t.Run("configured", func(t *testing.T) {
		service, _ := newTestSettings(map[string]any{KeyLLMAPIKey: "sk", KeyEmbedAPIKey: "sk"})
		assert.NoError(t, service.Validate())
	})

	t.Run("overlap not below size", func(t *testing.T) {
		service, _ := newTestSettings(map[string]any{
			KeyLLMAPIKey: "sk", KeyEmbedAPIKey: "sk",
			KeyChunkSize: 50, KeyChunkOverlap: 50,
		})
		err := service.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), KeyChunkOverlap)
	})

	t.Run("ollama llm", func(t *testing.T) {
		service, _ := newTestSettings(map[string]any{KeyLLMProvider: "ollama", KeyEmbedAPIKey: "sk"})
		err := service.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log-probabilities")
	})
}

func TestKeys_SortedAndComplete(t *testing.T) {
	keys := Keys()

	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, KeyTopK)
	assert.Contains(t, keys, "llm.relevance.top_logprobs")
	assert.Contains(t, keys, "confidence.weak_run_length")
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _ := newTestSettings(nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
