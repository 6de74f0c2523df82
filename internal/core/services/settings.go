package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyChunkSize          = "rag.chunk_size_words"
	KeyChunkOverlap       = "rag.chunk_overlap_words"
	KeyMinScore           = "rag.min_score"
	KeyTopK               = "rag.top_k"
	KeyMaxConcurrency     = "rag.max_concurrency"
	KeyEmbeddingBatchSize = "rag.embedding_batch_size"
	KeyValidateRelevance  = "rag.validate_relevance"
	KeyGuidelineMarkers   = "rag.guideline_markers"

	KeyEmbedProvider  = "embedding.provider"
	KeyEmbedModel     = "embedding.model"
	KeyEmbedBaseURL   = "embedding.base_url"
	KeyEmbedAPIKey    = "embedding.api_key"
	KeyEmbedDims      = "embedding.dimensions"
	KeyEmbedCacheSize = "embedding.cache_size"
	KeyEmbedRPS       = "embedding.requests_per_second"

	KeyLLMProvider = "llm.provider"
	KeyLLMModel    = "llm.model"
	KeyLLMBaseURL  = "llm.base_url"
	KeyLLMAPIKey   = "llm.api_key"
	KeyLLMRPS      = "llm.requests_per_second"

	KeyVectorProvider   = "vector_store.provider"
	KeyVectorURL        = "vector_store.url"
	KeyVectorAPIKey     = "vector_store.api_key"
	KeyVectorCollection = "vector_store.collection"

	KeyDataDir = "storage.data_dir"
)

// Environment variables consulted when the matching key is unset.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvQdrantAPIKey = "QDRANT_API_KEY"
	EnvQdrantURL    = "QDRANT_URL"
)

// profileNames are the per-call LLM profiles under llm.<name>.*.
var profileNames = []string{"context", "relevance", "fast", "deep"}

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
)

// settingKinds lists every known key and its value type.
var settingKinds = func() map[string]settingKind {
	kinds := map[string]settingKind{
		KeyChunkSize:          kindInt,
		KeyChunkOverlap:       kindInt,
		KeyMinScore:           kindFloat,
		KeyTopK:               kindInt,
		KeyMaxConcurrency:     kindInt,
		KeyEmbeddingBatchSize: kindInt,
		KeyValidateRelevance:  kindBool,
		KeyGuidelineMarkers:   kindList,
		KeyEmbedProvider:      kindString,
		KeyEmbedModel:         kindString,
		KeyEmbedBaseURL:       kindString,
		KeyEmbedAPIKey:        kindString,
		KeyEmbedDims:          kindInt,
		KeyEmbedCacheSize:     kindInt,
		KeyEmbedRPS:           kindFloat,
		KeyLLMProvider:        kindString,
		KeyLLMModel:           kindString,
		KeyLLMBaseURL:         kindString,
		KeyLLMAPIKey:          kindString,
		KeyLLMRPS:             kindFloat,
		KeyVectorProvider:     kindString,
		KeyVectorURL:          kindString,
		KeyVectorAPIKey:       kindString,
		KeyVectorCollection:   kindString,
		KeyDataDir:            kindString,
	}
	for _, p := range profileNames {
		kinds["llm."+p+".model"] = kindString
		kinds["llm."+p+".max_tokens"] = kindInt
		kinds["llm."+p+".temperature"] = kindFloat
		kinds["llm."+p+".top_p"] = kindFloat
		kinds["llm."+p+".top_logprobs"] = kindInt
	}
	for _, k := range []string{
		"confidence.weak_token_probability", "confidence.focal_max_weak_fraction",
		"confidence.high_perplexity", "confidence.high_entropy", "confidence.validity_score",
		"confidence.critical_perplexity", "confidence.critical_entropy",
		"confidence.length_alpha", "confidence.length_damping",
	} {
		kinds[k] = kindFloat
	}
	for _, k := range []string{
		"confidence.focal_max_weak_tokens", "confidence.max_weak_tokens", "confidence.weak_run_length",
	} {
		kinds[k] = kindInt
	}
	return kinds
}()

// SettingsService resolves typed settings from the config store, falling
// back to environment variables for secrets and to defaults for the rest.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// WithEnv replaces the environment lookup, for tests.
func (s *SettingsService) WithEnv(getenv func(string) string) *SettingsService {
	s.getenv = getenv
	return s
}

// Keys returns every settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		RAG: domain.RAGSettings{
			ChunkSizeWords:     s.getInt(KeyChunkSize, d.RAG.ChunkSizeWords),
			ChunkOverlapWords:  s.getInt(KeyChunkOverlap, d.RAG.ChunkOverlapWords),
			MinScore:           s.getFloat(KeyMinScore, d.RAG.MinScore),
			TopK:               s.getInt(KeyTopK, d.RAG.TopK),
			MaxConcurrency:     s.getInt(KeyMaxConcurrency, d.RAG.MaxConcurrency),
			EmbeddingBatchSize: s.getInt(KeyEmbeddingBatchSize, d.RAG.EmbeddingBatchSize),
			ValidateRelevance:  s.getBool(KeyValidateRelevance, d.RAG.ValidateRelevance),
			GuidelineMarkers:   s.getList(KeyGuidelineMarkers, d.RAG.GuidelineMarkers),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(KeyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(KeyEmbedModel, d.Embedding.Model),
			BaseURL:           s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:            s.getSecret(KeyEmbedAPIKey, EnvOpenAIAPIKey),
			CacheSize:         s.getInt(KeyEmbedCacheSize, d.Embedding.CacheSize),
			RequestsPerSecond: s.getFloat(KeyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(KeyLLMProvider, d.LLM.Provider),
			Model:             s.getString(KeyLLMModel, d.LLM.Model),
			BaseURL:           s.configStore.GetString(KeyLLMBaseURL),
			APIKey:            s.getSecret(KeyLLMAPIKey, EnvOpenAIAPIKey),
			RequestsPerSecond: s.getFloat(KeyLLMRPS, d.LLM.RequestsPerSecond),
		},
		VectorStore: domain.VectorStoreSettings{
			Provider:   s.getVectorProvider(d.VectorStore.Provider),
			URL:        s.getString(KeyVectorURL, s.envOr(EnvQdrantURL, d.VectorStore.URL)),
			APIKey:     s.getSecret(KeyVectorAPIKey, EnvQdrantAPIKey),
			Collection: s.getString(KeyVectorCollection, d.VectorStore.Collection),
		},
		Confidence: s.getThresholds(d.Confidence),
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(KeyDataDir),
		},
	}

	// Dimensions follow the model unless set explicitly.
	dims := d.Embedding.Dimensions
	if known, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		dims = known
	}
	settings.Embedding.Dimensions = s.getInt(KeyEmbedDims, dims)

	defaults := map[string]domain.ModelProfile{
		"context": d.LLM.Context, "relevance": d.LLM.Relevance, "fast": d.LLM.Fast, "deep": d.LLM.Deep,
	}
	profiles := make(map[string]domain.ModelProfile, len(profileNames))
	for _, name := range profileNames {
		p := s.getProfile(name, defaults[name])
		if p.Model == "" {
			p.Model = settings.LLM.Model
		}
		profiles[name] = p
	}
	settings.LLM.Context = profiles["context"]
	settings.LLM.Relevance = profiles["relevance"]
	settings.LLM.Fast = profiles["fast"]
	settings.LLM.Deep = profiles["deep"]

	return settings, nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindString:
		if err := validateEnum(key, value); err != nil {
			return err
		}
		parsed = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("setting %q expects an integer: %w", key, domain.ErrInvalidInput)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("setting %q expects a number: %w", key, domain.ErrInvalidInput)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("setting %q expects true or false: %w", key, domain.ErrInvalidInput)
		}
		parsed = b
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		parsed = items
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func validateEnum(key, value string) error {
	switch key {
	case KeyEmbedProvider, KeyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("invalid provider %q: %w", value, domain.ErrInvalidInput)
		}
	case KeyVectorProvider:
		if !domain.VectorStoreProvider(value).IsValid() {
			return fmt.Errorf("invalid vector store %q: %w", value, domain.ErrInvalidInput)
		}
	}
	return nil
}

// Validate checks the resolved settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %q is not configured (set %s or %s)",
			settings.Embedding.Provider, KeyEmbedAPIKey, EnvOpenAIAPIKey))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("LLM provider %q is not configured (set %s or %s)",
			settings.LLM.Provider, KeyLLMAPIKey, EnvOpenAIAPIKey))
	}
	if settings.LLM.Provider == domain.AIProviderOllama {
		errs = append(errs, errors.New("llm.provider ollama cannot return log-probabilities; use openai or an OpenAI-compatible server"))
	}
	if settings.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyEmbedDims))
	}
	if settings.RAG.ChunkSizeWords <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyChunkSize))
	}
	if settings.RAG.ChunkOverlapWords < 0 || settings.RAG.ChunkOverlapWords >= settings.RAG.ChunkSizeWords {
		errs = append(errs, fmt.Errorf("%s must be between 0 and %s", KeyChunkOverlap, KeyChunkSize))
	}
	if settings.RAG.MinScore < 0 || settings.RAG.MinScore > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0,1]", KeyMinScore))
	}
	if settings.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyTopK))
	}
	if settings.VectorStore.Provider == domain.VectorStoreQdrant && settings.VectorStore.URL == "" {
		errs = append(errs, fmt.Errorf("%s is required for qdrant", KeyVectorURL))
	}
	if v := settings.Confidence.ValidityScore; v < 0 || v > 1 {
		errs = append(errs, errors.New("confidence.validity_score must be within [0,1]"))
	}

	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getList(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getSecret(key, env string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return s.getenv(env)
}

func (s *SettingsService) envOr(env, defaultVal string) string {
	if val := s.getenv(env); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getVectorProvider(defaultVal domain.VectorStoreProvider) domain.VectorStoreProvider {
	provider := domain.VectorStoreProvider(s.configStore.GetString(KeyVectorProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getProfile(name string, d domain.ModelProfile) domain.ModelProfile {
	prefix := "llm." + name + "."
	return domain.ModelProfile{
		Model:       s.getString(prefix+"model", d.Model),
		MaxTokens:   s.getInt(prefix+"max_tokens", d.MaxTokens),
		Temperature: s.getFloat(prefix+"temperature", d.Temperature),
		TopP:        s.getFloat(prefix+"top_p", d.TopP),
		TopLogProbs: s.getInt(prefix+"top_logprobs", d.TopLogProbs),
	}
}

func (s *SettingsService) getThresholds(d domain.ConfidenceThresholds) domain.ConfidenceThresholds {
	const p = "confidence."
	return domain.ConfidenceThresholds{
		WeakTokenProbability: s.getFloat(p+"weak_token_probability", d.WeakTokenProbability),
		FocalMaxWeakTokens:   s.getInt(p+"focal_max_weak_tokens", d.FocalMaxWeakTokens),
		FocalMaxWeakFraction: s.getFloat(p+"focal_max_weak_fraction", d.FocalMaxWeakFraction),
		HighPerplexity:       s.getFloat(p+"high_perplexity", d.HighPerplexity),
		HighEntropy:          s.getFloat(p+"high_entropy", d.HighEntropy),
		MaxWeakTokens:        s.getInt(p+"max_weak_tokens", d.MaxWeakTokens),
		WeakRunLength:        s.getInt(p+"weak_run_length", d.WeakRunLength),
		ValidityScore:        s.getFloat(p+"validity_score", d.ValidityScore),
		CriticalPerplexity:   s.getFloat(p+"critical_perplexity", d.CriticalPerplexity),
		CriticalEntropy:      s.getFloat(p+"critical_entropy", d.CriticalEntropy),
		LengthAlpha:          s.getFloat(p+"length_alpha", d.LengthAlpha),
		LengthDamping:        s.getFloat(p+"length_damping", d.LengthDamping),
	}
}
