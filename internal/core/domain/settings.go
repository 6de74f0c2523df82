package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// VectorStoreProvider identifies a vector store backend.
type VectorStoreProvider string

// Available vector store backends.
const (
	// VectorStoreQdrant is a Qdrant server over REST.
	VectorStoreQdrant VectorStoreProvider = "qdrant"

	// VectorStoreMemory is an in-process store, lost on exit.
	VectorStoreMemory VectorStoreProvider = "memory"
)

// IsValid returns true if the backend is recognised.
func (p VectorStoreProvider) IsValid() bool {
	return p == VectorStoreQdrant || p == VectorStoreMemory
}

// String returns the string representation.
func (p VectorStoreProvider) String() string {
	return string(p)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// CacheSize bounds the query embedding cache. Zero disables it.
	CacheSize int

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ModelProfile holds the generation options for one kind of LLM call.
type ModelProfile struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64

	// TopLogProbs asks for alternatives per position. Zero requests only
	// the chosen token's log-probability.
	TopLogProbs int
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the default model name for profiles that leave it empty.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64

	// Context extracts medical context and search queries.
	Context ModelProfile

	// Relevance re-rates retrieved chunks per document.
	Relevance ModelProfile

	// Fast generates the final analysis for ordinary cases.
	Fast ModelProfile

	// Deep generates the final analysis for complex cases.
	Deep ModelProfile
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RAGSettings holds chunking and retrieval parameters.
type RAGSettings struct {
	ChunkSizeWords     int
	ChunkOverlapWords  int
	MinScore           float64
	TopK               int
	MaxConcurrency     int
	EmbeddingBatchSize int

	// ValidateRelevance makes generation re-validate chunk relevance per document.
	ValidateRelevance bool

	// GuidelineMarkers are line prefixes that identify a guideline title.
	GuidelineMarkers []string
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	Provider   VectorStoreProvider
	URL        string
	APIKey     string
	Collection string
}

// ConfidenceThresholds are the tunable constants of confidence validation.
type ConfidenceThresholds struct {
	// WeakTokenProbability marks a token as weak below this probability.
	WeakTokenProbability float64

	// FocalMaxWeakTokens and FocalMaxWeakFraction bound Focal uncertainty.
	FocalMaxWeakTokens   int
	FocalMaxWeakFraction float64

	// HighPerplexity and HighEntropy trigger their risk penalties.
	HighPerplexity float64
	HighEntropy    float64

	// MaxWeakTokens and WeakRunLength trigger the weak-token penalty.
	MaxWeakTokens int
	WeakRunLength int

	// ValidityScore is the minimum score of a valid result.
	ValidityScore float64

	// CriticalPerplexity and CriticalEntropy cap the level at Low.
	CriticalPerplexity float64
	CriticalEntropy    float64

	// LengthAlpha and LengthDamping shape the length factor.
	LengthAlpha   float64
	LengthDamping float64
}

// DefaultConfidenceThresholds returns the calibrated defaults.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{
		WeakTokenProbability: 0.35,
		FocalMaxWeakTokens:   3,
		FocalMaxWeakFraction: 0.10,
		HighPerplexity:       5.0,
		HighEntropy:          1.2,
		MaxWeakTokens:        7,
		WeakRunLength:        5,
		ValidityScore:        0.55,
		CriticalPerplexity:   10.0,
		CriticalEntropy:      2.0,
		LengthAlpha:          0.65,
		LengthDamping:        0.15,
	}
}

// StorageSettings holds local storage configuration.
type StorageSettings struct {
	// DataDir holds the SQLite database. Empty means ~/.logos/data.
	DataDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	RAG         RAGSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorStore VectorStoreSettings
	Confidence  ConfidenceThresholds
	Storage     StorageSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and must come from config or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		RAG: RAGSettings{
			ChunkSizeWords:     300,
			ChunkOverlapWords:  50,
			MinScore:           0.5,
			TopK:               5,
			MaxConcurrency:     5,
			EmbeddingBatchSize: 64,
			GuidelineMarkers:   []string{"Настанова", "Guideline"},
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOpenAI,
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			CacheSize:  512,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o-mini",
			Context: ModelProfile{
				MaxTokens: 1024, Temperature: 0.2, TopP: 0.95, TopLogProbs: 5,
			},
			Relevance: ModelProfile{
				MaxTokens: 1024, Temperature: 0.2, TopP: 0.95, TopLogProbs: 5,
			},
			Fast: ModelProfile{
				MaxTokens: 4096, Temperature: 0.2, TopP: 0.95, TopLogProbs: 5,
			},
			Deep: ModelProfile{
				Model: "gpt-4.1", MaxTokens: 8192, Temperature: 0.2, TopP: 0.95,
			},
		},
		VectorStore: VectorStoreSettings{
			Provider:   VectorStoreQdrant,
			URL:        "http://localhost:6333",
			Collection: "logos_knowledge_base",
		},
		Confidence: DefaultConfidenceThresholds(),
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
