package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-health/logos/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/logos-health/logos/internal/adapters/driven/embedding/ollama"
	"github.com/logos-health/logos/internal/adapters/driven/ratelimit"
	memoryvec "github.com/logos-health/logos/internal/adapters/driven/vectorstore/memory"
	"github.com/logos-health/logos/internal/adapters/driven/vectorstore/qdrant"
	"github.com/logos-health/logos/internal/core/domain"
)

// newProviderServer answers the ping endpoints of Ollama and OpenAI.
func newProviderServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags", "/models":
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
		{
			name: "unknown provider returns nil (not configured)",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			svc.Close()
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	t.Run("known model", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			Model:    "mxbai-embed-large",
		})
		require.NoError(t, err)
		assert.Equal(t, 1024, svc.Dimensions())
	})

	t.Run("configured size wins", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:   domain.AIProviderOpenAI,
			APIKey:     "test-key",
			Model:      "text-embedding-3-large",
			Dimensions: 256,
		})
		require.NoError(t, err)
		assert.Equal(t, 256, svc.Dimensions())
	})
}

func TestCreateEmbeddingService_Decorators(t *testing.T) {
	base := domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"}

	t.Run("cache outermost", func(t *testing.T) {
		s := base
		s.CacheSize = 16
		s.RequestsPerSecond = 5

		svc, err := CreateEmbeddingService(&s)

		require.NoError(t, err)
		assert.IsType(t, &cache.EmbeddingService{}, svc)
		assert.Equal(t, 768, svc.Dimensions())
	})

	t.Run("throttle only", func(t *testing.T) {
		s := base
		s.RequestsPerSecond = 5

		svc, err := CreateEmbeddingService(&s)

		require.NoError(t, err)
		assert.IsType(t, &ratelimit.EmbeddingService{}, svc)
	})

	t.Run("no decorators", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&base)

		require.NoError(t, err)
		assert.IsType(t, &ollamaembed.EmbeddingService{}, svc)
	})
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.LLMSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.LLMSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider is rejected",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "llama3.2",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "log-probabilities",
		},
		{
			name: "openai provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "gpt-4o-mini",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			svc.Close()
		})
	}
}

func TestCreateLLMService_Throttled(t *testing.T) {
	svc, err := CreateLLMService(&domain.LLMSettings{
		Provider:          domain.AIProviderOpenAI,
		APIKey:            "test-key",
		RequestsPerSecond: 2,
	})

	require.NoError(t, err)
	assert.IsType(t, &ratelimit.LLMService{}, svc)
	assert.Equal(t, "gpt-4o-mini", svc.ModelName())
}

func TestCreateVectorStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := CreateVectorStore(&domain.VectorStoreSettings{Provider: domain.VectorStoreMemory}, 3)
		require.NoError(t, err)
		assert.IsType(t, &memoryvec.Store{}, store)
	})

	t.Run("qdrant", func(t *testing.T) {
		store, err := CreateVectorStore(&domain.VectorStoreSettings{
			Provider:   domain.VectorStoreQdrant,
			URL:        "http://localhost:6333",
			Collection: "guidelines",
		}, 1536)
		require.NoError(t, err)
		assert.IsType(t, &qdrant.Store{}, store)
	})

	t.Run("qdrant needs dimensions", func(t *testing.T) {
		_, err := CreateVectorStore(&domain.VectorStoreSettings{Provider: domain.VectorStoreQdrant}, 0)
		assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := CreateVectorStore(&domain.VectorStoreSettings{Provider: "faiss"}, 3)
		assert.ErrorContains(t, err, "unsupported vector store")
	})
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := newProviderServer(t, http.StatusOK)

		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		})

		require.NoError(t, err)
		require.NotNil(t, svc)
		svc.Close()
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := newProviderServer(t, http.StatusInternalServerError)

		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		})

		assert.Nil(t, svc)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestCreateAndValidateLLMService(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := newProviderServer(t, http.StatusOK)

		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "test-key",
			BaseURL:  srv.URL,
		})

		require.NoError(t, err)
		require.NotNil(t, svc)
		svc.Close()
	})

	t.Run("bad key", func(t *testing.T) {
		srv := newProviderServer(t, http.StatusUnauthorized)

		_, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "wrong",
			BaseURL:  srv.URL,
		})

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("ollama rejected", func(t *testing.T) {
		_, err := CreateAndValidateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama})

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestInit(t *testing.T) {
	srv := newProviderServer(t, http.StatusOK)
	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   domain.AIProviderOllama,
			BaseURL:    srv.URL,
			Model:      "all-minilm",
			Dimensions: 384,
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "test-key",
			BaseURL:  srv.URL,
		},
		VectorStore: domain.VectorStoreSettings{Provider: domain.VectorStoreMemory},
	}

	result, err := Init(context.Background(), settings)

	require.NoError(t, err)
	defer result.Close()
	assert.NotNil(t, result.EmbeddingService)
	assert.NotNil(t, result.LLMService)
	assert.NotNil(t, result.VectorStore)
}

func TestInit_EmbeddingNotConfigured(t *testing.T) {
	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
	}

	_, err := Init(context.Background(), settings)

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestInit_LLMUnreachable(t *testing.T) {
	embed := newProviderServer(t, http.StatusOK)
	llm := newProviderServer(t, http.StatusServiceUnavailable)
	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: embed.URL},
		LLM:       domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", BaseURL: llm.URL},
		VectorStore: domain.VectorStoreSettings{
			Provider: domain.VectorStoreMemory,
		},
	}

	_, err := Init(context.Background(), settings)

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
