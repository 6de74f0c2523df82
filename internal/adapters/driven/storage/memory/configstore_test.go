package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"rag.top_k":     3,
		"rag.min_score": 0.7,
		"llm.model":     "gpt-4o",
	})

	assert.Equal(t, 3, store.GetInt("rag.top_k"))
	assert.InDelta(t, 0.7, store.GetFloat("rag.min_score"), 1e-12)
	assert.InDelta(t, 3.0, store.GetFloat("rag.top_k"), 1e-12)
	assert.Equal(t, "gpt-4o", store.GetString("llm.model"))
	assert.Empty(t, store.Path())
}

func TestConfigStore_SetAndTypedGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("rag.validate_relevance", true))
	require.NoError(t, store.Set("rag.guideline_markers", []string{"Guideline"}))
	require.NoError(t, store.Set("rag.top_k", int64(9)))

	assert.True(t, store.GetBool("rag.validate_relevance"))
	assert.Equal(t, []string{"Guideline"}, store.GetStringSlice("rag.guideline_markers"))
	assert.Equal(t, 9, store.GetInt("rag.top_k"))

	val, ok := store.Get("rag.top_k")
	assert.True(t, ok)
	assert.Equal(t, int64(9), val)
}

func TestConfigStore_WrongTypeAndMissing(t *testing.T) {
	store := NewConfigStore(map[string]any{"k": "text"})

	assert.Zero(t, store.GetInt("k"))
	assert.Zero(t, store.GetFloat("k"))
	assert.False(t, store.GetBool("k"))
	assert.Nil(t, store.GetStringSlice("k"))
	assert.Empty(t, store.GetString("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}
