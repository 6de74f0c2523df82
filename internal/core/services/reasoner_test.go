package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

func TestMedicalReasoner_UsesPromptStore(t *testing.T) {
	llm := newMockLLM().on("medical_context", reply(medicalContext("q")))
	r := NewMedicalReasoner(llm, testLLMSettings())
	r.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptMedicalContext: "custom triage prompt",
	}})

	_, err := r.ExtractContext(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, "custom triage prompt", llm.calls[0].SystemPrompt)
}

func TestMedicalReasoner_FallsBackToDefaultPrompt(t *testing.T) {
	llm := newMockLLM().on("medical_analysis", reply(sampleAnalysis()))
	r := NewMedicalReasoner(llm, testLLMSettings())
	r.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptMedicalAnalysis: "   ",
	}})

	_, err := r.Analyze(context.Background(), patientRequest(), "", nil, testLLMSettings().Fast, true)

	require.NoError(t, err)
	assert.Equal(t, defaultMedicalAnalysisPrompt, llm.calls[0].SystemPrompt)
	assert.Contains(t, llm.calls[0].UserPayload, "No guideline sources were found.")
}

func TestMedicalReasoner_NoLLM(t *testing.T) {
	r := NewMedicalReasoner(nil, testLLMSettings())

	_, err := r.ExtractContext(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = r.EvaluateRelevance(context.Background(), "q", []domain.KnowledgeChunk{{ChunkID: "a"}})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestEvaluateRelevance_Payload(t *testing.T) {
	llm := newMockLLM().on("relevance_verdict", reply(domain.RelevanceVerdict{
		RelevanceLevel: "Medium", Score: 0.6, RelevantChunkIDs: []string{"x9", "c2"},
	}))
	r := NewMedicalReasoner(llm, testLLMSettings())
	chunks := []domain.KnowledgeChunk{
		{ChunkID: "c1", DocumentID: "d", DocumentTitle: "Asthma", PageNumber: 4, Content: "Inhaled steroids."},
		{ChunkID: "c2", DocumentID: "d", DocumentTitle: "Asthma", PageNumber: 5, Content: "Step-up therapy."},
	}

	reading, err := r.EvaluateRelevance(context.Background(), "asthma step therapy", chunks)

	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, reading.Verdict.RelevantChunkIDs)

	var sent relevanceRequest
	require.NoError(t, json.Unmarshal([]byte(llm.calls[0].UserPayload), &sent))
	assert.Equal(t, "asthma step therapy", sent.Query)
	assert.Equal(t, "Asthma", sent.Document.Title)
	require.Len(t, sent.Chunks, 2)
	assert.Equal(t, 5, sent.Chunks[1].Page)
	assert.Equal(t, "relevance-model", llm.calls[0].Options.Model)
}

func TestEvaluateRelevance_NoChunks(t *testing.T) {
	r := NewMedicalReasoner(newMockLLM(), testLLMSettings())

	_, err := r.EvaluateRelevance(context.Background(), "q", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyze_ReportsServedModel(t *testing.T) {
	llm := newMockLLM().on("medical_analysis", reply(sampleAnalysis()))
	r := NewMedicalReasoner(llm, testLLMSettings())

	reading, err := r.Analyze(context.Background(), patientRequest(), "h", nil, domain.ModelProfile{}, false)

	require.NoError(t, err)
	assert.Equal(t, "mock-model", reading.Model)
	assert.Empty(t, reading.LogProbs)
}

func TestFormatSources(t *testing.T) {
	chunks := []domain.KnowledgeChunk{
		{ChunkID: "a1", FileName: "htn.pdf", PageNumber: 3, Content: "Target below 130."},
		{ChunkID: "b7", FileName: "ckd.pdf", PageNumber: 12, Content: "Check eGFR."},
	}

	got := FormatSources(chunks)

	assert.Equal(t, "--- SOURCE: htn.pdf (p. 3) [a1] ---\nTarget below 130.\n\n"+
		"--- SOURCE: ckd.pdf (p. 12) [b7] ---\nCheck eGFR.", got)
	assert.Equal(t, "No guideline sources were found.", FormatSources(nil))
}

func TestCleanHypothesis(t *testing.T) {
	assert.Empty(t, CleanHypothesis(nil))
	assert.Equal(t, "Iron deficiency likely",
		CleanHypothesis(&domain.MedicalContext{Reason: "```json\nIron   deficiency\n likely```"}))
	assert.Equal(t, "A B",
		CleanHypothesis(&domain.MedicalContext{Reason: "A", ThinkingScratchpad: " B "}))
}
