package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/logger"
)

// Ensure MedicalReasoner can take custom prompts.
var _ driven.PromptStoreAware = (*MedicalReasoner)(nil)

// defaultMedicalContextPrompt is the fallback prompt when no PromptStore is configured.
const defaultMedicalContextPrompt = `You are a clinical triage assistant.
Decide whether the input concerns human health. If it does, write a short
preliminary hypothesis in "reason" and derive 1 to 5 search queries for a
clinical guideline knowledge base. Set requires_complex_analysis when the
case needs deep multi-step reasoning. If it does not, set is_medical to
false, explain why in "reason" and return no queries. Answer in JSON.`

// defaultRelevancePrompt is the fallback prompt when no PromptStore is configured.
const defaultRelevancePrompt = `You check retrieved guideline fragments against a search query.
Rate how relevant the document is to the query, list the ids of the
fragments that actually help answer it and explain briefly. Never list an
id that was not given. Answer in JSON.`

// defaultMedicalAnalysisPrompt is the fallback prompt when no PromptStore is configured.
const defaultMedicalAnalysisPrompt = `You are a physician assistant preparing a structured analysis.
Use the patient data, the preliminary hypothesis and the guideline sources.
Prefer guideline sources and cite them by id in references. Mark each
recommendation as Guideline or ModelKnowledge. Answer in JSON.`

// MedicalReasoner runs the structured LLM calls of the pipeline.
type MedicalReasoner struct {
	llm         driven.LLMService
	promptStore driven.PromptStore
	settings    domain.LLMSettings
}

// NewMedicalReasoner creates a reasoner over the given LLM.
func NewMedicalReasoner(llm driven.LLMService, settings domain.LLMSettings) *MedicalReasoner {
	return &MedicalReasoner{llm: llm, settings: settings}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the reasoner uses hardcoded default prompts.
func (r *MedicalReasoner) SetPromptStore(store driven.PromptStore) {
	r.promptStore = store
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (r *MedicalReasoner) loadPrompt(name, fallback string) string {
	if r.promptStore == nil {
		return fallback
	}
	prompt, err := r.promptStore.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Debug("Prompt %q unavailable, using default: %v", name, err)
		return fallback
	}
	return prompt
}

// ContextReading is the extractor answer with its token evidence.
type ContextReading struct {
	Context  domain.MedicalContext
	Raw      string
	Usage    domain.TokenUsage
	LogProbs []domain.LogProbToken
}

// ExtractContext reads a request payload (a *domain.PatientRequest or
// free text) and returns the medical context with log-probabilities.
func (r *MedicalReasoner) ExtractContext(ctx context.Context, payload any) (*ContextReading, error) {
	if r.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	prompt := r.loadPrompt(driven.PromptMedicalContext, defaultMedicalContextPrompt)
	res, err := completeStructured[domain.MedicalContext](ctx, r.llm, prompt, payload, r.settings.Context, true)
	if err != nil {
		return nil, fmt.Errorf("extract medical context: %w", err)
	}
	if len(res.LogProbs) == 0 {
		logger.Warn("Context extraction returned no log-probabilities, confidence will be Uncertain")
	}

	return &ContextReading{
		Context:  res.Value,
		Raw:      res.Raw,
		Usage:    res.Usage,
		LogProbs: res.LogProbs,
	}, nil
}

// relevanceRequest is the payload of one relevance evaluation.
type relevanceRequest struct {
	Query    string              `json:"query"`
	Document relevanceDocument   `json:"document"`
	Chunks   []relevanceFragment `json:"chunks"`
}

type relevanceDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type relevanceFragment struct {
	ID      string `json:"id"`
	Page    int    `json:"page"`
	Content string `json:"content"`
}

// RelevanceReading is the evaluator verdict with its token evidence.
type RelevanceReading struct {
	Verdict  domain.RelevanceVerdict
	Usage    domain.TokenUsage
	LogProbs []domain.LogProbToken
}

// EvaluateRelevance rates the chunks of one document against one query.
// Chunk ids the model returns that were not given are dropped.
func (r *MedicalReasoner) EvaluateRelevance(ctx context.Context, query string, chunks []domain.KnowledgeChunk) (*RelevanceReading, error) {
	if r.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("evaluate relevance: %w", domain.ErrInvalidInput)
	}

	req := relevanceRequest{
		Query: query,
		Document: relevanceDocument{
			ID:          chunks[0].DocumentID,
			Title:       chunks[0].DocumentTitle,
			Description: chunks[0].DocumentDescription,
		},
	}
	known := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		known[c.ChunkID] = true
		req.Chunks = append(req.Chunks, relevanceFragment{ID: c.ChunkID, Page: c.PageNumber, Content: c.Content})
	}

	prompt := r.loadPrompt(driven.PromptRelevanceEvaluation, defaultRelevancePrompt)
	res, err := completeStructured[domain.RelevanceVerdict](ctx, r.llm, prompt, req, r.settings.Relevance, true)
	if err != nil {
		return nil, fmt.Errorf("evaluate relevance: %w", err)
	}

	verdict := res.Value
	ids := verdict.RelevantChunkIDs[:0:0]
	for _, id := range verdict.RelevantChunkIDs {
		if known[id] {
			ids = append(ids, id)
		} else {
			logger.Debug("Relevance evaluator returned unknown chunk id %q", id)
		}
	}
	verdict.RelevantChunkIDs = ids

	return &RelevanceReading{Verdict: verdict, Usage: res.Usage, LogProbs: res.LogProbs}, nil
}

// analysisRequest is the payload of the final analysis call.
type analysisRequest struct {
	Request    *domain.PatientRequest `json:"request"`
	Hypothesis string                 `json:"preliminary_hypothesis,omitempty"`
	Context    string                 `json:"guideline_context"`
}

// AnalysisReading is the generated analysis with its token evidence.
type AnalysisReading struct {
	Analysis domain.MedicalAnalysis
	Model    string
	Usage    domain.TokenUsage
	LogProbs []domain.LogProbToken
}

// Analyze generates the final analysis with the given model profile.
func (r *MedicalReasoner) Analyze(
	ctx context.Context,
	req *domain.PatientRequest,
	hypothesis string,
	chunks []domain.KnowledgeChunk,
	profile domain.ModelProfile,
	withLogProbs bool,
) (*AnalysisReading, error) {
	if r.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	payload := analysisRequest{
		Request:    req,
		Hypothesis: hypothesis,
		Context:    FormatSources(chunks),
	}

	prompt := r.loadPrompt(driven.PromptMedicalAnalysis, defaultMedicalAnalysisPrompt)
	res, err := completeStructured[domain.MedicalAnalysis](ctx, r.llm, prompt, payload, profile, withLogProbs)
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	model := res.Model
	if model == "" {
		model = profile.Model
	}
	return &AnalysisReading{Analysis: res.Value, Model: model, Usage: res.Usage, LogProbs: res.LogProbs}, nil
}

// FormatSources renders chunks as the guideline context block.
func FormatSources(chunks []domain.KnowledgeChunk) string {
	if len(chunks) == 0 {
		return "No guideline sources were found."
	}
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- SOURCE: %s (p. %d) [%s] ---\n%s", c.FileName, c.PageNumber, c.ChunkID, c.Content)
	}
	return b.String()
}

// CleanHypothesis joins the extractor's reason and scratchpad into one
// plain line: code fences are removed and whitespace collapsed.
func CleanHypothesis(mc *domain.MedicalContext) string {
	if mc == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	for _, s := range []string{mc.Reason, mc.ThinkingScratchpad} {
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```", "")
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
