package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/logos-health/logos/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve_context tool.
type RetrieveInput struct {
	Queries []string `json:"queries" jsonschema:"search queries for the clinical guideline knowledge base"`
}

// AugmentInput is the input schema for the augment tool. Exactly one of
// Request and Text must be set.
type AugmentInput struct {
	Request           *domain.PatientRequest `json:"request,omitempty" jsonschema:"structured patient record"`
	Text              string                 `json:"text,omitempty" jsonschema:"free-text clinical question, used when request is absent"`
	ValidateRelevance bool                   `json:"validate_relevance,omitempty" jsonschema:"re-rate retrieved chunks per document with the LLM"`
}

// GenerateInput is the input schema for the generate_response tool.
type GenerateInput struct {
	Request domain.PatientRequest `json:"request" jsonschema:"structured patient record"`
}

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	FileName    string `json:"file_name" jsonschema:"file name, its extension selects the parser"`
	Content     string `json:"content" jsonschema:"document text, Markdown or plain text"`
	Title       string `json:"title,omitempty" jsonschema:"document title, detected from the text when empty"`
	Description string `json:"description,omitempty" jsonschema:"short description of the document"`
}

// ValidateInput is the input schema for the validate_confidence tool.
type ValidateInput struct {
	Tokens []TokenInput `json:"tokens" jsonschema:"generated tokens with their natural-log probabilities"`
}

// TokenInput is one generated token.
type TokenInput struct {
	Token   string  `json:"token"`
	LogProb float64 `json:"logprob"`
}

// ChunkOutput is one retrieved guideline chunk.
type ChunkOutput struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	PageNumber    int     `json:"page_number"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
}

// ConfidenceOutput is a confidence verdict.
type ConfidenceOutput struct {
	Score       float64  `json:"score"`
	IsValid     bool     `json:"is_valid"`
	Level       string   `json:"level"`
	Uncertainty string   `json:"uncertainty"`
	Perplexity  float64  `json:"perplexity"`
	Entropy     float64  `json:"entropy"`
	WeakTokens  []string `json:"weak_tokens,omitempty"`
	Penalties   []string `json:"penalties,omitempty"`
}

// AugmentOutput is the output schema for retrieve_context and augment.
type AugmentOutput struct {
	IsMedical         bool              `json:"is_medical"`
	Complex           bool              `json:"requires_complex_analysis"`
	Reason            string            `json:"reason,omitempty"`
	Queries           []string          `json:"queries"`
	ContextConfidence *ConfidenceOutput `json:"context_confidence,omitempty"`
	Chunks            []ChunkOutput     `json:"chunks"`
	AverageScore      float64           `json:"average_score"`
}

// GenerateOutput is the output schema for generate_response.
type GenerateOutput struct {
	Status        string            `json:"status"`
	Conclusion    string            `json:"conclusion"`
	Report        string            `json:"report"`
	DeepReasoning bool              `json:"deep_reasoning"`
	Model         string            `json:"model"`
	Confidence    *ConfidenceOutput `json:"confidence,omitempty"`
	Sources       []ChunkOutput     `json:"sources"`
}

// IngestOutput is the output schema for ingest_document.
type IngestOutput struct {
	DocumentID    string `json:"document_id"`
	Success       bool   `json:"success"`
	AlreadyExists bool   `json:"already_exists"`
	Chunks        int    `json:"chunks"`
	Message       string `json:"message"`
}

// registerTools registers all tool handlers with the MCP server. Tools
// whose port is missing are not offered.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve_context",
		Description: "Search the clinical guideline knowledge base with explicit queries",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "augment",
		Description: "Extract the medical context of a patient record or question and " +
			"retrieve matching guideline chunks. Fails when the input is not medical " +
			"or the model is not confident in its reading.",
	}, s.handleAugment)

	if s.ports.Generation != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "generate_response",
			Description: "Produce a guideline-grounded analysis of a patient record with a confidence verdict",
		}, s.handleGenerate)
	}

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_document",
			Description: "Add a text or Markdown guideline to the knowledge base",
		}, s.handleIngest)
	}

	if s.ports.Confidence != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "validate_confidence",
			Description: "Score token log-probabilities of a model answer",
		}, s.handleValidate)
	}
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, AugmentOutput, error) {
	result, err := s.ports.Augmentation.RetrieveContext(ctx, input.Queries)
	if err != nil {
		return nil, AugmentOutput{}, err
	}
	out := toAugmentOutput(result)
	out.Queries = input.Queries
	return nil, out, nil
}

func (s *Server) handleAugment(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AugmentInput,
) (*mcp.CallToolResult, AugmentOutput, error) {
	var (
		result *domain.AugmentationResult
		err    error
	)
	switch {
	case input.Request != nil && input.ValidateRelevance:
		result, err = s.ports.Augmentation.AugmentValidated(ctx, input.Request)
	case input.Request != nil:
		result, err = s.ports.Augmentation.Augment(ctx, input.Request)
	case input.Text != "":
		result, err = s.ports.Augmentation.AugmentText(ctx, input.Text)
	default:
		return nil, AugmentOutput{}, errors.New("either request or text is required")
	}
	if err != nil {
		return nil, AugmentOutput{}, err
	}
	return nil, toAugmentOutput(result), nil
}

func (s *Server) handleGenerate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateInput,
) (*mcp.CallToolResult, GenerateOutput, error) {
	resp, err := s.ports.Generation.GenerateResponse(ctx, &input.Request)
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	out := GenerateOutput{
		DeepReasoning: resp.DeepReasoning,
		Model:         resp.Model,
		Confidence:    toConfidenceOutput(resp.GenerationConfidence),
		Sources:       []ChunkOutput{},
	}
	if a := resp.Analysis; a != nil {
		out.Status = a.Summary.Status
		out.Conclusion = a.Summary.ShortConclusion
		out.Report = a.FormattedReport
	}
	if resp.Augmentation != nil {
		out.Sources = toChunkOutputs(resp.Augmentation.UniqueChunks())
	}
	return nil, out, nil
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.FileName == "" || input.Content == "" {
		return nil, IngestOutput{}, errors.New("file_name and content are required")
	}
	r := s.ports.Ingestion.IngestFile(ctx, domain.Upload{
		FileName:    input.FileName,
		Title:       input.Title,
		Description: input.Description,
		Data:        []byte(input.Content),
	})
	return nil, IngestOutput{
		DocumentID:    r.DocumentID,
		Success:       r.Success,
		AlreadyExists: r.AlreadyExists,
		Chunks:        r.Chunks,
		Message:       r.Message,
	}, nil
}

func (s *Server) handleValidate(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ValidateInput,
) (*mcp.CallToolResult, ConfidenceOutput, error) {
	tokens := make([]domain.LogProbToken, len(input.Tokens))
	for i, t := range input.Tokens {
		tokens[i] = domain.LogProbToken{Token: t.Token, LogProb: t.LogProb}
	}
	result := s.ports.Confidence.Validate(tokens, domain.TokenUsage{})
	return nil, *toConfidenceOutput(&result), nil
}

func toAugmentOutput(result *domain.AugmentationResult) AugmentOutput {
	out := AugmentOutput{
		Queries:           []string{},
		ContextConfidence: toConfidenceOutput(result.ContextConfidence),
		Chunks:            toChunkOutputs(result.UniqueChunks()),
		AverageScore:      result.GlobalAverageScore,
	}
	if mc := result.MedicalContext; mc != nil {
		out.IsMedical = mc.IsMedical
		out.Complex = mc.RequiresComplexAnalysis
		out.Reason = mc.Reason
		out.Queries = mc.Queries
	}
	return out
}

func toChunkOutputs(chunks []domain.KnowledgeChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkOutput{
			ChunkID:       c.ChunkID,
			DocumentID:    c.DocumentID,
			DocumentTitle: c.DocumentTitle,
			PageNumber:    c.PageNumber,
			Content:       c.Content,
			Score:         c.Score,
		}
	}
	return out
}

func toConfidenceOutput(r *domain.ConfidenceValidationResult) *ConfidenceOutput {
	if r == nil {
		return nil
	}
	out := &ConfidenceOutput{
		Score:       r.Score,
		IsValid:     r.IsValid,
		Level:       r.Level.String(),
		Uncertainty: string(r.Uncertainty),
		Perplexity:  r.Metrics.Perplexity,
		Entropy:     r.Metrics.Entropy,
		Penalties:   r.Penalties,
	}
	for _, t := range r.WeakTokens {
		out.WeakTokens = append(out.WeakTokens, t.Token)
	}
	return out
}
