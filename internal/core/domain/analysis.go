package domain

import "time"

// MedicalContext is the context extractor's reading of a request.
type MedicalContext struct {
	IsMedical               bool     `json:"is_medical" jsonschema:"description=true when the input concerns human health"`
	RequiresComplexAnalysis bool     `json:"requires_complex_analysis" jsonschema:"description=true when the case needs deep multi-step reasoning"`
	Reason                  string   `json:"reason" jsonschema:"description=short preliminary hypothesis or refusal reason"`
	Queries                 []string `json:"queries" jsonschema:"description=search queries for the clinical guideline knowledge base"`
	ThinkingScratchpad      string   `json:"thinking_scratchpad,omitempty" jsonschema:"description=optional reasoning trace"`
}

// RelevanceVerdict is the evaluator's answer for one document group.
type RelevanceVerdict struct {
	RelevanceLevel   string   `json:"relevance_level" jsonschema:"enum=High,enum=Medium,enum=Low,enum=None"`
	Score            float64  `json:"score" jsonschema:"minimum=0,maximum=1"`
	RelevantChunkIDs []string `json:"relevant_chunk_ids"`
	Reasoning        string   `json:"reasoning"`
}

// MedicalAnalysis is the final structured answer.
type MedicalAnalysis struct {
	Summary         AnalysisSummary `json:"summary"`
	KeyFindings     []string        `json:"key_findings"`
	Hypotheses      []Hypothesis    `json:"hypotheses"`
	Plan            CarePlan        `json:"plan"`
	References      []Reference     `json:"references"`
	FormattedReport string          `json:"formatted_report"`
}

// AnalysisSummary is the headline of an analysis.
type AnalysisSummary struct {
	Status          string `json:"status" jsonschema:"enum=Normal,enum=Attention,enum=Critical"`
	ShortConclusion string `json:"short_conclusion"`
}

// Hypothesis is one candidate condition.
type Hypothesis struct {
	Condition  string `json:"condition"`
	Confidence string `json:"confidence" jsonschema:"enum=High,enum=Medium,enum=Low"`
	Rationale  string `json:"rationale"`
}

// CarePlan groups recommendations by kind.
type CarePlan struct {
	Diagnostics         []Recommendation `json:"diagnostics"`
	Consultations       []Recommendation `json:"consultations"`
	LifestyleAndTherapy []Recommendation `json:"lifestyle_and_therapy"`
}

// Recommendation is one recommended action.
type Recommendation struct {
	Action            string `json:"action"`
	Priority          string `json:"priority" jsonschema:"enum=High,enum=Medium,enum=Low"`
	ProtocolReference string `json:"protocol_reference,omitempty"`
	SourceType        string `json:"source_type" jsonschema:"enum=Guideline,enum=ModelKnowledge"`
	Reasoning         string `json:"reasoning"`
}

// Reference cites a knowledge-base chunk.
type Reference struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
}

// StageTimings reports wall-clock per orchestration stage.
type StageTimings struct {
	Augmentation time.Duration `json:"augmentation"`
	Generation   time.Duration `json:"generation"`
	Total        time.Duration `json:"total"`
}

// StageUsage reports token usage per orchestration stage.
type StageUsage struct {
	Augmentation TokenUsage `json:"augmentation"`
	Generation   TokenUsage `json:"generation"`
	Total        TokenUsage `json:"total"`
}

// RagResponse is the orchestrator's end-user answer.
type RagResponse struct {
	Analysis     *MedicalAnalysis    `json:"analysis"`
	Augmentation *AugmentationResult `json:"augmentation"`

	// GenerationConfidence is nil on the deep reasoning path.
	GenerationConfidence *ConfidenceValidationResult `json:"generation_confidence,omitempty"`

	DeepReasoning bool         `json:"deep_reasoning"`
	Model         string       `json:"model"`
	Timings       StageTimings `json:"timings"`
	Usage         StageUsage   `json:"usage"`
}
