package domain

import (
	"sort"
	"time"
)

// RelevanceUnchecked marks a group whose evaluator call failed.
const RelevanceUnchecked = "Unchecked"

// KnowledgeChunk is a chunk returned by vector search.
type KnowledgeChunk struct {
	ChunkID             string  `json:"chunk_id"`
	DocumentID          string  `json:"document_id"`
	DocumentTitle       string  `json:"document_title"`
	DocumentDescription string  `json:"document_description,omitempty"`
	FileName            string  `json:"file_name"`
	PageNumber          int     `json:"page_number"`
	Content             string  `json:"content"`
	Score               float64 `json:"score"`
}

// RelevanceEvaluation is the verdict for one document group of one query.
type RelevanceEvaluation struct {
	DocumentID       string                     `json:"document_id"`
	RelevanceLevel   string                     `json:"relevance_level"`
	Score            float64                    `json:"score"`
	RelevantChunkIDs []string                   `json:"relevant_chunk_ids"`
	Reasoning        string                     `json:"reasoning"`
	Confidence       ConfidenceValidationResult `json:"confidence"`
	Usage            TokenUsage                 `json:"usage"`
}

// RetrievalResult holds the chunks found for one query.
type RetrievalResult struct {
	Query                string                `json:"query"`
	EmbeddingUsage       TokenUsage            `json:"embedding_usage"`
	FoundChunks          []KnowledgeChunk      `json:"found_chunks"`
	RelevanceEvaluations []RelevanceEvaluation `json:"relevance_evaluations,omitempty"`
	Duration             time.Duration         `json:"duration"`
}

// AverageScore is the mean score of the found chunks, 0 when empty.
func (r RetrievalResult) AverageScore() float64 {
	if len(r.FoundChunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.FoundChunks {
		sum += c.Score
	}
	return sum / float64(len(r.FoundChunks))
}

// AugmentationResult is the context bundle produced for one request.
type AugmentationResult struct {
	Duration          time.Duration               `json:"duration"`
	MedicalContext    *MedicalContext             `json:"medical_context,omitempty"`
	ContextConfidence *ConfidenceValidationResult `json:"context_confidence,omitempty"`
	ContextUsage      TokenUsage                  `json:"context_usage"`
	EmbeddingUsage    TokenUsage                  `json:"embedding_usage"`
	RelevanceUsage    TokenUsage                  `json:"relevance_usage"`

	// ValidationDuration is the time spent on relevance re-validation.
	ValidationDuration time.Duration `json:"validation_duration,omitempty"`

	GlobalAverageScore float64           `json:"global_average_score"`
	RetrievalResults   []RetrievalResult `json:"retrieval_results"`
}

// TotalUsage sums every provider call of the augmentation.
func (a *AugmentationResult) TotalUsage() TokenUsage {
	return a.ContextUsage.Add(a.EmbeddingUsage).Add(a.RelevanceUsage)
}

// TotalChunksFound counts chunks over all queries before deduplication.
func (a *AugmentationResult) TotalChunksFound() int {
	n := 0
	for _, r := range a.RetrievalResults {
		n += len(r.FoundChunks)
	}
	return n
}

// UniqueChunks returns the chunks of all queries deduplicated on
// (document, page), keeping the highest score, sorted by score descending.
func (a *AugmentationResult) UniqueChunks() []KnowledgeChunk {
	return UniqueChunks(a.RetrievalResults)
}

type pageKey struct {
	documentID string
	page       int
}

// UniqueChunks deduplicates chunks of results on (document, page).
// The highest scoring chunk of each key wins; ties keep the first seen.
func UniqueChunks(results []RetrievalResult) []KnowledgeChunk {
	best := make(map[pageKey]int)
	var unique []KnowledgeChunk
	for _, r := range results {
		for _, c := range r.FoundChunks {
			k := pageKey{documentID: c.DocumentID, page: c.PageNumber}
			if i, ok := best[k]; ok {
				if c.Score > unique[i].Score {
					unique[i] = c
				}
				continue
			}
			best[k] = len(unique)
			unique = append(unique, c)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})
	return unique
}

// AverageScore is the mean score of chunks, 0 when empty.
func AverageScore(chunks []KnowledgeChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	return sum / float64(len(chunks))
}
