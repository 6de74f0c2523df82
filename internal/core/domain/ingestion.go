package domain

import "time"

// IngestionResult is the outcome of ingesting one file.
type IngestionResult struct {
	FileName      string        `json:"file_name"`
	DocumentID    string        `json:"document_id,omitempty"`
	Success       bool          `json:"success"`
	AlreadyExists bool          `json:"already_exists"`
	Resumed       bool          `json:"resumed,omitempty"`
	Chunks        int           `json:"chunks"`
	Words         int           `json:"words"`
	Characters    int           `json:"characters"`
	Usage         TokenUsage    `json:"usage"`
	Message       string        `json:"message"`
	Duration      time.Duration `json:"duration"`
}

// BulkIngestionResult aggregates many ingestions.
type BulkIngestionResult struct {
	Results            []IngestionResult `json:"results"`
	SuccessCount       int               `json:"success_count"`
	FailCount          int               `json:"fail_count"`
	AlreadyExistsCount int               `json:"already_exists_count"`
	TotalChunks        int               `json:"total_chunks"`
	Usage              TokenUsage        `json:"usage"`
	Duration           time.Duration     `json:"duration"`
}

// Add folds one result into the aggregate. Already-existing documents
// count as successes.
func (b *BulkIngestionResult) Add(r IngestionResult) {
	b.Results = append(b.Results, r)
	if r.Success {
		b.SuccessCount++
	} else {
		b.FailCount++
	}
	if r.AlreadyExists {
		b.AlreadyExistsCount++
	}
	b.TotalChunks += r.Chunks
	b.Usage = b.Usage.Add(r.Usage)
}
