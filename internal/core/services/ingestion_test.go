package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-health/logos/internal/adapters/driven/storage/memory"
	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/postprocessors/chunker"
)

const guidelineText = "Guideline: Arterial hypertension in adults\n\n" +
	"Blood pressure above 140 mmHg is elevated. Lifestyle changes come first." +
	"\fMedication is indicated when lifestyle changes fail after three months." +
	"\fFollow-up visits are scheduled every four weeks until targets are met."

type ingestionFixture struct {
	docs     *memory.DocumentStore
	embedder *mockEmbedder
	vectors  *mockVectorStore
	metrics  *recordingMetrics
	service  *IngestionService
}

func newIngestionFixture() *ingestionFixture {
	f := &ingestionFixture{
		docs:     memory.NewDocumentStore(),
		embedder: newMockEmbedder(),
		vectors:  newMockVectorStore(),
		metrics:  newRecordingMetrics(),
	}
	f.service = NewIngestionService(
		f.docs,
		mockNormalisers{},
		chunker.New(chunker.WithGuidelineMarkers("Guideline")),
		f.embedder,
		f.vectors,
		testRAGSettings(),
		WithIngestionMetrics(f.metrics),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }),
	)
	return f
}

func upload(name, text string) domain.Upload {
	return domain.Upload{FileName: name, Data: []byte(text)}
}

func TestIngestFile_IndexesDocument(t *testing.T) {
	f := newIngestionFixture()
	ctx := context.Background()

	result := f.service.IngestFile(ctx, upload("htn.pdf", guidelineText))

	require.True(t, result.Success, result.Message)
	assert.False(t, result.AlreadyExists)
	assert.Equal(t, DocumentID([]byte(guidelineText)), result.DocumentID)
	assert.Equal(t, 3, result.Chunks)
	assert.Equal(t, "htn.pdf", result.FileName)
	assert.Equal(t, 6, result.Usage.TotalTokens)

	// batch size 2 over 3 chunks
	assert.Equal(t, 2, f.embedder.batches)
	assert.Equal(t, 1, f.vectors.upsertCount())
	require.Len(t, f.vectors.upserted, 3)
	for i, rec := range f.vectors.upserted {
		assert.Equal(t, ChunkID(result.DocumentID, i), rec.ID)
		assert.Equal(t, "Guideline: Arterial hypertension in adults", rec.Payload.DocumentTitle)
		assert.Equal(t, i+1, rec.Payload.PageNumber)
	}

	doc, err := f.docs.GetByID(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.True(t, doc.Processed)
	assert.Equal(t, int64(len(guidelineText)), doc.Size)
	assert.Equal(t, 1, f.metrics.ingestions[OutcomeIndexed])
}

func TestIngestFile_SecondIngestIsIdempotent(t *testing.T) {
	f := newIngestionFixture()
	ctx := context.Background()

	first := f.service.IngestFile(ctx, upload("htn.pdf", guidelineText))
	require.True(t, first.Success)
	second := f.service.IngestFile(ctx, upload("renamed.pdf", guidelineText))

	assert.True(t, second.Success)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, 1, f.vectors.upsertCount(), "no vectors written twice")
	assert.Equal(t, 1, f.metrics.ingestions[OutcomeExists])

	docs, err := f.service.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestFile_EmptyUpload(t *testing.T) {
	f := newIngestionFixture()

	result := f.service.IngestFile(context.Background(), upload("empty.pdf", ""))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "empty")
	assert.Equal(t, 1, f.metrics.ingestions[OutcomeFailed])
}

func TestIngestFile_ParseFailure(t *testing.T) {
	f := newIngestionFixture()

	result := f.service.IngestFile(context.Background(), upload("broken.pdf", "%CORRUPT%"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "parse broken.pdf")
	assert.Zero(t, f.vectors.upsertCount())
}

func TestIngestFile_NoText(t *testing.T) {
	f := newIngestionFixture()

	result := f.service.IngestFile(context.Background(), upload("scan.pdf", "  \f \f"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, domain.ErrNoExtractableText.Error())
}

func TestIngestFile_ProvidedTitleWins(t *testing.T) {
	f := newIngestionFixture()
	up := upload("htn.pdf", guidelineText)
	up.Title = "  ESC 2024 Hypertension  "
	up.Description = "European guideline"

	result := f.service.IngestFile(context.Background(), up)

	require.True(t, result.Success)
	assert.Equal(t, "ESC 2024 Hypertension", f.vectors.upserted[0].Payload.DocumentTitle)
	assert.Equal(t, "European guideline", f.vectors.upserted[0].Payload.DocumentDescription)
}

func TestIngestFile_ResumesAfterVectorFailure(t *testing.T) {
	f := newIngestionFixture()
	ctx := context.Background()
	f.vectors.upsertErr = errors.New("qdrant unavailable")

	first := f.service.IngestFile(ctx, upload("htn.pdf", guidelineText))

	require.False(t, first.Success)
	assert.Contains(t, first.Message, "upsert vectors")
	doc, err := f.docs.GetByID(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.False(t, doc.Processed, "metadata saved but not confirmed")

	f.vectors.upsertErr = nil
	second := f.service.IngestFile(ctx, upload("htn.pdf", guidelineText))

	require.True(t, second.Success, second.Message)
	assert.True(t, second.Resumed)
	assert.Equal(t, 3, second.Chunks)
	assert.Equal(t, 1, f.metrics.ingestions[OutcomeResumed])
	doc, err = f.docs.GetByID(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.True(t, doc.Processed)
}

func TestIngestFile_EmbeddingFailureLeavesDocumentUnprocessed(t *testing.T) {
	f := newIngestionFixture()
	f.embedder.batchErr = errors.New("rate limited")

	result := f.service.IngestFile(context.Background(), upload("htn.pdf", guidelineText))

	assert.False(t, result.Success)
	assert.Equal(t, 1, f.metrics.providerErr["embedding"])
	pending, err := f.docs.ListUnprocessed(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestIngestFile_NoEmbedder(t *testing.T) {
	f := newIngestionFixture()
	svc := NewIngestionService(f.docs, mockNormalisers{}, chunker.New(), nil, f.vectors, testRAGSettings())

	result := svc.IngestFile(context.Background(), upload("htn.pdf", guidelineText))

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, domain.ErrEmbeddingUnavailable.Error())
}

func TestIngestFiles_MixedBatch(t *testing.T) {
	f := newIngestionFixture()
	uploads := []domain.Upload{
		upload("a.pdf", "Alpha guideline text about anaemia."),
		upload("bad1.pdf", "%CORRUPT one"),
		upload("b.pdf", "Beta guideline text about diabetes."),
		upload("bad2.pdf", "%CORRUPT two"),
		upload("c.pdf", "Gamma guideline text about asthma."),
	}

	bulk := f.service.IngestFiles(context.Background(), uploads)

	assert.Equal(t, 3, bulk.SuccessCount)
	assert.Equal(t, 2, bulk.FailCount)
	assert.Zero(t, bulk.AlreadyExistsCount)
	assert.Equal(t, 3, bulk.TotalChunks)
	require.Len(t, bulk.Results, 5)
	for i, up := range uploads {
		assert.Equal(t, up.FileName, bulk.Results[i].FileName, "results keep input order")
	}
	assert.False(t, bulk.Results[1].Success)
	assert.False(t, bulk.Results[3].Success)
}

func TestIngestFiles_DuplicateCountsAsSuccess(t *testing.T) {
	f := newIngestionFixture()
	ctx := context.Background()
	require.True(t, f.service.IngestFile(ctx, upload("a.pdf", guidelineText)).Success)

	bulk := f.service.IngestFiles(ctx, []domain.Upload{
		upload("a-copy.pdf", guidelineText),
		upload("b.pdf", "Beta guideline text about diabetes."),
	})

	assert.Equal(t, 2, bulk.SuccessCount)
	assert.Equal(t, 1, bulk.AlreadyExistsCount)
}

func TestIngestFiles_IdenticalBytesInOneBatch(t *testing.T) {
	f := newIngestionFixture()
	ctx := context.Background()

	bulk := f.service.IngestFiles(ctx, []domain.Upload{
		upload("a.pdf", guidelineText),
		upload("b.pdf", guidelineText),
		upload("c.pdf", "Gamma guideline text about asthma."),
	})

	assert.Equal(t, 3, bulk.SuccessCount)
	assert.Zero(t, bulk.FailCount)
	assert.Equal(t, 1, bulk.AlreadyExistsCount)
	require.Len(t, bulk.Results, 3)
	assert.NotEqual(t, bulk.Results[0].AlreadyExists, bulk.Results[1].AlreadyExists, "exactly one copy is indexed")
	assert.Equal(t, bulk.Results[0].DocumentID, bulk.Results[1].DocumentID)

	doc, err := f.docs.GetByID(ctx, DocumentID([]byte(guidelineText)))
	require.NoError(t, err)
	assert.True(t, doc.Processed)

	var forDuplicate int
	for _, r := range f.vectors.upserted {
		if r.Payload.DocumentID == doc.ID {
			forDuplicate++
		}
	}
	indexed := bulk.Results[0]
	if indexed.AlreadyExists {
		indexed = bulk.Results[1]
	}
	assert.Equal(t, indexed.Chunks, forDuplicate, "vectors written once")
}

func TestIngestFiles_ManyUploads(t *testing.T) {
	f := newIngestionFixture()
	var uploads []domain.Upload
	for i := range 20 {
		uploads = append(uploads, upload(fmt.Sprintf("doc-%02d.txt", i), fmt.Sprintf("Guideline number %d on sepsis care.", i)))
	}

	bulk := f.service.IngestFiles(context.Background(), uploads)

	assert.Equal(t, 20, bulk.SuccessCount)
	assert.Equal(t, 20, f.vectors.upsertCount())
}

func TestReconcile_FinishesUnprocessedDocuments(t *testing.T) {
	f := newIngestionFixture()
	ctx := context.Background()
	f.vectors.upsertErr = errors.New("timeout")
	f.service.IngestFiles(ctx, []domain.Upload{
		upload("a.pdf", "Alpha guideline text about anaemia."),
		upload("b.pdf", "Beta guideline text about diabetes."),
	})
	f.vectors.upsertErr = nil

	bulk, err := f.service.Reconcile(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, bulk.SuccessCount)
	for _, r := range bulk.Results {
		assert.True(t, r.Resumed)
	}
	pending, err := f.docs.ListUnprocessed(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	again, err := f.service.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Results)
}

func TestDocumentTitle(t *testing.T) {
	tests := []struct {
		name      string
		upload    domain.Upload
		extracted string
		want      string
	}{
		{"supplied", domain.Upload{FileName: "x.pdf", Title: "Given"}, "Extracted", "Given"},
		{"extracted", domain.Upload{FileName: "x.pdf"}, "Extracted", "Extracted"},
		{"file name", domain.Upload{FileName: "/tmp/asthma-2023.pdf"}, "", "asthma-2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, documentTitle(tt.upload, tt.extracted))
		})
	}
}
