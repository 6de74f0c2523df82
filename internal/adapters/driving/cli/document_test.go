package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-health/logos/internal/core/domain"
)

// runCLI executes the root command with args and returns its combined
// output. Flag variables are reset first since cobra keeps them between runs.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	documentListJSON = false
	ingestTitle, ingestDescription, ingestJSON = "", "", false
	augmentText, augmentValidated, augmentJSON, retrieveJSON = "", false, false, false
	generateJSON, validateJSON = false, false
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commands := documentCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"list", "get", "content", "details"}, commandNames)
}

func TestDocumentListCmd_ServiceNotConfigured(t *testing.T) {
	oldService := documentService
	documentService = nil
	defer func() { documentService = oldService }()

	_, err := runCLI(t, "documents", "list")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}

func TestDocumentListCmd_Executes(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "documents", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "Hypertension Guideline")
	assert.Contains(t, out, "Chunks: 12, ready")
	assert.Contains(t, out, "Chunks: 3, pending")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentListCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "documents", "list", "--json")

	require.NoError(t, err)
	var docs []domain.DocumentSummary
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	assert.Len(t, docs, 2)
}

func TestDocumentListCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	documentService = &emptyDocumentService{}

	out, err := runCLI(t, "documents")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents ingested")
}

type emptyDocumentService struct{ mockDocumentService }

func (e *emptyDocumentService) List(_ context.Context) ([]domain.DocumentSummary, error) { return nil, nil }

func TestDocumentListCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.documents.err = errors.New("database locked")

	_, err := runCLI(t, "documents", "list")

	assert.ErrorContains(t, err, "failed to list documents: database locked")
}

func TestDocumentGetCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := runCLI(t, "documents", "get")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentGetCmd_Executes(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "documents", "get", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Chunks:   1")
	assert.Contains(t, out, "#0 page 1 (6 tokens) chunk-1")
	assert.Contains(t, out, "Blood pressure above 140/90")
}

func TestDocumentGetCmd_NotFound(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.documents.err = domain.ErrNotFound

	_, err := runCLI(t, "documents", "get", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentContentCmd_Executes(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "documents", "content", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "Blood pressure above 140/90\n", out)
}

func TestDocumentDetailsCmd_Executes(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "documents", "details", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document Details: doc-1")
	assert.Contains(t, out, "Pages:       4")
	assert.Contains(t, out, "Tokens:      1200")
	assert.Contains(t, out, "Uploaded:    2025-03-14 09:30:00")
}

func TestDocumentDetailsCmd_ServiceNotConfigured(t *testing.T) {
	oldService := documentService
	documentService = nil
	defer func() { documentService = oldService }()

	_, err := runCLI(t, "documents", "details", "doc-1")

	assert.ErrorContains(t, err, "document service not configured")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", preview("a\nb", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "ключ...", preview("ключова", 4))
}
