package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Browse the knowledge base",
	Long:    `List ingested guideline documents and inspect their chunks.`,
	RunE:    runDocumentList,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDetailsCmd = &cobra.Command{
	Use:   "details [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDetails,
}

var documentListJSON bool

func init() {
	documentListCmd.Flags().BoolVar(&documentListJSON, "json", false, "print as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDetailsCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if documentListJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested. Run 'logos ingest <file>' to add one.")
		return nil
	}

	for i := range docs {
		status := "ready"
		if !docs[i].Processed {
			status = "pending"
		}
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:  %s\n", docs[i].Title)
		cmd.Printf("    File:   %s (%d bytes)\n", docs[i].FileName, docs[i].Size)
		cmd.Printf("    Chunks: %d, %s\n", docs[i].ChunkCount, status)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  File:     %s\n", doc.FileName)
	if doc.Description != "" {
		cmd.Printf("  About:    %s\n", doc.Description)
	}
	cmd.Printf("  Uploaded: %s\n", doc.UploadedAt.Format(timeLayout))
	cmd.Printf("  Chunks:   %d\n", len(doc.Chunks))

	for _, c := range doc.Chunks {
		cmd.Printf("\n  #%d page %d (%d tokens) %s\n", c.Position, c.PageNumber, c.TokenCount, c.ID)
		cmd.Printf("    %s\n", preview(c.Content, 160))
	}
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	content, err := documentService.GetContent(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(content)
	return nil
}

func runDocumentDetails(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	details, err := documentService.GetDetails(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document details: %w", err)
	}

	cmd.Printf("Document Details: %s\n\n", details.ID)
	cmd.Printf("  Title:       %s\n", details.Title)
	if details.Description != "" {
		cmd.Printf("  Description: %s\n", details.Description)
	}
	cmd.Printf("  File:        %s\n", details.FileName)
	cmd.Printf("  Size:        %d bytes\n", details.Size)
	cmd.Printf("  Pages:       %d\n", details.Pages)
	cmd.Printf("  Chunks:      %d\n", details.ChunkCount)
	cmd.Printf("  Words:       %d\n", details.TotalWords)
	cmd.Printf("  Tokens:      %d\n", details.TotalTokens)
	cmd.Printf("  Processed:   %t\n", details.Processed)
	cmd.Printf("  Uploaded:    %s\n", details.UploadedAt.Format(timeLayout))
	return nil
}

// preview shortens s to at most n runes on one line.
func preview(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' || c == '\t' {
			r[i] = ' '
		}
	}
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
