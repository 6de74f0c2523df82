package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/logos-health/logos/internal/connectors/filesystem"
	"github.com/logos-health/logos/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|dir]...",
	Short: "Add guideline documents to the knowledge base",
	Long: `Parse, chunk, embed and store guideline files.

Directories are scanned recursively for PDF, text and Markdown files.
Re-ingesting a file with identical content is a no-op; a document whose
ingestion was interrupted is resumed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Finish interrupted ingestions",
	Long:  `Re-embed and store every document whose vectors were never confirmed.`,
	Args:  cobra.NoArgs,
	RunE:  runReconcile,
}

var (
	ingestTitle       string
	ingestDescription string
	ingestJSON        bool
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (single file only)")
	ingestCmd.Flags().StringVarP(&ingestDescription, "description", "d", "", "document description")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	p, err := requirePipeline(ctx)
	if err != nil {
		return err
	}
	if p.Ingestion == nil {
		return errors.New("ingestion service not configured")
	}

	uploads, err := collectUploads(ctx, args)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		return errors.New("no supported files found")
	}
	if ingestTitle != "" {
		if len(uploads) > 1 {
			return errors.New("--title can only be used with a single file")
		}
		uploads[0].Title = ingestTitle
	}
	for i := range uploads {
		uploads[i].Description = ingestDescription
	}

	result := p.Ingestion.IngestFiles(ctx, uploads)
	if ingestJSON {
		return printJSON(cmd, result)
	}
	printBulk(cmd, result)
	if result.FailCount > 0 {
		return fmt.Errorf("%d of %d files failed", result.FailCount, len(result.Results))
	}
	return nil
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	p, err := requirePipeline(ctx)
	if err != nil {
		return err
	}
	if p.Ingestion == nil {
		return errors.New("ingestion service not configured")
	}

	result, err := p.Ingestion.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if len(result.Results) == 0 {
		cmd.Println("Nothing to reconcile.")
		return nil
	}
	printBulk(cmd, result)
	return nil
}

func printBulk(cmd *cobra.Command, result domain.BulkIngestionResult) {
	for _, r := range result.Results {
		printIngestion(cmd, r)
	}
	cmd.Printf("\n%d succeeded (%d already present), %d failed, %d chunks, %d tokens.\n",
		result.SuccessCount, result.AlreadyExistsCount, result.FailCount, result.TotalChunks, result.Usage.TotalTokens)
}

// collectUploads reads files directly and scans directories with the
// filesystem connector.
func collectUploads(ctx context.Context, paths []string) ([]domain.Upload, error) {
	var uploads []domain.Upload
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := filesystem.New(path).Scan(ctx)
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, found...)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		uploads = append(uploads, domain.Upload{FileName: filepath.Base(path), Data: data})
	}
	return uploads, nil
}

// requirePipeline loads the AI-backed services or explains how to
// configure them.
func requirePipeline(ctx context.Context) (*Pipeline, error) {
	p, err := loadPipeline(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w\nRun 'logos settings check' to diagnose", err)
	}
	return p, nil
}
