package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logos-health/logos/internal/core/domain"
)

var augmentCmd = &cobra.Command{
	Use:   "augment [request.json|-]",
	Short: "Retrieve guideline context for a patient request",
	Long: `Extract the medical context of a patient request, gate it on
confidence and retrieve matching guideline chunks.

The request is a JSON patient record read from a file or from stdin
("-"). Use --text to augment free text instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAugment,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]...",
	Short: "Search the knowledge base directly",
	Long:  `Embed each query and return the best matching chunks, skipping context extraction.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

var (
	augmentText      string
	augmentValidated bool
	augmentJSON      bool
	retrieveJSON     bool
)

func init() {
	augmentCmd.Flags().StringVar(&augmentText, "text", "", "free text to augment instead of a patient record")
	augmentCmd.Flags().BoolVar(&augmentValidated, "validated", false, "re-validate chunk relevance per document")
	augmentCmd.Flags().BoolVar(&augmentJSON, "json", false, "print the result as JSON")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(augmentCmd)
	rootCmd.AddCommand(retrieveCmd)
}

func runAugment(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	if augmentText == "" && len(args) == 0 {
		return errors.New("provide a request file, - for stdin, or --text")
	}

	var req *domain.PatientRequest
	if augmentText == "" {
		r, err := readPatientRequest(cmd, args[0])
		if err != nil {
			return err
		}
		req = r
	}

	p, err := requirePipeline(ctx)
	if err != nil {
		return err
	}
	if p.Augmentation == nil {
		return errors.New("augmentation service not configured")
	}

	var result *domain.AugmentationResult
	switch {
	case augmentText != "":
		result, err = p.Augmentation.AugmentText(ctx, augmentText)
	case augmentValidated:
		result, err = p.Augmentation.AugmentValidated(ctx, req)
	default:
		result, err = p.Augmentation.Augment(ctx, req)
	}
	if err != nil {
		return explainGateError(cmd, err)
	}

	if augmentJSON {
		return printJSON(cmd, result)
	}
	printAugmentation(cmd, result)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	p, err := requirePipeline(ctx)
	if err != nil {
		return err
	}
	if p.Augmentation == nil {
		return errors.New("augmentation service not configured")
	}

	result, err := p.Augmentation.RetrieveContext(ctx, args)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	if retrieveJSON {
		return printJSON(cmd, result)
	}
	printAugmentation(cmd, result)
	return nil
}

// readPatientRequest decodes a request from path, or stdin for "-".
func readPatientRequest(cmd *cobra.Command, path string) (*domain.PatientRequest, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req domain.PatientRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid patient request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("patient request has no analyses, comments or history: %w", err)
	}
	return &req, nil
}

// explainGateError prints the detail of a gate rejection before
// returning it.
func explainGateError(cmd *cobra.Command, err error) error {
	var notMedical *domain.NotMedicalError
	var lowConfidence *domain.ConfidenceError
	switch {
	case errors.As(err, &notMedical):
		if notMedical.Context != nil && notMedical.Context.Reason != "" {
			cmd.PrintErrf("Request rejected: %s\n", strings.TrimSpace(notMedical.Context.Reason))
		}
	case errors.As(err, &lowConfidence):
		printConfidence(cmd, fmt.Sprintf("Rejected at %s", lowConfidence.Stage), &lowConfidence.Result)
	}
	return err
}
