package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/logos-health/logos/internal/core/domain"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// styled renders s with style only when w is a terminal, so piped and
// captured output stays plain.
func styled(w io.Writer, style lipgloss.Style, s string) string {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s
	}
	return style.Render(s)
}

func heading(cmd *cobra.Command, s string) {
	cmd.Println(styled(cmd.OutOrStdout(), headingStyle, s))
}

func field(cmd *cobra.Command, label string, value any) {
	cmd.Printf("  %s %v\n", styled(cmd.OutOrStdout(), labelStyle, fmt.Sprintf("%-12s", label+":")), value)
}

// levelStyle colours a confidence level by how far it can be trusted.
func levelStyle(level domain.ConfidenceLevel) lipgloss.Style {
	switch {
	case level >= domain.ConfidenceHigh:
		return okStyle
	case level == domain.ConfidenceMedium:
		return warnStyle
	default:
		return failStyle
	}
}

func printConfidence(cmd *cobra.Command, title string, r *domain.ConfidenceValidationResult) {
	if r == nil {
		return
	}
	verdict := "valid"
	if !r.IsValid {
		verdict = "rejected"
	}
	heading(cmd, title)
	field(cmd, "Level", styled(cmd.OutOrStdout(), levelStyle(r.Level), r.Level.String()))
	field(cmd, "Score", fmt.Sprintf("%.3f (%s)", r.Score, verdict))
	field(cmd, "Perplexity", fmt.Sprintf("%.3f", r.Metrics.Perplexity))
	field(cmd, "Entropy", fmt.Sprintf("%.3f", r.Metrics.Entropy))
	field(cmd, "Tokens", fmt.Sprintf("%d (%d weak, longest run %d)",
		r.Metrics.TokenCount, r.Metrics.WeakTokenCount, r.Metrics.LongestWeakRun))
	field(cmd, "Uncertainty", r.Uncertainty)
	if len(r.Penalties) > 0 {
		field(cmd, "Penalties", strings.Join(r.Penalties, ", "))
	}
	if len(r.WeakTokens) > 0 {
		weak := make([]string, 0, len(r.WeakTokens))
		for _, t := range r.WeakTokens {
			weak = append(weak, fmt.Sprintf("%q %.2f", t.Token, t.Probability()))
		}
		field(cmd, "Weak tokens", strings.Join(weak, ", "))
	}
}

func printAugmentation(cmd *cobra.Command, result *domain.AugmentationResult) {
	if mc := result.MedicalContext; mc != nil {
		heading(cmd, "Medical context")
		field(cmd, "Medical", mc.IsMedical)
		field(cmd, "Complex", mc.RequiresComplexAnalysis)
		if mc.Reason != "" {
			field(cmd, "Reason", mc.Reason)
		}
		cmd.Println()
	}
	printConfidence(cmd, "Context confidence", result.ContextConfidence)
	if result.ContextConfidence != nil {
		cmd.Println()
	}

	for _, r := range result.RetrievalResults {
		heading(cmd, fmt.Sprintf("Query: %s", r.Query))
		if len(r.FoundChunks) == 0 {
			cmd.Println("  No chunks above the score threshold.")
		}
		for _, c := range r.FoundChunks {
			cmd.Printf("  [%.3f] %s p.%d (%s)\n", c.Score, c.DocumentTitle, c.PageNumber, c.ChunkID)
		}
		for _, e := range r.RelevanceEvaluations {
			cmd.Printf("  relevance %s: %s %.2f\n", e.DocumentID, e.RelevanceLevel, e.Score)
		}
		cmd.Println()
	}

	usage := result.TotalUsage()
	cmd.Printf("Chunks: %d found, %d unique. Average score %.3f.\n",
		result.TotalChunksFound(), len(result.UniqueChunks()), result.GlobalAverageScore)
	cmd.Printf("Tokens: %d (%d input). Took %s.\n",
		usage.TotalTokens, usage.InputTokens, result.Duration.Round(1e6))
}

func printIngestion(cmd *cobra.Command, r domain.IngestionResult) {
	switch {
	case !r.Success:
		cmd.Printf("%s %s: %s\n", styled(cmd.OutOrStdout(), failStyle, "FAIL"), r.FileName, r.Message)
	case r.AlreadyExists:
		cmd.Printf("%s %s: already ingested (%s)\n", styled(cmd.OutOrStdout(), labelStyle, "SKIP"), r.FileName, r.DocumentID)
	default:
		cmd.Printf("%s %s: %d chunks, %d words (%s)\n",
			styled(cmd.OutOrStdout(), okStyle, "OK"), r.FileName, r.Chunks, r.Words, r.DocumentID)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
