package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [request.json|-]",
	Short: "Produce a confidence-checked analysis for a patient request",
	Long: `Augment a patient request with guideline context and generate the
final analysis. The report is followed by the confidence verdict of the
answer; deep reasoning answers carry no verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var generateJSON bool

func init() {
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "print the full response as JSON")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	req, err := readPatientRequest(cmd, args[0])
	if err != nil {
		return err
	}

	p, err := requirePipeline(ctx)
	if err != nil {
		return err
	}
	if p.Generation == nil {
		return errors.New("generation service not configured")
	}

	resp, err := p.Generation.GenerateResponse(ctx, req)
	if err != nil {
		return explainGateError(cmd, err)
	}
	if generateJSON {
		return printJSON(cmd, resp)
	}

	if a := resp.Analysis; a != nil {
		heading(cmd, a.Summary.Status+": "+a.Summary.ShortConclusion)
		cmd.Println()
		cmd.Println(a.FormattedReport)
		cmd.Println()
	}
	if resp.GenerationConfidence != nil {
		printConfidence(cmd, "Answer confidence "+resp.GenerationConfidence.Summary(), resp.GenerationConfidence)
	} else if resp.DeepReasoning {
		cmd.Println("Deep reasoning answer, confidence not scored.")
	}

	cmd.Printf("\nModel %s. Tokens %d. Took %s.\n",
		resp.Model, resp.Usage.Total.TotalTokens, resp.Timings.Total.Round(1e6))
	return nil
}
