package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/logos-health/logos/internal/core/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [tokens.json|-]",
	Short: "Score saved token log-probabilities",
	Long: `Run the confidence validator over token log-probabilities without
calling a model. Input is either a JSON array of {"token","logprob"}
objects or an object with "tokens" and optional "usage".`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateJSON bool

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the verdict as JSON")
	rootCmd.AddCommand(validateCmd)
}

type tokenFile struct {
	Tokens []domain.LogProbToken `json:"tokens"`
	Usage  domain.TokenUsage     `json:"usage"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	if confidenceValidator == nil {
		return errors.New("confidence validator not configured")
	}

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read tokens: %w", err)
	}

	in, err := decodeTokens(data)
	if err != nil {
		return err
	}

	result := confidenceValidator.Validate(in.Tokens, in.Usage)
	if validateJSON {
		return printJSON(cmd, result)
	}
	printConfidence(cmd, "Confidence "+result.Summary(), &result)
	return nil
}

func decodeTokens(data []byte) (tokenFile, error) {
	var in tokenFile
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &in.Tokens); err != nil {
			return in, fmt.Errorf("invalid token list: %w", err)
		}
		return in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("invalid token file: %w", err)
	}
	return in, nil
}
