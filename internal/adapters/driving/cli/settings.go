package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure providers, retrieval parameters and confidence thresholds.

Settings are stored in ~/.logos/config.toml. API keys fall back to
OPENAI_API_KEY and QDRANT_API_KEY when not set.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one setting",
	Long: `Set one setting by dotted key, for example:

  logos settings set rag.top_k 8
  logos settings set llm.fast.model gpt-4o
  logos settings set rag.guideline_markers "Guideline,Protocol"

Run 'logos settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range services.Keys() {
			cmd.Println(k)
		}
	},
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping the providers",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively configure the embedding provider used for ingestion and retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long: `Interactively configure the LLM provider. The provider must return
token log-probabilities, so only OpenAI-compatible endpoints are accepted.`,
	RunE: runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	heading(cmd, "[Embedding]")
	field(cmd, "Provider", settings.Embedding.Provider.Description())
	field(cmd, "Model", settings.Embedding.Model)
	field(cmd, "Dimensions", settings.Embedding.Dimensions)
	if settings.Embedding.BaseURL != "" {
		field(cmd, "Base URL", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		field(cmd, "API Key", keyOrUnset(settings.Embedding.APIKey))
	}
	field(cmd, "Status", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	heading(cmd, "[LLM]")
	field(cmd, "Provider", settings.LLM.Provider.Description())
	if settings.LLM.BaseURL != "" {
		field(cmd, "Base URL", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		field(cmd, "API Key", keyOrUnset(settings.LLM.APIKey))
	}
	for _, p := range []struct {
		name    string
		profile domain.ModelProfile
	}{
		{"context", settings.LLM.Context},
		{"relevance", settings.LLM.Relevance},
		{"fast", settings.LLM.Fast},
		{"deep", settings.LLM.Deep},
	} {
		model := p.profile.Model
		if model == "" {
			model = settings.LLM.Model
		}
		field(cmd, p.name, fmt.Sprintf("%s, max %d tokens, T=%.2f", model, p.profile.MaxTokens, p.profile.Temperature))
	}
	field(cmd, "Status", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	heading(cmd, "[Vector Store]")
	field(cmd, "Provider", settings.VectorStore.Provider)
	if settings.VectorStore.Provider == domain.VectorStoreQdrant {
		field(cmd, "URL", settings.VectorStore.URL)
	}
	field(cmd, "Collection", settings.VectorStore.Collection)
	cmd.Println()

	heading(cmd, "[Retrieval]")
	field(cmd, "Chunk size", fmt.Sprintf("%d words, %d overlap", settings.RAG.ChunkSizeWords, settings.RAG.ChunkOverlapWords))
	field(cmd, "Top K", settings.RAG.TopK)
	field(cmd, "Min score", settings.RAG.MinScore)
	field(cmd, "Relevance", settings.RAG.ValidateRelevance)
	cmd.Println()

	heading(cmd, "[Confidence]")
	field(cmd, "Valid from", settings.Confidence.ValidityScore)
	field(cmd, "Weak below", settings.Confidence.WeakTokenProbability)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'logos settings embedding' or 'logos settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	value := args[1]
	if strings.HasSuffix(args[0], "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", args[0], value)
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	cmd.Println("Settings: OK")

	if configValidator == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	var errs []error
	cmd.Print("Embedding provider: ")
	if err := configValidator.ValidateEmbedding(&settings.Embedding); err != nil {
		cmd.Println("FAILED")
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	} else {
		cmd.Println("OK")
	}
	cmd.Print("LLM provider: ")
	if err := configValidator.ValidateLLM(&settings.LLM); err != nil {
		cmd.Println("FAILED")
		errs = append(errs, fmt.Errorf("llm: %w", err))
	} else {
		cmd.Println("OK")
	}
	return errors.Join(errs...)
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	defaults := settingsService.GetDefaults()

	cmd.Println("Select Embedding Provider")
	providers := []domain.AIProvider{domain.AIProviderOpenAI, domain.AIProviderOllama}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := defaults.Embedding.Model
	if selected == domain.AIProviderOllama {
		defaultModel = "nomic-embed-text"
	}
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	values := [][2]string{
		{services.KeyEmbedProvider, selected.String()},
		{services.KeyEmbedModel, model},
	}
	if dims, ok := domain.EmbeddingDimensions()[model]; ok {
		values = append(values, [2]string{services.KeyEmbedDims, strconv.Itoa(dims)})
	}
	if selected == domain.AIProviderOllama {
		cmd.Print("Enter Ollama URL [http://localhost:11434]: ")
		baseURL := readLine(reader)
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		values = append(values, [2]string{services.KeyEmbedBaseURL, baseURL})
	} else {
		values = append(values, [2]string{services.KeyEmbedBaseURL, ""})
	}
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use OPENAI_API_KEY): ")
		if apiKey := readPassword(cmd, reader); apiKey != "" {
			values = append(values, [2]string{services.KeyEmbedAPIKey, apiKey})
		}
		cmd.Println()
	}

	if err := setAll(values); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if configValidator != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		cmd.Print("Validating configuration... ")
		if err := configValidator.ValidateEmbedding(&settings.Embedding); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", selected.Description(), model)
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	defaults := settingsService.GetDefaults()

	cmd.Print("Enter base URL (empty for api.openai.com): ")
	baseURL := readLine(reader)

	cmd.Printf("Enter default model name [%s]: ", defaults.LLM.Model)
	model := readLine(reader)
	if model == "" {
		model = defaults.LLM.Model
	}

	cmd.Printf("Enter deep reasoning model [%s]: ", defaults.LLM.Deep.Model)
	deep := readLine(reader)
	if deep == "" {
		deep = defaults.LLM.Deep.Model
	}

	values := [][2]string{
		{services.KeyLLMProvider, domain.AIProviderOpenAI.String()},
		{services.KeyLLMModel, model},
		{"llm.deep.model", deep},
		{services.KeyLLMBaseURL, baseURL},
	}

	cmd.Print("Enter API key (empty to use OPENAI_API_KEY): ")
	if apiKey := readPassword(cmd, reader); apiKey != "" {
		values = append(values, [2]string{services.KeyLLMAPIKey, apiKey})
	}
	cmd.Println()

	if err := setAll(values); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	if configValidator != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		cmd.Print("Validating configuration... ")
		if err := configValidator.ValidateLLM(&settings.LLM); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("LLM provider configured: %s (%s, deep %s)\n", domain.AIProviderOpenAI.Description(), model, deep)
	return nil
}

func setAll(values [][2]string) error {
	for _, kv := range values {
		if err := settingsService.Set(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal, otherwise
// from reader.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func keyOrUnset(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
