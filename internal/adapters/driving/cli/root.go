// Package cli provides the cobra command tree of the logos binary.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/core/ports/driving"
	"github.com/logos-health/logos/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	verbose bool
	logJSON bool
)

// Ports the commands run on. Tests replace them with mocks.
var (
	settingsService     driving.SettingsService
	documentService     driving.DocumentService
	confidenceValidator driving.ConfidenceValidator
	configValidator     driven.AIConfigValidator
	pipelineLoader      PipelineLoader
)

// Pipeline holds the services that need AI providers.
type Pipeline struct {
	Ingestion    driving.IngestionService
	Augmentation driving.AugmentationService
	Generation   driving.GenerationService
	Scheduler    driving.Scheduler

	// MetricsHandler serves the Prometheus registry. May be nil.
	MetricsHandler http.Handler

	// Close releases the providers. May be nil.
	Close func()
}

// PipelineLoader builds the pipeline. It is called at most once per process.
type PipelineLoader func(ctx context.Context) (*Pipeline, error)

// Services bundles what main wires into the commands.
type Services struct {
	Settings        driving.SettingsService
	Documents       driving.DocumentService
	Confidence      driving.ConfidenceValidator
	ConfigValidator driven.AIConfigValidator
	Pipeline        PipelineLoader
}

var rootCmd = &cobra.Command{
	Use:   "logos",
	Short: "Medical guideline knowledge base with confidence-checked answers",
	Long: `Logos ingests clinical guidelines into a vector knowledge base and
answers structured patient requests with retrieval-augmented generation.
Every model answer is scored from its token log-probabilities so that
uncertain output can be rejected or flagged.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		logger.SetJSON(logJSON)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
}

// SetServices installs the ports used by the commands.
func SetServices(s Services) {
	settingsService = s.Settings
	documentService = s.Documents
	confidenceValidator = s.Confidence
	configValidator = s.ConfigValidator
	pipelineLoader = s.Pipeline
	resetPipeline()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closePipeline()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

var (
	pipelineMu     sync.Mutex
	pipeline       *Pipeline
	pipelineLoaded bool
	pipelineErr    error
)

// loadPipeline builds the pipeline on first use and caches the outcome.
func loadPipeline(ctx context.Context) (*Pipeline, error) {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()

	if pipelineLoaded {
		return pipeline, pipelineErr
	}
	if pipelineLoader == nil {
		return nil, errors.New("pipeline not configured")
	}
	pipeline, pipelineErr = pipelineLoader(ctx)
	pipelineLoaded = true
	return pipeline, pipelineErr
}

func closePipeline() {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()
	if pipeline != nil && pipeline.Close != nil {
		pipeline.Close()
	}
	pipeline, pipelineErr, pipelineLoaded = nil, nil, false
}

func resetPipeline() {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()
	pipeline, pipelineErr, pipelineLoaded = nil, nil, false
}

// commandContext returns the command's context, or Background in tests
// that call run functions directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
