package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/logos-health/logos/internal/connectors/filesystem"
	"github.com/logos-health/logos/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest a directory and keep it in sync",
	Long: `Ingest every supported file in a directory, then watch it and ingest
files as they are added or rewritten. Interrupted ingestions are
reconciled in the background. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce,
		"quiet period after the last write before a file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	p, err := requirePipeline(ctx)
	if err != nil {
		return err
	}
	if p.Ingestion == nil {
		return errors.New("ingestion service not configured")
	}

	conn := filesystem.New(args[0], filesystem.WithDebounce(watchDebounce))
	defer conn.Close()

	initial, err := conn.Scan(ctx)
	if err != nil {
		return err
	}
	if len(initial) > 0 {
		printBulk(cmd, p.Ingestion.IngestFiles(ctx, initial))
	}

	uploads, err := conn.Watch(ctx)
	if err != nil {
		return err
	}

	if p.Scheduler != nil {
		go func() {
			if err := p.Scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("scheduler stopped: %v", err)
			}
		}()
		defer func() { _ = p.Scheduler.Stop() }()
	}

	cmd.Printf("Watching %s for changes...\n", conn.RootPath())
	for upload := range uploads {
		printIngestion(cmd, p.Ingestion.IngestFile(ctx, upload))
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
