package chatforge

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	forge "github.com/soundprediction/go-chatforge"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Annotate a generated dataset with structured insights",
	Long: `Analyze every dialogue in the dataset file and write the annotated dataset.

Each dialogue is classified into intent, satisfaction, a 1-5 quality score and
a set of agent mistakes. A dialogue that exhausts every provider is written
with an explicit failure marker instead of an analysis; the command exits
non-zero if any record could not be analyzed.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("input", "", "dataset file to analyze (default dataset.json)")
	analyzeCmd.Flags().String("output", "", "annotated dataset path (default analyzed_dataset.json)")
	analyzeCmd.Flags().Bool("force", false, "overwrite an existing annotated dataset")
	analyzeCmd.Flags().Bool("cache", false, "cache analyses by dialogue content")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("input"); v != "" {
		cfg.Analyze.Input = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Analyze.Output = v
	}
	if v, _ := cmd.Flags().GetBool("cache"); v {
		cfg.Cache.Enabled = true
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force {
		if _, err := os.Stat(cfg.Analyze.Output); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", cfg.Analyze.Output)
		}
	}

	log := newLogger(cfg)

	pipeline, err := forge.NewPipeline(cfg, forge.StageAnalyze, log)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Analyze(ctx)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d records could not be analyzed after full provider fallback",
			summary.Failed, summary.Analyzed+summary.Failed)
	}

	return nil
}
