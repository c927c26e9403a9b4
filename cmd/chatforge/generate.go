package chatforge

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	forge "github.com/soundprediction/go-chatforge"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a dataset of synthetic support dialogues",
	Long: `Generate one dialogue per scenario in the catalog and write the dataset file.

The dataset is rewritten after every generated dialogue, so an interrupted run
keeps its progress. A scenario that exhausts every provider is skipped and
reported; the command exits non-zero if any scenario failed.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("output", "", "dataset file path (default dataset.json)")
	generateCmd.Flags().String("language", "", "dialogue language (default Ukrainian)")
	generateCmd.Flags().String("scenarios", "", "YAML scenario catalog (default: built-in catalog)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Generate.Output = v
	}
	if v, _ := cmd.Flags().GetString("language"); v != "" {
		cfg.Generate.Language = v
	}
	if v, _ := cmd.Flags().GetString("scenarios"); v != "" {
		cfg.Generate.ScenarioFile = v
	}

	log := newLogger(cfg)

	pipeline, err := forge.NewPipeline(cfg, forge.StageGenerate, log)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Generate(ctx)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed after full provider fallback",
			summary.Failed, summary.Generated+summary.Failed)
	}

	return nil
}
