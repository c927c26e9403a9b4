package chatforge

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/soundprediction/go-chatforge/pkg/config"
	"github.com/soundprediction/go-chatforge/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "chatforge",
	Short: "Generate and analyze synthetic customer support dialogues",
	Long: `Chatforge builds synthetic customer-support dialogue datasets with LLMs.

The generate command turns a scenario catalog into a dataset of dialogues; the
analyze command annotates each dialogue with intent, satisfaction, a quality
score and agent mistakes. Every LLM call runs through an ordered fallback
chain of providers (Gemini, OpenAI, Groq, Ollama), so a single provider's
outage or quota limit never aborts a run.

Provider credentials come from environment variables: GOOGLE_API_KEY (or
GEMINI_API_KEY), OPENAI_API_KEY and GROQ_API_KEY. A provider without its key
is skipped for the whole run.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./chatforge.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("chatforge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// A missing config file is fine; defaults and env vars cover everything.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return logger.NewDefaultLogger(level)
}
