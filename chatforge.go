// Package chatforge builds synthetic customer-support dialogue datasets with
// LLMs and annotates them with structured insights. Both pipeline stages run
// their calls through a fallback chain of providers, so no single backend's
// outage, quota limit or garbled output stops a run.
package chatforge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soundprediction/go-chatforge/pkg/analyzer"
	"github.com/soundprediction/go-chatforge/pkg/cache"
	"github.com/soundprediction/go-chatforge/pkg/config"
	"github.com/soundprediction/go-chatforge/pkg/generator"
	"github.com/soundprediction/go-chatforge/pkg/invoke"
	"github.com/soundprediction/go-chatforge/pkg/llm"
	"github.com/soundprediction/go-chatforge/pkg/scenario"
)

// Stage selects which pipeline stage a provider chain is built for. The two
// stages want different sampling: generation benefits from variety, analysis
// needs determinism.
type Stage string

const (
	// StageGenerate is the dialogue generation stage.
	StageGenerate Stage = "generate"
	// StageAnalyze is the dialogue analysis stage.
	StageAnalyze Stage = "analyze"
)

// Pipeline wires configuration into a provider chain and the pipeline stages.
type Pipeline struct {
	cfg     *config.Config
	invoker *invoke.Invoker
	logger  *slog.Logger
	runID   string
}

// NewPipeline builds the provider chain for the given stage and returns a
// ready pipeline. An empty provider order is a configuration error: no
// partial run is attempted.
func NewPipeline(cfg *config.Config, stage Stage, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if len(cfg.Providers.Order) == 0 {
		return nil, invoke.ErrNoProviders
	}

	providers, err := BuildProviders(cfg, stage)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()[:8]
	logger = logger.With("run", runID)

	return &Pipeline{
		cfg:     cfg,
		invoker: invoke.New(providers, logger),
		logger:  logger,
		runID:   runID,
	}, nil
}

// BuildProviders constructs the ordered provider chain for a stage. A
// provider whose credential is absent is kept in the chain as misconfigured:
// it shows up in every invocation's attempt log but is never called.
func BuildProviders(cfg *config.Config, stage Stage) ([]*invoke.Provider, error) {
	temperature := cfg.Generate.Temperature
	maxTokens := cfg.Generate.MaxTokens
	if stage == StageAnalyze {
		temperature = cfg.Analyze.Temperature
		maxTokens = cfg.Analyze.MaxTokens
	}

	providers := make([]*invoke.Provider, 0, len(cfg.Providers.Order))
	for _, name := range cfg.Providers.Order {
		name = strings.ToLower(name)
		pc, ok := cfg.Provider(name)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q in providers.order", name)
		}

		clientConfig := llm.Config{
			Model:       pc.Model,
			Temperature: &temperature,
			BaseURL:     pc.BaseURL,
		}
		if maxTokens > 0 {
			clientConfig.MaxTokens = &maxTokens
		}

		var client llm.Client
		var err error
		switch name {
		case "gemini":
			client, err = llm.NewGeminiClient(pc.APIKey, clientConfig)
		case "openai":
			client, err = llm.NewOpenAIClient(pc.APIKey, clientConfig)
		case "groq":
			client, err = llm.NewGroqClient(pc.APIKey, pc.Model, clientConfig)
		case "ollama":
			client, err = llm.NewOllamaClient(pc.BaseURL, pc.Model, clientConfig)
		}

		if err != nil {
			providers = append(providers, invoke.NewMisconfiguredProvider(name, err))
			continue
		}
		providers = append(providers, invoke.NewProvider(name, client))
	}

	return providers, nil
}

// Invoker exposes the pipeline's provider chain.
func (p *Pipeline) Invoker() *invoke.Invoker {
	return p.invoker
}

// RunID identifies this pipeline instance in logs.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Generate runs the generation stage: scenario catalog in, dataset file out.
func (p *Pipeline) Generate(ctx context.Context) (*generator.Summary, error) {
	catalog := scenario.Default()
	if p.cfg.Generate.ScenarioFile != "" {
		loaded, err := scenario.LoadFile(p.cfg.Generate.ScenarioFile)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	gen := generator.New(p.invoker, catalog, generator.Options{
		Output:   p.cfg.Generate.Output,
		Language: p.cfg.Generate.Language,
		Logger:   p.logger,
	})

	return gen.Run(ctx)
}

// Analyze runs the analysis stage: dataset file in, annotated file out.
func (p *Pipeline) Analyze(ctx context.Context) (*analyzer.Summary, error) {
	opts := analyzer.Options{
		Input:    p.cfg.Analyze.Input,
		Output:   p.cfg.Analyze.Output,
		CacheTTL: time.Duration(p.cfg.Cache.TTLHours) * time.Hour,
		Logger:   p.logger,
	}

	if p.cfg.Cache.Enabled {
		store, err := cache.NewBadgerCache(p.cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open analysis cache: %w", err)
		}
		defer store.Close()
		opts.Cache = store
	}

	return analyzer.New(p.invoker, opts).Run(ctx)
}

// Close releases every provider client.
func (p *Pipeline) Close() error {
	return p.invoker.Close()
}
