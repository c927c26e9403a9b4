// Package analyzer runs the second pipeline stage: each stored dialogue goes
// through the provider chain once and comes back with structured insights
// (intent, satisfaction, quality score, agent mistakes).
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/soundprediction/go-chatforge/pkg/cache"
	"github.com/soundprediction/go-chatforge/pkg/dataset"
	"github.com/soundprediction/go-chatforge/pkg/invoke"
	"github.com/soundprediction/go-chatforge/pkg/schema"
)

// Invoker is the slice of the fallback invoker the analyzer needs.
type Invoker interface {
	Invoke(ctx context.Context, req *invoke.Request) (*invoke.Result, error)
}

// Options configures an analysis run.
type Options struct {
	// Input is the dataset file produced by the generator.
	Input string
	// Output is the annotated dataset file path.
	Output string
	// Cache, when non-nil, short-circuits providers for dialogues already
	// analyzed in a previous run.
	Cache cache.Cache
	// CacheTTL bounds how long cached analyses are kept.
	CacheTTL time.Duration
	// Logger for run progress. Defaults to slog.Default.
	Logger *slog.Logger
}

// Summary reports the outcome of a run.
type Summary struct {
	Analyzed  int
	Failed    int
	CacheHits int
}

// Analyzer drives the analysis stage.
type Analyzer struct {
	invoker Invoker
	opts    Options
}

// New creates an Analyzer.
func New(invoker Invoker, opts Options) *Analyzer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * 24 * time.Hour
	}
	return &Analyzer{
		invoker: invoker,
		opts:    opts,
	}
}

// Run analyzes every record of the input dataset and writes the annotated
// file. Records whose invocation exhausts all providers are emitted with an
// explicit failure marker instead of an analysis; the rest of the run
// proceeds. The output preserves the input's ids and order exactly.
func (a *Analyzer) Run(ctx context.Context) (*Summary, error) {
	records, err := dataset.Load(a.opts.Input)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for i := range records {
		rec := &records[i]
		a.opts.Logger.Info("analyzing dialogue",
			"id", rec.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(records)))

		if err := a.analyzeRecord(ctx, rec, summary); err != nil {
			return nil, err
		}

		if err := dataset.Save(a.opts.Output, records); err != nil {
			return nil, err
		}
	}

	a.opts.Logger.Info("analysis complete",
		"analyzed", summary.Analyzed, "failed", summary.Failed,
		"cache_hits", summary.CacheHits, "output", a.opts.Output)

	return summary, nil
}

// analyzeRecord fills in rec.Analysis, or its failure marker. Only
// configuration errors and cancellation are returned.
func (a *Analyzer) analyzeRecord(ctx context.Context, rec *dataset.Record, summary *Summary) error {
	transcript := rec.Transcript()
	cacheKey := cache.Key("analysis", transcript)

	if a.opts.Cache != nil {
		if cached, err := a.opts.Cache.Get(cacheKey); err == nil {
			var analysis dataset.Analysis
			if err := json.Unmarshal(cached, &analysis); err == nil {
				rec.Analysis = &analysis
				rec.AnalysisError = ""
				summary.Analyzed++
				summary.CacheHits++
				return nil
			}
		}
	}

	res, err := a.invoker.Invoke(ctx, &invoke.Request{
		System: analysisSystemPrompt(),
		Prompt: transcript,
		Shape:  schema.Analysis,
	})
	if err != nil {
		if errors.Is(err, invoke.ErrNoProviders) || ctx.Err() != nil {
			return err
		}
		a.opts.Logger.Error("analysis failed, continuing", "id", rec.ID, "error", err)
		rec.Analysis = nil
		rec.AnalysisError = err.Error()
		summary.Failed++
		return nil
	}

	analysis, err := decodeAnalysis(res.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode validated analysis payload: %w", err)
	}
	analysis.Normalize()

	rec.Analysis = analysis
	rec.AnalysisError = ""
	summary.Analyzed++

	a.opts.Logger.Info("dialogue analyzed",
		"id", rec.ID, "provider", res.Provider,
		"intent", analysis.Intent, "quality_score", analysis.QualityScore)

	if a.opts.Cache != nil {
		if normalized, err := json.Marshal(analysis); err == nil {
			if err := a.opts.Cache.Put(cacheKey, normalized, a.opts.CacheTTL); err != nil {
				a.opts.Logger.Warn("failed to cache analysis", "id", rec.ID, "error", err)
			}
		}
	}

	return nil
}

// decodeAnalysis converts a shape-valid payload into the dataset type. The
// score arrives as a JSON number that may carry a zero fraction ("2.0").
func decodeAnalysis(payload json.RawMessage) (*dataset.Analysis, error) {
	var raw struct {
		Intent        string   `json:"intent"`
		Satisfaction  string   `json:"satisfaction"`
		QualityScore  float64  `json:"quality_score"`
		AgentMistakes []string `json:"agent_mistakes"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	return &dataset.Analysis{
		Intent:        raw.Intent,
		Satisfaction:  raw.Satisfaction,
		QualityScore:  int(raw.QualityScore),
		AgentMistakes: raw.AgentMistakes,
	}, nil
}

func analysisSystemPrompt() string {
	return fmt.Sprintf(
		"Analyze the customer support chat and return EXACTLY a JSON object with these keys:\n"+
			"- \"intent\": one of %s\n"+
			"- \"satisfaction\": one of %s. Pay attention to sarcasm or hidden dissatisfaction!\n"+
			"- \"quality_score\": an integer from 1 to 5 rating the agent's performance\n"+
			"- \"agent_mistakes\": a list drawn from %s, empty [] if none",
		strings.Join(schema.Intents, ", "),
		strings.Join(schema.Satisfactions, ", "),
		strings.Join(schema.AgentMistakes, ", "))
}
