// Package generator turns the scenario catalog into a dataset of synthetic
// support dialogues, one provider-chain invocation per scenario.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/go-chatforge/pkg/dataset"
	"github.com/soundprediction/go-chatforge/pkg/invoke"
	"github.com/soundprediction/go-chatforge/pkg/scenario"
	"github.com/soundprediction/go-chatforge/pkg/schema"
)

// Invoker is the slice of the fallback invoker the generator needs.
type Invoker interface {
	Invoke(ctx context.Context, req *invoke.Request) (*invoke.Result, error)
}

// Options configures a generation run.
type Options struct {
	// Output is the dataset file path.
	Output string
	// Language the dialogues are written in.
	Language string
	// Logger for run progress. Defaults to slog.Default.
	Logger *slog.Logger
}

// Failure records one scenario that exhausted every provider.
type Failure struct {
	ScenarioID int
	Err        error
}

// Summary reports the outcome of a run. A run with failures still produces a
// usable dataset; the caller decides the exit status.
type Summary struct {
	Generated int
	Failed    int
	Failures  []Failure
}

// Generator drives the generation stage.
type Generator struct {
	invoker Invoker
	catalog scenario.Catalog
	opts    Options
}

// New creates a Generator over the given catalog.
func New(invoker Invoker, catalog scenario.Catalog, opts Options) *Generator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Language == "" {
		opts.Language = "English"
	}
	return &Generator{
		invoker: invoker,
		catalog: catalog,
		opts:    opts,
	}
}

// dialoguePayload mirrors the dialogue output shape.
type dialoguePayload struct {
	Dialogue []dataset.Turn `json:"dialogue"`
}

// Run generates one dialogue per scenario and writes the dataset file after
// each success, so an interrupted run keeps what it produced. A scenario that
// exhausts every provider is recorded and skipped; only configuration errors
// and cancellation abort the run.
func (g *Generator) Run(ctx context.Context) (*Summary, error) {
	if err := g.catalog.Validate(); err != nil {
		return nil, fmt.Errorf("scenario catalog: %w", err)
	}

	summary := &Summary{}
	records := make([]dataset.Record, 0, len(g.catalog))

	for i, s := range g.catalog {
		g.opts.Logger.Info("generating dialogue",
			"scenario", s.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(g.catalog)))

		res, err := g.invoker.Invoke(ctx, g.buildRequest(s))
		if err != nil {
			if errors.Is(err, invoke.ErrNoProviders) || ctx.Err() != nil {
				return nil, err
			}
			g.opts.Logger.Error("scenario failed, continuing", "scenario", s.ID, "error", err)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{ScenarioID: s.ID, Err: err})
			continue
		}

		var payload dialoguePayload
		if err := json.Unmarshal(res.Payload, &payload); err != nil {
			// The payload already passed shape validation; reaching this
			// means the shape and the struct drifted apart.
			return nil, fmt.Errorf("failed to decode validated dialogue payload: %w", err)
		}

		records = append(records, dataset.Record{
			ID:       s.ID,
			Scenario: s.Description,
			Dialogue: payload.Dialogue,
		})
		summary.Generated++

		g.opts.Logger.Info("dialogue generated",
			"scenario", s.ID, "provider", res.Provider, "turns", len(payload.Dialogue))

		if err := dataset.Save(g.opts.Output, records); err != nil {
			return nil, err
		}
	}

	if err := dataset.Save(g.opts.Output, records); err != nil {
		return nil, err
	}

	g.opts.Logger.Info("generation complete",
		"generated", summary.Generated, "failed", summary.Failed, "output", g.opts.Output)

	return summary, nil
}

func (g *Generator) buildRequest(s scenario.Scenario) *invoke.Request {
	system := fmt.Sprintf(
		"You write realistic customer support dialogues in %s for a training dataset. "+
			"Respond with a single JSON object of the form "+
			`{"dialogue": [{"speaker": "user", "text": "..."}, {"speaker": "agent", "text": "..."}]}. `+
			"Speakers alternate and the dialogue starts with the user.",
		g.opts.Language)

	prompt := fmt.Sprintf("Write a realistic customer support dialogue.\nScenario: %s", s.Description)

	return &invoke.Request{
		System: system,
		Prompt: prompt,
		Shape:  schema.Dialogue,
	}
}
