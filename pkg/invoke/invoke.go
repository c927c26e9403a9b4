// Package invoke implements resilient multi-provider LLM invocation: an
// ordered provider chain is tried front to back until one returns a payload
// that validates against the request's expected shape. Any single provider
// failure, from a network error to a schema mismatch, moves the call forward
// to the next provider; there is no per-provider retry.
//
// Ordering encodes a cost and reliability preference. Fallback is linear
// rather than racing because LLM calls are metered: redundant concurrent
// calls cost real money, and a deterministic order keeps runs reproducible.
package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/go-chatforge/pkg/llm"
	"github.com/soundprediction/go-chatforge/pkg/schema"
)

// ErrNoProviders is returned when Invoke is called with an empty provider
// chain. This is a configuration error, distinct from exhaustion.
var ErrNoProviders = errors.New("no providers configured")

// FailureClass classifies one failed provider attempt.
type FailureClass string

const (
	// FailureTransient covers network errors, timeouts, rate limits and
	// malformed or schema-invalid payloads. The next provider is tried.
	FailureTransient FailureClass = "transient"
	// FailureMisconfigured marks a provider whose credential was absent at
	// startup. It is skipped without a call, for this and every later
	// invocation in the run.
	FailureMisconfigured FailureClass = "misconfigured"
)

// Attempt records why one provider did not produce the result.
type Attempt struct {
	Provider string       `json:"provider"`
	Class    FailureClass `json:"class"`
	Err      error        `json:"-"`
}

func (a Attempt) String() string {
	return fmt.Sprintf("%s (%s): %v", a.Provider, a.Class, a.Err)
}

// ExhaustedError is returned when every provider in the chain was tried and
// none produced a schema-valid payload.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		reasons[i] = a.String()
	}
	return fmt.Sprintf("all %d providers exhausted: %s", len(e.Attempts), strings.Join(reasons, "; "))
}

// Request is one logical "ask an LLM to do X" operation: a prompt pair plus
// the contract the answer must satisfy.
type Request struct {
	System string
	Prompt string
	Shape  *schema.Shape
}

// Result is a successful invocation: the validated payload, which provider
// produced it, and the failed attempts that preceded it (kept for
// diagnostics, not surfaced as an error).
type Result struct {
	Provider string
	Payload  json.RawMessage
	Attempts []Attempt
}

// Invoker executes requests against a fixed, ordered provider chain. It holds
// no mutable state across calls beyond the providers' own circuit breakers.
type Invoker struct {
	providers []*Provider
	logger    *slog.Logger
}

// New creates an Invoker over the given chain. Order is significant: earlier
// providers are preferred.
func New(providers []*Provider, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		providers: providers,
		logger:    logger,
	}
}

// Providers returns the configured chain in priority order.
func (inv *Invoker) Providers() []*Provider {
	return inv.providers
}

// Invoke tries providers strictly in order and returns the first
// schema-valid payload. It fails with ErrNoProviders for an empty chain and
// with *ExhaustedError when every provider was tried without success.
func (inv *Invoker) Invoke(ctx context.Context, req *Request) (*Result, error) {
	if len(inv.providers) == 0 {
		return nil, ErrNoProviders
	}

	messages := []llm.Message{
		llm.NewSystemMessage(req.System),
		llm.NewUserMessage(req.Prompt),
	}

	attempts := make([]Attempt, 0, len(inv.providers))
	for _, p := range inv.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if p.Misconfigured() {
			attempts = append(attempts, Attempt{Provider: p.name, Class: FailureMisconfigured, Err: p.configErr})
			inv.logger.Warn("provider skipped", "provider", p.name, "reason", p.configErr)
			continue
		}

		payload, err := p.call(ctx, messages, req.Shape.Doc())
		if err != nil {
			attempts = append(attempts, Attempt{Provider: p.name, Class: FailureTransient, Err: err})
			inv.logger.Warn("provider call failed, falling back", "provider", p.name, "error", err)
			continue
		}

		if err := req.Shape.Validate(payload); err != nil {
			// A schema mismatch skips this provider, not the whole call.
			attempts = append(attempts, Attempt{Provider: p.name, Class: FailureTransient, Err: err})
			inv.logger.Warn("provider payload rejected, falling back", "provider", p.name, "error", err)
			continue
		}

		return &Result{
			Provider: p.name,
			Payload:  payload,
			Attempts: attempts,
		}, nil
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// Close releases every provider's client.
func (inv *Invoker) Close() error {
	var firstErr error
	for _, p := range inv.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
