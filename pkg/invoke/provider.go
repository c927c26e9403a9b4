package invoke

import (
	"context"
	"encoding/json"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/go-chatforge/pkg/llm"
)

// Provider is one configured LLM backend in the fallback chain: a name, a
// client, and a circuit breaker guarding its network calls. A provider whose
// credential was absent at startup carries a sticky configuration error and is
// never called.
type Provider struct {
	name      string
	client    llm.Client
	configErr error
	breaker   *gobreaker.CircuitBreaker
}

// NewProvider creates a usable provider descriptor.
func NewProvider(name string, client llm.Client) *Provider {
	return &Provider{
		name:   name,
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: name,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// NewMisconfiguredProvider creates a descriptor for a provider whose
// credential is missing. It stays in the chain so every invocation records why
// it was skipped, but its backend is never contacted.
func NewMisconfiguredProvider(name string, cause error) *Provider {
	return &Provider{
		name:      name,
		configErr: cause,
	}
}

// Name returns the provider's configured name.
func (p *Provider) Name() string {
	return p.name
}

// Misconfigured reports whether the provider is excluded from calls for the
// whole run.
func (p *Provider) Misconfigured() bool {
	return p.configErr != nil
}

// call routes one structured-output request through the circuit breaker.
// An open breaker surfaces as an ordinary error and counts as a transient
// attempt, without touching the network.
func (p *Provider) call(ctx context.Context, messages []llm.Message, schemaDoc any) (json.RawMessage, error) {
	out, err := p.breaker.Execute(func() (any, error) {
		return p.client.ChatWithStructuredOutput(ctx, messages, schemaDoc)
	})
	if err != nil {
		return nil, err
	}
	return out.(json.RawMessage), nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
