package invoke_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/soundprediction/go-chatforge/pkg/invoke"
	"github.com/soundprediction/go-chatforge/pkg/llm"
	"github.com/soundprediction/go-chatforge/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAnalysis = `{"intent":"refund_request","satisfaction":"unsatisfied","quality_score":2,"agent_mistakes":["rude_tone"]}`

// fakeClient is an in-memory llm.Client: fixed payload or fixed error,
// counting calls. No network involved.
type fakeClient struct {
	payload string
	err     error
	calls   int
}

func (f *fakeClient) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.payload}, nil
}

func (f *fakeClient) ChatWithStructuredOutput(ctx context.Context, messages []llm.Message, _ any) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

func (f *fakeClient) Close() error { return nil }

func analysisRequest() *invoke.Request {
	return &invoke.Request{
		System: "Analyze the chat.",
		Prompt: "user: hello\nagent: hi",
		Shape:  schema.Analysis,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFirstSuccessStopsChain(t *testing.T) {
	a := &fakeClient{payload: validAnalysis}
	b := &fakeClient{payload: validAnalysis}
	c := &fakeClient{payload: validAnalysis}

	inv := invoke.New([]*invoke.Provider{
		invoke.NewProvider("a", a),
		invoke.NewProvider("b", b),
		invoke.NewProvider("c", c),
	}, quietLogger())

	res, err := inv.Invoke(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, "a", res.Provider)
	assert.Empty(t, res.Attempts)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
	assert.Zero(t, c.calls)
}

func TestFallsBackPastFailingProvider(t *testing.T) {
	a := &fakeClient{err: errors.New("connection refused")}
	b := &fakeClient{payload: validAnalysis}

	inv := invoke.New([]*invoke.Provider{
		invoke.NewProvider("a", a),
		invoke.NewProvider("b", b),
	}, quietLogger())

	res, err := inv.Invoke(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, "b", res.Provider)
	assert.JSONEq(t, validAnalysis, string(res.Payload))

	// A's failure stays available for diagnostics but is not the call's error.
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, "a", res.Attempts[0].Provider)
	assert.Equal(t, invoke.FailureTransient, res.Attempts[0].Class)
	assert.ErrorContains(t, res.Attempts[0].Err, "connection refused")
}

func TestAllProvidersFailingYieldsExhaustion(t *testing.T) {
	a := &fakeClient{err: errors.New("timeout")}
	b := &fakeClient{err: llm.NewRateLimitError("quota exceeded")}

	inv := invoke.New([]*invoke.Provider{
		invoke.NewProvider("a", a),
		invoke.NewProvider("b", b),
	}, quietLogger())

	res, err := inv.Invoke(context.Background(), analysisRequest())
	require.Error(t, err)
	assert.Nil(t, res)

	var exhausted *invoke.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, invoke.FailureTransient, exhausted.Attempts[0].Class)
	assert.Equal(t, invoke.FailureTransient, exhausted.Attempts[1].Class)
	assert.Contains(t, err.Error(), "a (transient)")
	assert.Contains(t, err.Error(), "b (transient)")
}

func TestEmptyChainIsConfigurationError(t *testing.T) {
	inv := invoke.New(nil, quietLogger())

	res, err := inv.Invoke(context.Background(), analysisRequest())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, invoke.ErrNoProviders)

	var exhausted *invoke.ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestSchemaMismatchTreatedAsTransient(t *testing.T) {
	// Valid-looking JSON with quality_score missing must behave exactly like
	// a network failure: skip the provider, try the next one.
	a := &fakeClient{payload: `{"intent":"refund_request","satisfaction":"unsatisfied","agent_mistakes":[]}`}
	b := &fakeClient{payload: validAnalysis}

	inv := invoke.New([]*invoke.Provider{
		invoke.NewProvider("a", a),
		invoke.NewProvider("b", b),
	}, quietLogger())

	res, err := inv.Invoke(context.Background(), analysisRequest())
	require.NoError(t, err)

	assert.Equal(t, "b", res.Provider)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, invoke.FailureTransient, res.Attempts[0].Class)
	assert.Equal(t, 1, a.calls)
}

func TestGarbledPayloadTreatedAsTransient(t *testing.T) {
	a := &fakeClient{payload: `{"intent": "refund_req`}
	b := &fakeClient{payload: validAnalysis}

	inv := invoke.New([]*invoke.Provider{
		invoke.NewProvider("a", a),
		invoke.NewProvider("b", b),
	}, quietLogger())

	res, err := inv.Invoke(context.Background(), analysisRequest())
	require.NoError(t, err)
	assert.Equal(t, "b", res.Provider)
}

func TestMisconfiguredProviderNeverCalled(t *testing.T) {
	// The misconfigured provider has no client at all: reaching for its
	// backend would panic, so a passing test proves it was skipped.
	b := &fakeClient{payload: validAnalysis}

	inv := invoke.New([]*invoke.Provider{
		invoke.NewMisconfiguredProvider("a", llm.ErrAPIKeyMissing),
		invoke.NewProvider("b", b),
	}, quietLogger())

	for i := 0; i < 3; i++ {
		res, err := inv.Invoke(context.Background(), analysisRequest())
		require.NoError(t, err)
		assert.Equal(t, "b", res.Provider)
		require.Len(t, res.Attempts, 1)
		assert.Equal(t, invoke.FailureMisconfigured, res.Attempts[0].Class)
		assert.ErrorIs(t, res.Attempts[0].Err, llm.ErrAPIKeyMissing)
	}
}

func TestBreakerStopsHammeringDeadProvider(t *testing.T) {
	a := &fakeClient{err: errors.New("connection refused")}
	b := &fakeClient{payload: validAnalysis}

	inv := invoke.New([]*invoke.Provider{
		invoke.NewProvider("a", a),
		invoke.NewProvider("b", b),
	}, quietLogger())

	for i := 0; i < 5; i++ {
		res, err := inv.Invoke(context.Background(), analysisRequest())
		require.NoError(t, err)
		assert.Equal(t, "b", res.Provider)
		require.Len(t, res.Attempts, 1)
		assert.Equal(t, invoke.FailureTransient, res.Attempts[0].Class)
	}

	// The breaker opens after three consecutive failures; later invocations
	// record a transient attempt without touching A's backend.
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 5, b.calls)
}

func TestInvokeHonorsCancelledContext(t *testing.T) {
	a := &fakeClient{payload: validAnalysis}
	inv := invoke.New([]*invoke.Provider{invoke.NewProvider("a", a)}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Invoke(ctx, analysisRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.calls)
}
