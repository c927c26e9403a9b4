package analyzer_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/soundprediction/go-chatforge/pkg/analyzer"
	"github.com/soundprediction/go-chatforge/pkg/cache"
	"github.com/soundprediction/go-chatforge/pkg/dataset"
	"github.com/soundprediction/go-chatforge/pkg/invoke"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAnalysis = `{"intent":"refund_request","satisfaction":"UNSATISFIED","quality_score":2,"agent_mistakes":["rude_tone","rude_tone"]}`

type stubInvoker struct {
	results []func() (*invoke.Result, error)
	calls   int
}

func (s *stubInvoker) Invoke(ctx context.Context, req *invoke.Request) (*invoke.Result, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx]()
}

func succeed(payload string) func() (*invoke.Result, error) {
	return func() (*invoke.Result, error) {
		return &invoke.Result{Provider: "fake", Payload: []byte(payload)}, nil
	}
}

func exhaust() func() (*invoke.Result, error) {
	return func() (*invoke.Result, error) {
		return nil, &invoke.ExhaustedError{Attempts: []invoke.Attempt{
			{Provider: "fake", Class: invoke.FailureTransient, Err: assert.AnError},
		}}
	}
}

// memCache is an in-memory cache.Cache for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, cache.ErrNotFound
}

func (m *memCache) Put(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Close() error { return nil }

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "dataset.json")
	require.NoError(t, dataset.Save(path, []dataset.Record{
		{ID: 1, Dialogue: []dataset.Turn{{Speaker: "user", Text: "Refund please."}, {Speaker: "agent", Text: "No."}}},
		{ID: 2, Dialogue: []dataset.Turn{{Speaker: "user", Text: "The app crashes."}, {Speaker: "agent", Text: "Restart it."}}},
		{ID: 3, Dialogue: []dataset.Turn{{Speaker: "user", Text: "Which plan is best?"}, {Speaker: "agent", Text: "Premium."}}},
	}))
	return path
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunAnnotatesAllRecords(t *testing.T) {
	dir := t.TempDir()
	stub := &stubInvoker{results: []func() (*invoke.Result, error){succeed(validAnalysis)}}

	a := analyzer.New(stub, analyzer.Options{
		Input:  writeInput(t, dir),
		Output: filepath.Join(dir, "analyzed.json"),
		Logger: quiet(),
	})

	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Analyzed)
	assert.Zero(t, summary.Failed)

	records, err := dataset.Load(filepath.Join(dir, "analyzed.json"))
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		require.NotNil(t, rec.Analysis)
		// Payload normalization applied: lowercased enums, deduplicated set.
		assert.Equal(t, "unsatisfied", rec.Analysis.Satisfaction)
		assert.Equal(t, []string{"rude_tone"}, rec.Analysis.AgentMistakes)
		assert.Empty(t, rec.AnalysisError)
	}
}

func TestRunEmitsFailureMarkerAndKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	stub := &stubInvoker{results: []func() (*invoke.Result, error){
		succeed(validAnalysis), exhaust(), succeed(validAnalysis),
	}}

	a := analyzer.New(stub, analyzer.Options{
		Input:  writeInput(t, dir),
		Output: filepath.Join(dir, "analyzed.json"),
		Logger: quiet(),
	})

	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Analyzed)
	assert.Equal(t, 1, summary.Failed)

	records, err := dataset.Load(filepath.Join(dir, "analyzed.json"))
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Id space preserved, failed record explicitly marked, neighbors intact.
	assert.Equal(t, []int{1, 2, 3}, []int{records[0].ID, records[1].ID, records[2].ID})
	assert.NotNil(t, records[0].Analysis)
	assert.Nil(t, records[1].Analysis)
	assert.Contains(t, records[1].AnalysisError, "exhausted")
	assert.NotNil(t, records[2].Analysis)
}

func TestRunAbortsOnMissingProviders(t *testing.T) {
	dir := t.TempDir()
	stub := &stubInvoker{results: []func() (*invoke.Result, error){
		func() (*invoke.Result, error) { return nil, invoke.ErrNoProviders },
	}}

	a := analyzer.New(stub, analyzer.Options{
		Input:  writeInput(t, dir),
		Output: filepath.Join(dir, "analyzed.json"),
		Logger: quiet(),
	})

	_, err := a.Run(context.Background())
	assert.ErrorIs(t, err, invoke.ErrNoProviders)
}

func TestRerunWithCacheIsIdempotentAndSkipsProviders(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	output := filepath.Join(dir, "analyzed.json")
	mem := newMemCache()

	stub := &stubInvoker{results: []func() (*invoke.Result, error){succeed(validAnalysis)}}
	a := analyzer.New(stub, analyzer.Options{Input: input, Output: output, Cache: mem, Logger: quiet()})

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	first, err := dataset.Load(output)
	require.NoError(t, err)
	assert.Equal(t, 3, stub.calls)

	// Second run: every record comes from the cache, providers untouched.
	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.CacheHits)
	assert.Equal(t, 3, stub.calls)

	second, err := dataset.Load(output)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunFailsOnMissingInput(t *testing.T) {
	a := analyzer.New(&stubInvoker{}, analyzer.Options{
		Input:  filepath.Join(t.TempDir(), "missing.json"),
		Output: filepath.Join(t.TempDir(), "analyzed.json"),
		Logger: quiet(),
	})
	_, err := a.Run(context.Background())
	assert.Error(t, err)
}
