package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/soundprediction/go-chatforge/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisShape(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		valid   bool
	}{
		{
			name:    "complete payload",
			payload: `{"intent":"refund_request","satisfaction":"unsatisfied","quality_score":2,"agent_mistakes":["rude_tone"]}`,
			valid:   true,
		},
		{
			name:    "empty mistakes allowed",
			payload: `{"intent":"other","satisfaction":"satisfied","quality_score":5,"agent_mistakes":[]}`,
			valid:   true,
		},
		{
			name:    "missing quality_score",
			payload: `{"intent":"refund_request","satisfaction":"unsatisfied","agent_mistakes":[]}`,
			valid:   false,
		},
		{
			name:    "unknown intent",
			payload: `{"intent":"smalltalk","satisfaction":"neutral","quality_score":3,"agent_mistakes":[]}`,
			valid:   false,
		},
		{
			name:    "score out of range",
			payload: `{"intent":"other","satisfaction":"neutral","quality_score":9,"agent_mistakes":[]}`,
			valid:   false,
		},
		{
			name:    "score not an integer",
			payload: `{"intent":"other","satisfaction":"neutral","quality_score":3.7,"agent_mistakes":[]}`,
			valid:   false,
		},
		{
			name:    "unknown mistake category",
			payload: `{"intent":"other","satisfaction":"neutral","quality_score":3,"agent_mistakes":["too_slow"]}`,
			valid:   false,
		},
		{
			name:    "not json at all",
			payload: `I'm sorry, I can't help with that.`,
			valid:   false,
		},
		{
			name:    "truncated json",
			payload: `{"intent":"other","satisfaction":`,
			valid:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Analysis.Validate(json.RawMessage(tt.payload))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDialogueShape(t *testing.T) {
	valid := `{"dialogue":[{"speaker":"user","text":"My card was charged twice."},{"speaker":"agent","text":"Let me check that for you."}]}`
	require.NoError(t, schema.Dialogue.Validate(json.RawMessage(valid)))

	tests := []struct {
		name    string
		payload string
	}{
		{"single turn", `{"dialogue":[{"speaker":"user","text":"hi"}]}`},
		{"unknown speaker", `{"dialogue":[{"speaker":"bot","text":"hi"},{"speaker":"user","text":"hi"}]}`},
		{"empty text", `{"dialogue":[{"speaker":"user","text":""},{"speaker":"agent","text":"hi"}]}`},
		{"missing dialogue key", `{"turns":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, schema.Dialogue.Validate(json.RawMessage(tt.payload)))
		})
	}
}

func TestShapeDocRoundTrips(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(schema.Analysis.Doc(), &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, "analysis", schema.Analysis.Name())
}

func TestNewRejectsBadSchema(t *testing.T) {
	_, err := schema.New("broken", `{"type": ???}`)
	assert.Error(t, err)
}
