// Package dataset defines the on-disk record format shared by the generation
// and analysis stages: a JSON array of dialogue records, fully rewritten on
// each save.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Turn is a single utterance in a support dialogue.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Analysis holds the structured insights extracted from one dialogue.
type Analysis struct {
	Intent        string   `json:"intent"`
	Satisfaction  string   `json:"satisfaction"`
	QualityScore  int      `json:"quality_score"`
	AgentMistakes []string `json:"agent_mistakes"`
}

// Normalize canonicalizes an analysis payload in place: enum values are
// lowercased and trimmed, and agent mistakes get set semantics (deduplicated,
// sorted).
func (a *Analysis) Normalize() {
	a.Intent = strings.ToLower(strings.TrimSpace(a.Intent))
	a.Satisfaction = strings.ToLower(strings.TrimSpace(a.Satisfaction))

	seen := make(map[string]struct{}, len(a.AgentMistakes))
	mistakes := make([]string, 0, len(a.AgentMistakes))
	for _, m := range a.AgentMistakes {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		mistakes = append(mistakes, m)
	}
	sort.Strings(mistakes)
	a.AgentMistakes = mistakes
}

// Record is one synthetic support dialogue. The id is assigned by the
// generator and preserved verbatim by the analyzer. A record that exhausted
// every provider during analysis carries no analysis and a non-empty
// AnalysisError marker instead.
type Record struct {
	ID            int       `json:"id"`
	Scenario      string    `json:"scenario,omitempty"`
	Dialogue      []Turn    `json:"dialogue"`
	Analysis      *Analysis `json:"analysis,omitempty"`
	AnalysisError string    `json:"analysis_error,omitempty"`
}

// Transcript renders the dialogue as plain "speaker: text" lines, the form
// fed to the analysis prompt.
func (r *Record) Transcript() string {
	var b strings.Builder
	for i, turn := range r.Dialogue {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(turn.Speaker)
		b.WriteString(": ")
		b.WriteString(turn.Text)
	}
	return b.String()
}

// Load reads a dataset file.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}

	return records, nil
}

// Save writes the full record set to path, replacing any previous content.
func Save(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}

	return nil
}
