package dto

import "github.com/soundprediction/go-chatforge/pkg/dataset"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RecordsResponse wraps a dataset listing.
type RecordsResponse struct {
	Total   int              `json:"total"`
	Failed  int              `json:"failed"`
	Records []dataset.Record `json:"records"`
}

// StatsResponse aggregates the analyzed dataset.
type StatsResponse struct {
	Total               int            `json:"total"`
	Analyzed            int            `json:"analyzed"`
	Failed              int            `json:"failed"`
	ByIntent            map[string]int `json:"by_intent"`
	BySatisfaction      map[string]int `json:"by_satisfaction"`
	MistakeCounts       map[string]int `json:"mistake_counts"`
	AverageQualityScore float64        `json:"average_quality_score"`
}
